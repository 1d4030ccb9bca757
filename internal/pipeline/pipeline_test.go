/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/clients"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/gatekeeper"
	"github.com/friendsincode/signalwave/internal/rotation"
)

func TestSanitizeStripsBoilerplateAndTruncatesAtStopPattern(t *testing.T) {
	raw := "Script: Here's a great tune coming up.\nNote: this response was generated by an AI assistant.\nShould not appear."
	got := Sanitize(raw)
	if got != "Here's a great tune coming up." {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	got := Sanitize("too    many     spaces")
	if got != "too many spaces" {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestIsForbiddenEmpty(t *testing.T) {
	if !IsForbiddenEmpty("   \n\t") {
		t.Error("expected whitespace-only script to be forbidden-empty")
	}
	if IsForbiddenEmpty("hello") {
		t.Error("expected non-empty script to not be forbidden-empty")
	}
}

func TestBuildBriefSongIntro(t *testing.T) {
	key := contentstore.Key{ContentType: contentstore.SongIntro, PersonaID: "nova", TargetID: "song-1"}
	persona := config.PersonaSettings{ID: "nova", StyleCard: map[string]any{"tone": "upbeat"}}
	song := &catalog.Song{ID: "song-1", Artist: "Motorhead", Title: "Overkill"}

	brief := BuildBrief(key, persona, TargetContext{Song: song})
	if brief.Context["artist"] != "Motorhead" || brief.Context["title"] != "Overkill" {
		t.Errorf("unexpected brief context: %+v", brief.Context)
	}
	if brief.PersonaID != "nova" || brief.ContentType != "SongIntro" {
		t.Errorf("unexpected brief identity: %+v", brief)
	}
}

func TestEnumerateTargetsSongsExcludesBanishedAndAppliesCap(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "a", Artist: "A", Title: "One"})
	cat.AddSong(catalog.Song{ID: "b", Artist: "B", Title: "Two"})
	cat.AddSong(catalog.Song{ID: "c", Artist: "C", Title: "Three"})

	rot := rotation.New(rotation.Config{})
	rot.EnsureSong("a")
	rot.EnsureSong("b")
	rot.EnsureSong("c")
	if err := rot.Banish("b"); err != nil {
		t.Fatalf("Banish: %v", err)
	}

	personas := []config.PersonaSettings{{ID: "nova"}}
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, personas, cat, rot, nil, nil)
	if len(targets) != 2 {
		t.Fatalf("expected 2 non-banished targets, got %d", len(targets))
	}

	capped := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, personas, cat, rot, nil, map[string]int{"SongIntro": 1})
	if len(capped) != 1 {
		t.Fatalf("expected cap to reduce to 1 target, got %d", len(capped))
	}
}

func TestEnumerateTargetsTimeAnnouncementProducesFortyEightSlots(t *testing.T) {
	personas := []config.PersonaSettings{{ID: "nova"}}
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.TimeAnnouncement}, personas, catalog.New(), nil, nil, nil)
	if len(targets) != 48 {
		t.Fatalf("expected 48 half-hour slots, got %d", len(targets))
	}
	if targets[0].Key.TargetID != "00-00" || targets[47].Key.TargetID != "23-30" {
		t.Errorf("unexpected slot bounds: first=%s last=%s", targets[0].Key.TargetID, targets[47].Key.TargetID)
	}
}

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline_state.json")

	snap := ConfigSnapshot{ContentTypes: []string{"SongIntro"}, Personas: []string{"nova"}, Mode: "Test", StageFilter: "All", Ordering: StageMajor}
	cp := NewCheckpoint("run-1", snap, path)
	key := contentstore.Key{ContentType: contentstore.SongIntro, PersonaID: "nova", TargetID: "song-1"}
	cp.MarkKeyOutcome(GenerateStage, key, "passed", true)
	cp.SetStageStatus(GenerateStage, Completed)
	if err := cp.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadCheckpoint(path, snap)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %q", loaded.RunID)
	}
	if !loaded.IsKeyComplete(GenerateStage, key) {
		t.Error("expected key to be marked complete after reload")
	}

	mismatched := snap
	mismatched.Ordering = ItemMajor
	if _, err := LoadCheckpoint(path, mismatched); err == nil {
		t.Error("expected mismatch error for differing ordering")
	}
}

func TestLoadCheckpointMissingFileReturnsNilNoError(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "missing.json"), ConfigSnapshot{})
	if err != nil {
		t.Fatalf("expected nil error for missing file, got %v", err)
	}
	if cp != nil {
		t.Error("expected nil checkpoint for missing file")
	}
}

func newTestOrchestrator(t *testing.T, auditor clients.AuditorClient) (*Orchestrator, *contentstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := contentstore.New(dir, nil)
	gate := gatekeeper.New()

	settings := config.PipelineSettings{
		Mode: "Test", StageFilter: "All", Ordering: "StageMajor",
		Concurrency: 2, RetryCap: 1, RegenerationCap: 1, AuditThreshold: 7.0,
	}
	snap := ConfigSnapshot{ContentTypes: []string{"SongIntro"}, Personas: []string{"nova"}, Mode: "Test", StageFilter: "All", Ordering: StageMajor}
	cp := NewCheckpoint("run-test", snap, filepath.Join(dir, "pipeline_state.json"))

	personas := []config.PersonaSettings{{ID: "nova", VoiceReference: "voice-nova"}}
	orch := New(store, gate, clients.FakeWriter{}, auditor, clients.FakeTTS{}, cp, settings, personas, zerolog.Nop(), nil)
	return orch, store
}

func TestOrchestratorStageMajorHappyPathProducesAudio(t *testing.T) {
	orch, store := newTestOrchestrator(t, clients.NewPassingFakeAuditor())

	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Motorhead", Title: "Overkill"})
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, []config.PersonaSettings{{ID: "nova"}}, cat, nil, nil, nil)

	if err := orch.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	item, err := store.ReadItem(targets[0].Key)
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if item.Status != contentstore.AudioReady {
		t.Errorf("expected AudioReady, got %s", item.Status)
	}
}

func TestOrchestratorAuditFailureExhaustsRegenerationCapAndSkipsSynthesis(t *testing.T) {
	orch, store := newTestOrchestrator(t, clients.FakeAuditor{Pass: false})

	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Motorhead", Title: "Overkill"})
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, []config.PersonaSettings{{ID: "nova"}}, cat, nil, nil, nil)

	if err := orch.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	item, err := store.ReadItem(targets[0].Key)
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if item.Status != contentstore.AuditedFail {
		t.Errorf("expected AuditedFail after exhausting regeneration cap, got %s", item.Status)
	}
}

// regeneratingWriter returns "bad script" on its first call and "good
// script" on every call after, so a test can tell whether a failed Audit
// actually triggered a fresh Generate call rather than re-auditing the
// same script.
type regeneratingWriter struct {
	calls int
}

func (w *regeneratingWriter) Write(context.Context, clients.Brief) (string, error) {
	w.calls++
	if w.calls == 1 {
		return "bad script", nil
	}
	return "good script", nil
}

// scriptGatedAuditor passes only once the script matches want, standing
// in for a real auditor that would have rejected the first draft.
type scriptGatedAuditor struct {
	want string
}

func (a scriptGatedAuditor) Audit(_ context.Context, script, _, _ string) (clients.AuditRecord, error) {
	passed := script == a.want
	score := 0.0
	if passed {
		score = 9.0
	}
	return clients.AuditRecord{OverallScore: score, Passed: passed}, nil
}

func TestOrchestratorAuditFailureRegeneratesFreshScriptBeforeRetryingAudit(t *testing.T) {
	dir := t.TempDir()
	store := contentstore.New(dir, nil)
	gate := gatekeeper.New()
	writer := &regeneratingWriter{}

	settings := config.PipelineSettings{
		Mode: "Test", StageFilter: "All", Ordering: "StageMajor",
		Concurrency: 1, RetryCap: 0, RegenerationCap: 2, AuditThreshold: 7.0,
	}
	snap := ConfigSnapshot{ContentTypes: []string{"SongIntro"}, Personas: []string{"nova"}, Mode: "Test", StageFilter: "All", Ordering: StageMajor}
	cp := NewCheckpoint("run-regen", snap, filepath.Join(dir, "pipeline_state.json"))
	personas := []config.PersonaSettings{{ID: "nova", VoiceReference: "voice-nova"}}
	orch := New(store, gate, writer, scriptGatedAuditor{want: "good script"}, clients.FakeTTS{}, cp, settings, personas, zerolog.Nop(), nil)

	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Motorhead", Title: "Overkill"})
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, []config.PersonaSettings{{ID: "nova"}}, cat, nil, nil, nil)

	if err := orch.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if writer.calls < 2 {
		t.Fatalf("expected Audit failure to re-enter Generate for a fresh script, writer was called %d time(s)", writer.calls)
	}

	item, err := store.ReadItem(targets[0].Key)
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if item.Status != contentstore.AudioReady {
		t.Errorf("expected AudioReady after regeneration produced a passing script, got %s", item.Status)
	}
	if item.ScriptText != "good script" {
		t.Errorf("expected the regenerated script to be persisted, got %q", item.ScriptText)
	}
}

func TestHTTPAuditorMalformedResponseReportsWellKnownIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	auditor := clients.NewHTTPAuditor(server.URL, 0)
	record, err := auditor.Audit(context.Background(), "a script", "nova", "SongIntro")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if record.Passed {
		t.Error("expected a malformed response to fail the audit")
	}
	if len(record.Issues) != 1 || record.Issues[0] != "auditor_output_unparseable" {
		t.Errorf("expected Issues = [auditor_output_unparseable], got %v", record.Issues)
	}
}

func TestOrchestratorItemMajorHappyPath(t *testing.T) {
	orch, store := newTestOrchestrator(t, clients.NewPassingFakeAuditor())
	orch.Checkpoint.Config.Ordering = ItemMajor

	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Motorhead", Title: "Overkill"})
	targets := EnumerateTargets([]contentstore.ContentType{contentstore.SongIntro}, []config.PersonaSettings{{ID: "nova"}}, cat, nil, nil, nil)

	if err := orch.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	item, err := store.ReadItem(targets[0].Key)
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if item.Status != contentstore.AudioReady {
		t.Errorf("expected AudioReady, got %s", item.Status)
	}
}
