/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package contentstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"github.com/friendsincode/signalwave/internal/atomicfile"
	"github.com/friendsincode/signalwave/internal/jsoncodec"
)

// AuditRecord is the audit stage's verdict on a script.
type AuditRecord struct {
	OverallScore       float64            `json:"overall_score"`
	PerCriterionScores map[string]float64 `json:"per_criterion_scores"`
	Passed             bool               `json:"passed"`
	Issues             []string           `json:"issues,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	RawResponse        string             `json:"raw_response,omitempty"`
}

// ContentItem is the read view of one key's on-disk state.
type ContentItem struct {
	Key           Key
	Status        Status
	ScriptText    string
	AudioFile     string // path to audio.wav, empty if absent
	AudioDuration float64
	AuditRecord   *AuditRecord
}

// ContentStoreError reports a programming-error-level invariant
// violation, e.g. writing audio without a passing audit.
type ContentStoreError struct {
	Reason string
}

func (e *ContentStoreError) Error() string {
	return fmt.Sprintf("contentstore: %s", e.Reason)
}

const (
	scriptFilename  = "script.txt"
	auditFilename   = "audit.json"
	audioFilename   = "audio.wav"
	flaggedFilename = "flagged"
)

// Store is the filesystem-backed content store rooted at Root.
type Store struct {
	Root  string
	Index Indexer // optional secondary index kept in sync on every write
}

// Indexer mirrors content item state for fast enumerate() queries. A nil
// Indexer is a valid, functioning no-op — the filesystem is always the
// source of truth.
type Indexer interface {
	Upsert(item ContentItem) error
	Remove(key Key) error
	Enumerate(filter Filter) ([]Key, error)
}

// Filter narrows enumerate() results; zero-value fields mean "any".
type Filter struct {
	ContentType ContentType
	PersonaID   string
	Status      Status
}

// New returns a Store rooted at root. root is created lazily on first write.
func New(root string, index Indexer) *Store {
	return &Store{Root: root, Index: index}
}

// ReadItem derives a ContentItem's status from which files exist under key's directory.
func (s *Store) ReadItem(key Key) (ContentItem, error) {
	if err := key.Validate(); err != nil {
		return ContentItem{}, err
	}
	dir := key.Dir(s.Root)
	item := ContentItem{Key: key}

	scriptPath := filepath.Join(dir, scriptFilename)
	if data, err := os.ReadFile(scriptPath); err == nil {
		item.ScriptText = string(data)
		item.Status = ScriptOnly
	} else if !os.IsNotExist(err) {
		return ContentItem{}, fmt.Errorf("read script: %w", err)
	}

	auditPath := filepath.Join(dir, auditFilename)
	if data, err := os.ReadFile(auditPath); err == nil {
		var rec AuditRecord
		if err := jsoncodec.Unmarshal(data, &rec); err != nil {
			return ContentItem{}, fmt.Errorf("parse audit: %w", err)
		}
		item.AuditRecord = &rec
		if rec.Passed {
			item.Status = AuditedPass
		} else {
			item.Status = AuditedFail
		}
	} else if !os.IsNotExist(err) {
		return ContentItem{}, fmt.Errorf("read audit: %w", err)
	}

	audioPath := filepath.Join(dir, audioFilename)
	if info, err := os.Stat(audioPath); err == nil {
		item.AudioFile = audioPath
		item.Status = AudioReady
		if duration, derr := wavDuration(audioPath); derr == nil {
			item.AudioDuration = duration
		}
		_ = info
	} else if !os.IsNotExist(err) {
		return ContentItem{}, fmt.Errorf("stat audio: %w", err)
	}

	if atomicfile.Exists(filepath.Join(dir, flaggedFilename)) {
		item.Status = Flagged
	}

	if item.Status == "" {
		item.Status = Absent
	}

	return item, nil
}

// WriteScript writes script.txt and clears any prior audit/audio for key,
// since a new script invalidates both.
func (s *Store) WriteScript(key Key, text string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	dir := key.Dir(s.Root)

	if err := atomicfile.WriteFile(filepath.Join(dir, scriptFilename), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := atomicfile.Remove(filepath.Join(dir, auditFilename)); err != nil {
		return fmt.Errorf("clear prior audit: %w", err)
	}
	if err := atomicfile.Remove(filepath.Join(dir, audioFilename)); err != nil {
		return fmt.Errorf("clear prior audio: %w", err)
	}

	return s.syncIndex(key)
}

// WriteAudit writes audit.json for key.
func (s *Store) WriteAudit(key Key, record AuditRecord) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := jsoncodec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit: %w", err)
	}
	if err := atomicfile.WriteFile(filepath.Join(key.Dir(s.Root), auditFilename), data, 0o644); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return s.syncIndex(key)
}

// WriteAudio writes audio.wav for key after validating it is a
// well-formed WAV stream and that the item currently has a passing
// audit. Writing audio without AuditedPass is a programming error.
func (s *Store) WriteAudio(key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	item, err := s.ReadItem(key)
	if err != nil {
		return err
	}
	if item.Status != AuditedPass {
		return &ContentStoreError{Reason: fmt.Sprintf("writeAudio called for %s without a passing audit (status=%s)", key, item.Status)}
	}

	if _, err := validateWAV(data); err != nil {
		return fmt.Errorf("synthesized audio is not a valid WAV stream: %w", err)
	}

	if err := atomicfile.WriteFile(filepath.Join(key.Dir(s.Root), audioFilename), data, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return s.syncIndex(key)
}

// MarkFlagged creates the "flagged" marker, requesting regeneration on the next pipeline run.
func (s *Store) MarkFlagged(key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := atomicfile.Touch(filepath.Join(key.Dir(s.Root), flaggedFilename)); err != nil {
		return fmt.Errorf("mark flagged: %w", err)
	}
	return s.syncIndex(key)
}

// ClearFlag removes the "flagged" marker.
func (s *Store) ClearFlag(key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := atomicfile.Remove(filepath.Join(key.Dir(s.Root), flaggedFilename)); err != nil {
		return fmt.Errorf("clear flag: %w", err)
	}
	return s.syncIndex(key)
}

// Enumerate lists keys matching filter. It prefers the secondary index
// when configured and falls back to a filesystem walk otherwise.
func (s *Store) Enumerate(filter Filter) ([]Key, error) {
	if s.Index != nil {
		return s.Index.Enumerate(filter)
	}
	return s.enumerateFilesystem(filter)
}

func (s *Store) syncIndex(key Key) error {
	if s.Index == nil {
		return nil
	}
	item, err := s.ReadItem(key)
	if err != nil {
		return err
	}
	if item.Status == Absent {
		return s.Index.Remove(key)
	}
	return s.Index.Upsert(item)
}

func validateWAV(data []byte) (time.Duration, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("not a valid WAV file")
	}
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("read duration: %w", err)
	}
	return duration, nil
}

func wavDuration(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	duration, err := validateWAV(data)
	if err != nil {
		return 0, err
	}
	return duration.Seconds(), nil
}
