/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStationAppliesDefaultsAndFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.yaml")
	yaml := `
show_hour: 18
show_id: evening-spotlight
personas:
  - id: nova
    display_name: Nova
    voice_reference: voice-nova
shifts:
  - start_minute: 0
    persona_id: nova
  - start_minute: 720
    persona_id: echo
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := LoadStation(path)
	if err != nil {
		t.Fatalf("LoadStation: %v", err)
	}
	if settings.ShowHour != 18 || settings.ShowID != "evening-spotlight" {
		t.Errorf("show settings not applied: %+v", settings)
	}
	if len(settings.Personas) != 1 || settings.Personas[0].ID != "nova" {
		t.Errorf("personas not applied: %+v", settings.Personas)
	}
	if len(settings.Shifts) != 2 {
		t.Errorf("expected 2 shifts, got %d", len(settings.Shifts))
	}
	if settings.RotationPromoteAfterPlays != 8 {
		t.Errorf("expected default RotationPromoteAfterPlays=8, got %d", settings.RotationPromoteAfterPlays)
	}
}

func TestLoadStationMissingFileUsesDefaults(t *testing.T) {
	settings, err := LoadStation(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadStation: %v", err)
	}
	if settings.ShowHour != -1 {
		t.Errorf("expected default ShowHour=-1, got %d", settings.ShowHour)
	}
}

func TestLoadPipelineDefaultsAndFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	yaml := `
content_types:
  - SongIntro
  - SongOutro
personas:
  - nova
mode: Test
concurrency: 4
caps:
  SongIntro: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	if settings.Mode != "Test" || settings.Concurrency != 4 {
		t.Errorf("overrides not applied: %+v", settings)
	}
	if settings.Caps["SongIntro"] != 10 {
		t.Errorf("caps not applied: %+v", settings.Caps)
	}
	if settings.Ordering != "StageMajor" {
		t.Errorf("expected default ordering StageMajor, got %s", settings.Ordering)
	}
	if settings.AuditThreshold != 7.0 {
		t.Errorf("expected default audit threshold 7.0, got %v", settings.AuditThreshold)
	}
}
