/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PipelineSettings is the structured batch configuration for the
// pipeline processor: selected content types/personas, caps, mode,
// stage filter, ordering, and per-backend tuning. Loaded through koanf
// (defaults < pipeline.yaml < env < CLI flags, the last layer applied
// by cmd/signalwaveop after LoadPipeline returns).
type PipelineSettings struct {
	ContentTypes []string       `koanf:"content_types"`
	Personas     []string       `koanf:"personas"`
	Caps         map[string]int `koanf:"caps"`

	Mode        string `koanf:"mode"`         // "Production" or "Test"
	StageFilter string `koanf:"stage_filter"` // "All", "Generate", "Audit", "Synthesize"
	Ordering    string `koanf:"ordering"`     // "StageMajor" or "ItemMajor"

	Concurrency     int     `koanf:"concurrency"`
	RetryCap        int     `koanf:"retry_cap"`
	RegenerationCap int     `koanf:"regeneration_cap"`
	AuditThreshold  float64 `koanf:"audit_threshold"`

	WriterRequestsPerSecond  float64 `koanf:"writer_requests_per_second"`
	AuditorRequestsPerSecond float64 `koanf:"auditor_requests_per_second"`
	TTSRequestsPerSecond     float64 `koanf:"tts_requests_per_second"`

	CheckpointPath string `koanf:"checkpoint_path"`
}

func defaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Mode:                     "Production",
		StageFilter:              "All",
		Ordering:                 "StageMajor",
		Concurrency:              1,
		RetryCap:                 3,
		RegenerationCap:          3,
		AuditThreshold:           7.0,
		WriterRequestsPerSecond:  2,
		AuditorRequestsPerSecond: 2,
		TTSRequestsPerSecond:     1,
		CheckpointPath:           "./pipeline_state.json",
	}
}

// LoadPipeline loads PipelineSettings from defaults, then path (if it
// exists), then SIGNALWAVE_PIPELINE_* environment variables. CLI flags
// (highest priority) are applied by the caller on top of the result.
func LoadPipeline(path string) (*PipelineSettings, error) {
	k := koanf.New(".")

	defaults := defaultPipelineSettings()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load pipeline defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load pipeline config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("SIGNALWAVE_PIPELINE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SIGNALWAVE_PIPELINE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load pipeline env overrides: %w", err)
	}

	var settings PipelineSettings
	if err := k.Unmarshal("", &settings); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline settings: %w", err)
	}
	return &settings, nil
}
