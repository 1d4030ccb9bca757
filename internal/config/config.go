/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package config loads process configuration for both the station runtime
// and the pipeline batch processor. Environment-variable bootstrap
// settings use a getEnvAny dual-prefix fallback idiom (SIGNALWAVE_*/RLM_*)
// so both naming generations keep working; the larger, structured
// configuration (personas, shifts, rotation, batch defaults) loads through
// koanf from YAML files layered under env and flags — see LoadStation and
// LoadPipeline in station.go/pipeline.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config covers process level configuration read from environment
// variables, available before koanf initializes.
type Config struct {
	Environment     string
	MusicRoot       string
	ContentRoot     string
	StationConfig   string // path to station.yaml (personas, shifts, rotation)
	PipelineConfig  string // path to pipeline.yaml (batch defaults)
	MetricsBind     string
	StatusBind      string
	OTLPEndpoint    string
	TracingEnabled  bool
	CatalogWatch    bool
	ArchiveAudits   bool
	WriterEndpoint  string
	AuditorEndpoint string
	TTSEndpoint     string
	PlayerBin       string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnvAny([]string{"SIGNALWAVE_ENV", "RLM_ENV"}, "development"),
		MusicRoot:       getEnvAny([]string{"SIGNALWAVE_MUSIC_ROOT", "RLM_MUSIC_ROOT"}, "./music"),
		ContentRoot:     getEnvAny([]string{"SIGNALWAVE_CONTENT_ROOT", "RLM_CONTENT_ROOT"}, "./content"),
		StationConfig:   getEnvAny([]string{"SIGNALWAVE_STATION_CONFIG", "RLM_STATION_CONFIG"}, "./station.yaml"),
		PipelineConfig:  getEnvAny([]string{"SIGNALWAVE_PIPELINE_CONFIG", "RLM_PIPELINE_CONFIG"}, "./pipeline.yaml"),
		MetricsBind:     getEnvAny([]string{"SIGNALWAVE_METRICS_BIND", "RLM_METRICS_BIND"}, "127.0.0.1:9100"),
		StatusBind:      getEnvAny([]string{"SIGNALWAVE_STATUS_BIND", "RLM_STATUS_BIND"}, "127.0.0.1:9101"),
		OTLPEndpoint:    getEnvAny([]string{"SIGNALWAVE_OTLP_ENDPOINT", "RLM_OTLP_ENDPOINT"}, ""),
		TracingEnabled:  getEnvBoolAny([]string{"SIGNALWAVE_TRACING_ENABLED", "RLM_TRACING_ENABLED"}, false),
		CatalogWatch:    getEnvBoolAny([]string{"SIGNALWAVE_CATALOG_WATCH", "RLM_CATALOG_WATCH"}, true),
		ArchiveAudits:   getEnvBoolAny([]string{"SIGNALWAVE_ARCHIVE_AUDITS", "RLM_ARCHIVE_AUDITS"}, false),
		WriterEndpoint:  getEnvAny([]string{"SIGNALWAVE_WRITER_ENDPOINT", "RLM_WRITER_ENDPOINT"}, ""),
		AuditorEndpoint: getEnvAny([]string{"SIGNALWAVE_AUDITOR_ENDPOINT", "RLM_AUDITOR_ENDPOINT"}, ""),
		TTSEndpoint:     getEnvAny([]string{"SIGNALWAVE_TTS_ENDPOINT", "RLM_TTS_ENDPOINT"}, ""),
		PlayerBin:       getEnvAny([]string{"SIGNALWAVE_PLAYER_BIN", "RLM_PLAYER_BIN"}, "ffplay"),
	}

	if cfg.MusicRoot == "" {
		return nil, fmt.Errorf("SIGNALWAVE_MUSIC_ROOT or RLM_MUSIC_ROOT must be provided")
	}
	if cfg.ContentRoot == "" {
		return nil, fmt.Errorf("SIGNALWAVE_CONTENT_ROOT or RLM_CONTENT_ROOT must be provided")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use SIGNALWAVE_ENV (or RLM_ENV)",
		"MUSIC_ROOT":      "use SIGNALWAVE_MUSIC_ROOT (or RLM_MUSIC_ROOT)",
		"CONTENT_ROOT":    "use SIGNALWAVE_CONTENT_ROOT (or RLM_CONTENT_ROOT)",
		"TRACING_ENABLED": "use SIGNALWAVE_TRACING_ENABLED (or RLM_TRACING_ENABLED)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}
