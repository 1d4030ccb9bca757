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

// PersonaSettings describes one on-air persona's identity and voice.
type PersonaSettings struct {
	ID             string         `koanf:"id"`
	DisplayName    string         `koanf:"display_name"`
	VoiceReference string         `koanf:"voice_reference"`
	StyleCard      map[string]any `koanf:"style_card"`
}

// ShiftSettings is one entry of the on-air ShiftSchedule.
type ShiftSettings struct {
	StartMinute int    `koanf:"start_minute"`
	PersonaID   string `koanf:"persona_id"`
}

// WeatherWindowSettings names one configured weather announcement hour.
type WeatherWindowSettings struct {
	Window string `koanf:"window"` // "morning", "midday", or "evening"
	Hour   int    `koanf:"hour"`
}

// StationSettings is the structured configuration for the station
// runtime: personas, shift schedule, weather/show windows, and rotation
// tuning. It is loaded through koanf (defaults < YAML file < env) rather
// than plain env vars, since this surface is too large for flat
// SIGNALWAVE_* keys alone.
type StationSettings struct {
	Personas       []PersonaSettings       `koanf:"personas"`
	Shifts         []ShiftSettings         `koanf:"shifts"`
	WeatherWindows []WeatherWindowSettings `koanf:"weather_windows"`
	ShowHour       int                     `koanf:"show_hour"`
	ShowID         string                  `koanf:"show_id"`

	AnnouncementWindowSeconds int `koanf:"announcement_window_seconds"`

	RotationPromoteAfterPlays int `koanf:"rotation_promote_after_plays"`
	RotationBanishAfterSkips  int `koanf:"rotation_banish_after_skips"`
	RotationAntiRepeatWindow  int `koanf:"rotation_anti_repeat_window"`
}

func defaultStationSettings() StationSettings {
	return StationSettings{
		ShowHour:                  -1,
		AnnouncementWindowSeconds: 5,
		RotationPromoteAfterPlays: 8,
		RotationBanishAfterSkips:  3,
		RotationAntiRepeatWindow:  12,
	}
}

// LoadStation loads StationSettings from defaults, then path (if it
// exists), then SIGNALWAVE_STATION_* environment variables.
func LoadStation(path string) (*StationSettings, error) {
	k := koanf.New(".")

	defaults := defaultStationSettings()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load station defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load station config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("SIGNALWAVE_STATION_", ".", stationEnvTransform), nil); err != nil {
		return nil, fmt.Errorf("load station env overrides: %w", err)
	}

	var settings StationSettings
	if err := k.Unmarshal("", &settings); err != nil {
		return nil, fmt.Errorf("unmarshal station settings: %w", err)
	}
	return &settings, nil
}

// stationEnvTransform maps SIGNALWAVE_STATION_SHOW_HOUR -> show_hour,
// SIGNALWAVE_STATION_ANNOUNCEMENT_WINDOW_SECONDS -> announcement_window_seconds.
// Only scalar top-level fields are overridable this way; personas/shifts/
// weather windows are list-shaped and belong in the YAML file.
func stationEnvTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "SIGNALWAVE_STATION_"))
}
