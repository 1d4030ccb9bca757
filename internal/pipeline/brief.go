/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pipeline drives the batch Generate → Audit → Synthesize
// orchestration over a set of content targets, the hardest component of
// this system: it bridges the abstract model clients, the content
// store, and the Gatekeeper into a resumable, checkpointed batch run.
package pipeline

import (
	"fmt"

	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/clients"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/weather"
)

// TargetContext carries whatever contextual facts are available for one
// target key, so BuildBrief stays a pure function of its inputs.
type TargetContext struct {
	Song          *catalog.Song     // set for SongIntro/SongOutro
	TimeOfDay     string            // set for TimeAnnouncement, e.g. "14-30"
	WeatherWindow string            // set for WeatherAnnouncement, e.g. "morning"
	WeatherSnap   *weather.Snapshot // set alongside WeatherWindow when available
	ShowID        string            // set for ShowIntro/ShowOutro
	HandoffFromID string            // set for Handoff
	HandoffToID   string            // set for Handoff
}

// BuildBrief constructs the Writer input brief for key from persona
// settings and the target's contextual facts. It never performs I/O —
// every fact it uses is passed in, so tests can exercise it without a
// catalog, clock, or weather provider.
func BuildBrief(key contentstore.Key, persona config.PersonaSettings, tctx TargetContext) clients.Brief {
	brief := clients.Brief{
		PersonaID:   key.PersonaID,
		ContentType: string(key.ContentType),
		TargetID:    key.TargetID,
		StyleCard:   persona.StyleCard,
		Context:     map[string]string{},
	}

	switch key.ContentType {
	case contentstore.SongIntro, contentstore.SongOutro:
		if tctx.Song != nil {
			brief.Context["artist"] = tctx.Song.Artist
			brief.Context["title"] = tctx.Song.Title
			if tctx.Song.Album != "" {
				brief.Context["album"] = tctx.Song.Album
			}
			if tctx.Song.Year != "" {
				brief.Context["year"] = tctx.Song.Year
			}
		}
	case contentstore.TimeAnnouncement:
		brief.Context["time_of_day"] = tctx.TimeOfDay
	case contentstore.WeatherAnnounce:
		brief.Context["weather_window"] = tctx.WeatherWindow
		if tctx.WeatherSnap != nil {
			brief.Context["weather_summary"] = tctx.WeatherSnap.Summary
			brief.Context["weather_temp_celsius"] = fmt.Sprintf("%.1f", tctx.WeatherSnap.TempCelsius)
		}
	case contentstore.ShowIntro, contentstore.ShowOutro:
		brief.Context["show_id"] = tctx.ShowID
	case contentstore.Handoff:
		brief.Context["handoff_from"] = tctx.HandoffFromID
		brief.Context["handoff_to"] = tctx.HandoffToID
	}

	return brief
}
