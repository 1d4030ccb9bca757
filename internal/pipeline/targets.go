/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pipeline

import (
	"fmt"
	"sort"

	"github.com/friendsincode/signalwave/internal/calendar"
	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/rotation"
)

// Target is one enumerated (key, context) pair to drive through the
// pipeline.
type Target struct {
	Key     contentstore.Key
	Context TargetContext
}

// halfHourSlots is the 48 "HH-MM" labels for TimeAnnouncement targets,
// 00-00 through 23-30. Hyphenated, not colon-separated, so the slot
// satisfies contentstore.Key's TargetID character set.
func halfHourSlots() []string {
	slots := make([]string, 0, 48)
	for hour := 0; hour < 24; hour++ {
		slots = append(slots, fmt.Sprintf("%02d-00", hour))
		slots = append(slots, fmt.Sprintf("%02d-30", hour))
	}
	return slots
}

// EnumerateTargets deterministically builds the ordered target list for
// one (content type × persona) selection. caps applies a per-content-type
// cap to the ordered list, after ordering — never before, so a cap
// always keeps the same prefix run over run.
func EnumerateTargets(contentTypes []contentstore.ContentType, personas []config.PersonaSettings, cat *catalog.Catalog, rot *rotation.Engine, cal *calendar.Calendar, caps map[string]int) []Target {
	var targets []Target

	for _, ct := range contentTypes {
		if ct == contentstore.Handoff {
			// Handoffs are derived from the ShiftSchedule itself, one per
			// persona transition, not per selected persona.
			batch := handoffTargets(cal)
			if cap, ok := caps[string(ct)]; ok && cap > 0 && len(batch) > cap {
				batch = batch[:cap]
			}
			targets = append(targets, batch...)
			continue
		}

		for _, persona := range personas {
			batch := enumerateForType(ct, persona, cat, rot, cal)
			if cap, ok := caps[string(ct)]; ok && cap > 0 && len(batch) > cap {
				batch = batch[:cap]
			}
			targets = append(targets, batch...)
		}
	}

	return targets
}

func enumerateForType(ct contentstore.ContentType, persona config.PersonaSettings, cat *catalog.Catalog, rot *rotation.Engine, cal *calendar.Calendar) []Target {
	switch ct {
	case contentstore.SongIntro, contentstore.SongOutro:
		return songTargets(ct, persona, cat, rot)
	case contentstore.TimeAnnouncement:
		return timeTargets(persona)
	case contentstore.WeatherAnnounce:
		return weatherTargets(persona, cal)
	case contentstore.ShowIntro, contentstore.ShowOutro:
		return showTargets(ct, persona, cal)
	default:
		return nil
	}
}

func songTargets(ct contentstore.ContentType, persona config.PersonaSettings, cat *catalog.Catalog, rot *rotation.Engine) []Target {
	songs := cat.AllSongs()
	sort.Slice(songs, func(i, j int) bool { return songs[i].ID < songs[j].ID })

	targets := make([]Target, 0, len(songs))
	for _, song := range songs {
		if rot != nil {
			if tier, ok := rot.TierOf(song.ID); ok && tier == rotation.Banished {
				continue
			}
		}
		song := song
		targets = append(targets, Target{
			Key:     contentstore.Key{ContentType: ct, PersonaID: persona.ID, TargetID: song.ID},
			Context: TargetContext{Song: &song},
		})
	}
	return targets
}

func timeTargets(persona config.PersonaSettings) []Target {
	slots := halfHourSlots()
	targets := make([]Target, 0, len(slots))
	for _, slot := range slots {
		targets = append(targets, Target{
			Key:     contentstore.Key{ContentType: contentstore.TimeAnnouncement, PersonaID: persona.ID, TargetID: slot},
			Context: TargetContext{TimeOfDay: slot},
		})
	}
	return targets
}

func weatherTargets(persona config.PersonaSettings, cal *calendar.Calendar) []Target {
	if cal == nil {
		return nil
	}
	windows := make([]calendar.WeatherWindow, 0, len(cal.WeatherHours))
	for window := range cal.WeatherHours {
		windows = append(windows, window)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i] < windows[j] })

	targets := make([]Target, 0, len(windows))
	for _, window := range windows {
		targets = append(targets, Target{
			Key:     contentstore.Key{ContentType: contentstore.WeatherAnnounce, PersonaID: persona.ID, TargetID: window.String()},
			Context: TargetContext{WeatherWindow: window.String()},
		})
	}
	return targets
}

func showTargets(ct contentstore.ContentType, persona config.PersonaSettings, cal *calendar.Calendar) []Target {
	if cal == nil || cal.ShowID == "" {
		return nil
	}
	return []Target{{
		Key:     contentstore.Key{ContentType: ct, PersonaID: persona.ID, TargetID: cal.ShowID},
		Context: TargetContext{ShowID: cal.ShowID},
	}}
}

func handoffTargets(cal *calendar.Calendar) []Target {
	if cal == nil || cal.Schedule == nil {
		return nil
	}
	shifts := cal.Schedule.Shifts()
	if len(shifts) < 2 {
		return nil
	}

	targets := make([]Target, 0, len(shifts))
	for i, shift := range shifts {
		prev := shifts[(i-1+len(shifts))%len(shifts)]
		if prev.Persona == shift.Persona {
			continue
		}
		targetID := fmt.Sprintf("%s-to-%s", prev.Persona, shift.Persona)
		targets = append(targets, Target{
			// The incoming persona voices the handoff line.
			Key:     contentstore.Key{ContentType: contentstore.Handoff, PersonaID: string(shift.Persona), TargetID: targetID},
			Context: TargetContext{HandoffFromID: string(prev.Persona), HandoffToID: string(shift.Persona)},
		})
	}
	return targets
}
