/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rotation tracks each song's play tier (Core/Discovery/Banished)
// and picks the next song to play via weighted random draw, mirroring the
// progressive, weighted candidate selection style of a smart-block engine
// but reduced to rotation's simpler two-tier weighting.
package rotation

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/friendsincode/signalwave/internal/atomicfile"
	"github.com/friendsincode/signalwave/internal/idempotency"
	"github.com/friendsincode/signalwave/internal/jsoncodec"
)

// Tier is a song's rotation standing.
type Tier string

const (
	Core      Tier = "core"
	Discovery Tier = "discovery"
	Banished  Tier = "banished"
)

// Record is the rotation state for one song.
type Record struct {
	SongID       string     `json:"song_id"`
	Tier         Tier       `json:"tier"`
	PlayCount    int        `json:"play_count"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// SongNotFoundError is returned by operations on an unknown song id.
type SongNotFoundError struct {
	SongID string
}

func (e *SongNotFoundError) Error() string {
	return fmt.Sprintf("rotation: song %q not found", e.SongID)
}

// Engine holds rotation state for the whole catalog.
type Engine struct {
	mu                  sync.Mutex
	records             map[string]*Record
	coreRatio           float64
	graduationThreshold int
	antiRepeatWindow    int    // optional; 0 disables
	recentPlays         []string
	dedup               *idempotency.Store // optional; nil disables play-event dedup
}

// Config configures a new Engine.
type Config struct {
	CoreRatio           float64
	GraduationThreshold int
	AntiRepeatWindow    int
	Dedup               *idempotency.Store
}

// New constructs an Engine with no songs registered yet.
func New(cfg Config) *Engine {
	if cfg.CoreRatio <= 0 || cfg.CoreRatio >= 1 {
		cfg.CoreRatio = 0.7
	}
	if cfg.GraduationThreshold <= 0 {
		cfg.GraduationThreshold = 5
	}
	return &Engine{
		records:             make(map[string]*Record),
		coreRatio:           cfg.CoreRatio,
		graduationThreshold: cfg.GraduationThreshold,
		antiRepeatWindow:    cfg.AntiRepeatWindow,
		dedup:               cfg.Dedup,
	}
}

// EnsureSong registers songID with a default Discovery record if absent.
// Scanning a catalog calls this for every song so rotation state always
// has an entry for every known song.
func (e *Engine) EnsureSong(songID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.records[songID]; !ok {
		e.records[songID] = &Record{SongID: songID, Tier: Discovery}
	}
}

// TierOf returns the tier of songID, or false if unknown.
func (e *Engine) TierOf(songID string) (Tier, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[songID]
	if !ok {
		return "", false
	}
	return r.Tier, true
}

// RecordPlay increments play_count and auto-promotes Discovery → Core at
// the graduation threshold. playEventID, if non-empty and a dedup store
// is configured, makes repeated calls for the same logical play a no-op.
func (e *Engine) RecordPlay(songID, playEventID string) error {
	if playEventID != "" && e.dedup != nil {
		seen, err := e.dedup.SeenBefore("play:" + playEventID)
		if err != nil {
			return fmt.Errorf("rotation: dedup check: %w", err)
		}
		if seen {
			return nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[songID]
	if !ok {
		return &SongNotFoundError{SongID: songID}
	}

	now := time.Now()
	r.PlayCount++
	r.LastPlayedAt = &now

	if r.Tier == Discovery && r.PlayCount >= e.graduationThreshold {
		r.Tier = Core
	}

	if e.antiRepeatWindow > 0 {
		e.recentPlays = append(e.recentPlays, songID)
		if len(e.recentPlays) > e.antiRepeatWindow {
			e.recentPlays = e.recentPlays[len(e.recentPlays)-e.antiRepeatWindow:]
		}
	}

	return nil
}

// Promote forces a song to Core.
func (e *Engine) Promote(songID string) error {
	return e.setTier(songID, Core)
}

// Banish moves a song to Banished, terminal until Restore.
func (e *Engine) Banish(songID string) error {
	return e.setTier(songID, Banished)
}

// Restore moves a Banished song back to Discovery.
func (e *Engine) Restore(songID string) error {
	return e.setTier(songID, Discovery)
}

func (e *Engine) setTier(songID string, tier Tier) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[songID]
	if !ok {
		return &SongNotFoundError{SongID: songID}
	}
	r.Tier = tier
	return nil
}

// NextSong draws the next song id to play using rng. With probability
// coreRatio it draws uniformly from Core; otherwise from Discovery. If
// the chosen tier is empty it falls back to the other; if both are
// empty it returns ("", false). When an anti-repeat window is
// configured, songs played within that window are excluded unless doing
// so would empty the candidate set entirely.
func (e *Engine) NextSong(rng *rand.Rand) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var core, discovery []string
	for id, r := range e.records {
		switch r.Tier {
		case Core:
			core = append(core, id)
		case Discovery:
			discovery = append(discovery, id)
		}
	}

	core = e.excludeRecent(core)
	discovery = e.excludeRecent(discovery)

	primary, secondary := core, discovery
	if rng.Float64() >= e.coreRatio {
		primary, secondary = discovery, core
	}

	pool := primary
	if len(pool) == 0 {
		pool = secondary
	}
	if len(pool) == 0 {
		return "", false
	}

	return pool[rng.Intn(len(pool))], true
}

// excludeRecent drops ids present in the anti-repeat window, unless doing
// so would leave the pool empty (a station must keep playing).
func (e *Engine) excludeRecent(ids []string) []string {
	if e.antiRepeatWindow <= 0 || len(e.recentPlays) == 0 || len(ids) == 0 {
		return ids
	}

	recent := make(map[string]bool, len(e.recentPlays))
	for _, id := range e.recentPlays {
		recent[id] = true
	}

	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if !recent[id] {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return ids
	}
	return filtered
}

// rotationDocument is the on-disk shape of rotation.json.
type rotationDocument struct {
	Version int       `json:"version"`
	Records []*Record `json:"records"`
}

// LoadFrom reads rotation state from path. A missing file yields an
// empty engine so first-run startup succeeds.
func LoadFrom(path string, cfg Config) (*Engine, error) {
	e := New(cfg)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		return nil, fmt.Errorf("read rotation state: %w", err)
	}

	var doc rotationDocument
	if err := jsoncodec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rotation state: %w", err)
	}
	for _, r := range doc.Records {
		e.records[r.SongID] = r
	}
	return e, nil
}

// Save writes rotation state to path with atomic-replace semantics.
func Save(e *Engine, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := rotationDocument{Version: 1, Records: make([]*Record, 0, len(e.records))}
	for _, r := range e.records {
		doc.Records = append(doc.Records, r)
	}

	data, err := jsoncodec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode rotation state: %w", err)
	}
	return atomicfile.WriteFile(path, data, 0o644)
}
