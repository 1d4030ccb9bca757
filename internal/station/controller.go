/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package station runs the cooperative decide/play/announce/drain loop:
// on each tick it asks the Rotation Engine for the next song, the
// Content Store for its pre-rendered intro/outro, pushes announcements
// at window boundaries, and drains operator commands non-blockingly —
// the way a tick-driven director loop drives playback against a
// schedule, generalized here to the Catalog/Rotation/ContentStore/Queue
// combination this system names.
package station

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/signalwave/internal/calendar"
	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/command"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/playback"
	"github.com/friendsincode/signalwave/internal/rotation"
	"github.com/friendsincode/signalwave/internal/snapshot"
	"github.com/friendsincode/signalwave/internal/telemetry"
	"github.com/friendsincode/signalwave/internal/weather"
)

const defaultTickInterval = 200 * time.Millisecond

// Deps bundles the Controller's collaborators. All fields are required
// except Now and TickInterval, which default to time.Now and 200ms.
type Deps struct {
	Player       *playback.Player
	Queue        *playback.Queue
	Catalog      *catalog.Catalog
	Rotation     *rotation.Engine
	Calendar     *calendar.Calendar
	Store        *contentstore.Store
	Weather      weather.Provider
	Commands     *command.Channel
	Personas     map[string]config.PersonaSettings
	Logger       zerolog.Logger
	Now          func() time.Time
	TickInterval time.Duration

	// AnnouncementWindowSeconds absorbs scheduler tick jitter around a
	// :00/:30 boundary.
	AnnouncementWindowSeconds int

	// EnableWeather, EnableShows gate their respective windows off
	// entirely (operator CLI --no-weather / --no-shows).
	EnableWeather bool
	EnableShows   bool
}

// Controller drives the station's decide/play/announce/drain loop.
type Controller struct {
	player        *playback.Player
	queue         *playback.Queue
	catalog       *catalog.Catalog
	rotation      *rotation.Engine
	calendar      *calendar.Calendar
	store         *contentstore.Store
	weather       weather.Provider
	commands      *command.Channel
	personas      map[string]config.PersonaSettings
	logger        zerolog.Logger
	now           func() time.Time
	tick          time.Duration
	announce      int
	enableWeather bool
	enableShows   bool
	rng           *rand.Rand

	mu               sync.Mutex
	startedAt        time.Time
	currentPersona   calendar.PersonaID
	currentSongID    string
	currentIntroKey  *contentstore.Key
	currentLabel     snapshot.ItemLabel
	nextLabel        snapshot.ItemLabel
	songsPlayed      int
	errorCount       int
	lastShowDate     string
	lastWeatherSeen  string
	lastAnnounceSeen string
}

// New constructs a Controller from deps, applying defaults.
func New(deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultTickInterval
	}
	return &Controller{
		player:        deps.Player,
		queue:         deps.Queue,
		catalog:       deps.Catalog,
		rotation:      deps.Rotation,
		calendar:      deps.Calendar,
		store:         deps.Store,
		weather:       deps.Weather,
		commands:      deps.Commands,
		personas:      deps.Personas,
		logger:        deps.Logger,
		now:           deps.Now,
		tick:          deps.TickInterval,
		announce:      deps.AnnouncementWindowSeconds,
		enableWeather: deps.EnableWeather,
		enableShows:   deps.EnableShows,
		rng:           rand.New(rand.NewSource(deps.Now().UnixNano())),
		nextLabel:     snapshot.ItemLabel{Label: snapshot.UnknownLabel},
	}
}

// Serve runs the controller loop until ctx is cancelled, satisfying
// thejerf/suture's Service interface.
func (c *Controller) Serve(ctx context.Context) error {
	c.mu.Lock()
	c.startedAt = c.now()
	c.mu.Unlock()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	c.logger.Info().Msg("station controller started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("station controller stopped")
			return ctx.Err()
		case ev := <-c.player.Events():
			c.handlePlayerEvent(ev)
		case <-ticker.C:
			c.runTick(ctx)
		}
	}
}

func (c *Controller) runTick(ctx context.Context) {
	now := c.now()
	persona := c.calendar.PersonaOnAirAt(now)
	if _, known := c.personas[string(persona)]; !known {
		c.logger.Warn().Str("persona", string(persona)).Msg("on-air persona has no configured settings")
	}
	c.mu.Lock()
	c.currentPersona = persona
	c.mu.Unlock()

	if c.player.State() == playback.Stopped {
		items := c.decideNext(now)
		for _, item := range items {
			c.queue.PushBack(item)
		}
		c.playFront(ctx)
	}

	c.maybeQueueAnnouncements(ctx, now)
	c.drainCommands(ctx)
	c.refreshLabels()
}

// playFront pops the queue's front item (if any) and plays it, only when
// the player is idle — never interrupting an in-flight item, so at most
// one item is Playing at any instant.
func (c *Controller) playFront(ctx context.Context) {
	if c.player.State() != playback.Stopped {
		return
	}
	item, ok := c.queue.PopFront()
	if !ok {
		return
	}
	if item.Kind == playback.Intro {
		key := contentstore.Key{ContentType: contentstore.SongIntro, PersonaID: string(c.currentPersona), TargetID: item.OwningTargetID}
		c.mu.Lock()
		c.currentIntroKey = &key
		c.mu.Unlock()
	}

	// currentSongID tracks the song the player is presently on, so Banish/
	// Promote/Flag commands issued with no song underway are no-ops: a
	// Banish during an intro-only moment records nothing. An Outro of
	// the song that just finished keeps the id live; anything else
	// (Intro, Announcement, ShowSegment) clears it.
	c.mu.Lock()
	switch {
	case item.Kind == playback.Song:
		c.currentSongID = item.OwningTargetID
	case item.Kind == playback.Outro && item.OwningTargetID == c.currentSongID:
		// keep
	default:
		c.currentSongID = ""
	}
	c.mu.Unlock()
	if err := c.player.Play(ctx, item); err != nil {
		c.logger.Warn().Err(err).Str("item", item.ID).Msg("play failed")
		c.mu.Lock()
		c.errorCount++
		c.mu.Unlock()
		telemetry.StationDropouts.Inc()
	}
}

func (c *Controller) handlePlayerEvent(ev playback.Event) {
	switch ev.Kind {
	case playback.EventComplete:
		if ev.Item.Kind == playback.Song {
			c.recordSongPlay(ev.Item.OwningTargetID)
			c.queueOutroFor(contentstore.SongOutro, ev.Item.OwningTargetID)
		}
		if ev.Item.Kind == playback.ShowSegment {
			c.queueOutroFor(contentstore.ShowOutro, ev.Item.OwningTargetID)
		}
		if ev.Item.Kind == playback.Intro {
			c.mu.Lock()
			c.currentIntroKey = nil
			c.mu.Unlock()
		}
	case playback.EventError:
		c.mu.Lock()
		c.errorCount++
		c.mu.Unlock()
		telemetry.StationDropouts.Inc()
		c.logger.Warn().Err(ev.Err).Str("item", ev.Item.ID).Msg("playback error")
		if ev.Item.Kind == playback.Intro {
			c.mu.Lock()
			c.currentIntroKey = nil
			c.mu.Unlock()
		}
	}
}

// recordSongPlay updates rotation counters exactly once per song play, on
// completion of the Song kind, never the intro.
func (c *Controller) recordSongPlay(songID string) {
	if songID == "" || c.rotation == nil {
		return
	}
	if err := c.rotation.RecordPlay(songID, uuid.NewString()); err != nil {
		c.logger.Warn().Err(err).Str("song", songID).Msg("record play failed")
	}
	c.mu.Lock()
	c.songsPlayed++
	c.mu.Unlock()
}

// decideNext picks what plays next: the on-air show's window takes
// priority when shows are enabled, otherwise the rotation's next song.
func (c *Controller) decideNext(now time.Time) []playback.Item {
	if c.enableShows {
		if items := c.decideShow(now); items != nil {
			return items
		}
	}
	return c.decideSong(now)
}

func (c *Controller) decideShow(now time.Time) []playback.Item {
	showID, open := c.calendar.ShowWindowAt(now)
	if !open {
		return nil
	}
	today := now.Format("2006-01-02")
	c.mu.Lock()
	alreadyPlayed := c.lastShowDate == today
	c.mu.Unlock()
	if alreadyPlayed {
		return nil
	}

	persona := string(c.currentPersona)
	items := []playback.Item{}
	if intro, ok := c.readyContent(contentstore.ShowIntro, persona, showID); ok {
		items = append(items, playback.Item{Kind: playback.Intro, ID: intro.String(), OwningTargetID: showID, FilePath: intro.path})
	}
	if segment, ok := c.catalog.GetSong(showID); ok {
		items = append(items, playback.Item{Kind: playback.ShowSegment, ID: showID, OwningTargetID: showID, FilePath: segment.FileReference})
	} else {
		c.logger.Warn().Str("show", showID).Msg("show window open but no show segment registered in catalog")
		return nil
	}
	// The outro, if any, is decided reactively once the segment completes
	// (handlePlayerEvent), not bundled in here — mirroring how decideSong
	// handles its own optional outro.

	c.mu.Lock()
	c.lastShowDate = today
	c.mu.Unlock()
	return items
}

func (c *Controller) decideSong(now time.Time) []playback.Item {
	if c.rotation == nil {
		return nil
	}
	songID, ok := c.rotation.NextSong(c.rng)
	if !ok {
		return nil
	}
	song, ok := c.catalog.GetSong(songID)
	if !ok {
		c.logger.Warn().Str("song", songID).Msg("rotation selected a song missing from the catalog")
		return nil
	}

	persona := string(c.currentPersona)
	var items []playback.Item
	if intro, ok := c.readyContent(contentstore.SongIntro, persona, songID); ok {
		items = append(items, playback.Item{Kind: playback.Intro, ID: intro.String(), OwningTargetID: songID, FilePath: intro.path})
	}
	items = append(items, playback.Item{Kind: playback.Song, ID: songID, OwningTargetID: songID, FilePath: song.FileReference})
	// The outro, if any, is decided reactively once the song completes
	// (handlePlayerEvent), the same way a show segment's outro is.
	return items
}

// queueOutroFor pushes a ready outro for targetID to the very front of the
// queue, so it plays immediately after the item that just finished, ahead
// of anything else already queued (an announcement, say).
func (c *Controller) queueOutroFor(ct contentstore.ContentType, targetID string) {
	persona := string(c.currentPersona)
	if outro, ok := c.readyContent(ct, persona, targetID); ok {
		c.queue.PushFront(playback.Item{Kind: playback.Outro, ID: outro.String(), OwningTargetID: targetID, FilePath: outro.path})
	}
}

type readyKey struct {
	contentstore.Key
	path string
}

// readyContent reports whether a passing-audit (AudioReady) content item
// exists for (ct, persona, targetID).
func (c *Controller) readyContent(ct contentstore.ContentType, persona, targetID string) (readyKey, bool) {
	key := contentstore.Key{ContentType: ct, PersonaID: persona, TargetID: targetID}
	item, err := c.store.ReadItem(key)
	if err != nil || item.Status != contentstore.AudioReady {
		return readyKey{}, false
	}
	return readyKey{Key: key, path: item.AudioFile}, true
}

// maybeQueueAnnouncements pushes a pre-rendered announcement to the front
// of the queue the first tick that crosses into its window, never again
// until the window is re-entered.
func (c *Controller) maybeQueueAnnouncements(ctx context.Context, now time.Time) {
	persona := string(c.currentPersona)

	if calendar.IsAnnouncementMoment(now, c.announce) {
		slot := fmt.Sprintf("%02d-%02d", now.Hour(), now.Minute())
		marker := slot + "@" + now.Format("2006-01-02")
		c.mu.Lock()
		already := c.lastAnnounceSeen == marker
		c.mu.Unlock()
		if !already {
			if content, ok := c.readyContent(contentstore.TimeAnnouncement, persona, slot); ok {
				c.queue.PushFront(playback.Item{Kind: playback.Announcement, ID: content.String(), FilePath: content.path})
			}
			c.mu.Lock()
			c.lastAnnounceSeen = marker
			c.mu.Unlock()
		}
	}

	if c.enableWeather {
		if window := c.calendar.WeatherWindowAt(now); window != calendar.NoWeatherWindow {
			marker := window.String() + "@" + now.Format("2006-01-02")
			c.mu.Lock()
			already := c.lastWeatherSeen == marker
			c.mu.Unlock()
			if !already {
				if snap, err := c.weather.Fetch(ctx); err != nil {
					c.logger.Warn().Err(err).Msg("weather fetch failed, playing pre-rendered announcement anyway")
				} else {
					c.logger.Debug().Str("window", window.String()).Str("summary", snap.Summary).Msg("weather window entered")
				}
				if content, ok := c.readyContent(contentstore.WeatherAnnounce, persona, window.String()); ok {
					c.queue.PushFront(playback.Item{Kind: playback.Announcement, ID: content.String(), FilePath: content.path})
				}
				c.mu.Lock()
				c.lastWeatherSeen = marker
				c.mu.Unlock()
			}
		}
	}
}

// drainCommands applies every pending operator command without blocking.
func (c *Controller) drainCommands(ctx context.Context) {
	if c.commands == nil {
		return
	}
	for {
		select {
		case cmd := <-c.commands.Commands():
			c.applyCommand(ctx, cmd)
		default:
			return
		}
	}
}

func (c *Controller) applyCommand(ctx context.Context, cmd command.Command) {
	c.mu.Lock()
	songID := c.currentSongID
	introKey := c.currentIntroKey
	c.mu.Unlock()

	switch cmd {
	case command.Pause:
		if c.player.State() == playback.Playing {
			_ = c.player.Pause()
		} else if c.player.State() == playback.Paused {
			_ = c.player.Resume()
		}
	case command.Skip:
		_ = c.player.Stop()
	case command.Banish:
		if songID == "" {
			return
		}
		if err := c.rotation.Banish(songID); err != nil {
			c.logger.Warn().Err(err).Str("song", songID).Msg("banish failed")
		}
		_ = c.player.Stop()
	case command.Promote:
		if songID == "" {
			return
		}
		if err := c.rotation.Promote(songID); err != nil {
			c.logger.Warn().Err(err).Str("song", songID).Msg("promote failed")
		}
	case command.Flag:
		if introKey == nil {
			return
		}
		if err := c.store.MarkFlagged(*introKey); err != nil {
			c.logger.Warn().Err(err).Str("key", introKey.String()).Msg("flag failed")
		}
	case command.Quit:
		// Handled by the caller's supervision tree; Serve returns on
		// ctx cancellation, which the operator CLI triggers on Quit.
	}
}

func (c *Controller) refreshLabels() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentLabel = c.labelForCurrentLocked()
	if item, ok := c.queue.PeekFront(); ok {
		c.nextLabel = labelFor(item, c.catalog)
	} else {
		c.nextLabel = snapshot.ItemLabel{Label: snapshot.UnknownLabel}
	}

	c.reportGaugesLocked()
}

// reportGaugesLocked updates the Prometheus gauges that mirror the
// controller's observable state. Called with c.mu held.
func (c *Controller) reportGaugesLocked() {
	for _, s := range []playback.State{playback.Stopped, playback.Playing, playback.Paused, playback.Completed} {
		value := 0.0
		if c.player.State() == s {
			value = 1
		}
		telemetry.StationPlaybackState.WithLabelValues(string(s)).Set(value)
	}
	telemetry.StationQueueDepth.Set(float64(c.queue.Length()))
}

func (c *Controller) labelForCurrentLocked() snapshot.ItemLabel {
	if c.currentSongID == "" {
		return snapshot.ItemLabel{}
	}
	if song, ok := c.catalog.GetSong(c.currentSongID); ok {
		return snapshot.ItemLabel{Kind: string(playback.Song), Label: song.Artist + " — " + song.Title}
	}
	return snapshot.ItemLabel{}
}

func labelFor(item playback.Item, cat *catalog.Catalog) snapshot.ItemLabel {
	if item.Kind == playback.Song {
		if song, ok := cat.GetSong(item.OwningTargetID); ok {
			return snapshot.ItemLabel{Kind: string(item.Kind), Label: song.Artist + " — " + song.Title}
		}
	}
	return snapshot.ItemLabel{Kind: string(item.Kind), Label: item.ID}
}

// Snapshot produces a value-typed, side-effect-free read of the
// controller's observable state.
func (c *Controller) Snapshot() snapshot.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return snapshot.Snapshot{
		State:       snapshot.PlayerState(c.player.State()),
		Persona:     string(c.currentPersona),
		CurrentItem: c.currentLabel,
		NextItem:    c.nextLabel,
		Uptime:      c.now().Sub(c.startedAt),
		SongsPlayed: c.songsPlayed,
		ErrorCount:  c.errorCount,
		QueueDepth:  c.queue.Length(),
		TakenAt:     c.now(),
	}
}
