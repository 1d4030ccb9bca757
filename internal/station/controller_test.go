/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/signalwave/internal/calendar"
	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/command"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/playback"
	"github.com/friendsincode/signalwave/internal/rotation"
	"github.com/friendsincode/signalwave/internal/weather"
)

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{}, -1, "")
	require.NoError(t, err)
	return cal
}

func newTestController(t *testing.T, cat *catalog.Catalog, store *contentstore.Store, backend playback.Backend) *Controller {
	t.Helper()
	rot := rotation.New(rotation.Config{})
	for _, song := range cat.AllSongs() {
		rot.EnsureSong(song.ID)
		require.NoError(t, rot.Promote(song.ID)) // Core, so NextSong always picks it
	}

	fixedNow := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return New(Deps{
		Player:                    playback.NewPlayer(backend),
		Queue:                     playback.NewQueue(),
		Catalog:                   cat,
		Rotation:                  rot,
		Calendar:                  testCalendar(t),
		Store:                     store,
		Weather:                   &weather.FakeProvider{},
		Commands:                  command.NewChannel(),
		Personas:                  map[string]config.PersonaSettings{"nova": {ID: "nova"}},
		Logger:                    zerolog.Nop(),
		Now:                       func() time.Time { return fixedNow },
		TickInterval:              10 * time.Millisecond,
		AnnouncementWindowSeconds: 5,
	})
}

func TestDecideSongWithNoIntroReturnsSongOnly(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Artist", Title: "Title", FileReference: "song-1.wav"})
	store := contentstore.New(t.TempDir(), nil)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	items := c.decideNext(c.now())

	require.Len(t, items, 1)
	assert.Equal(t, playback.Song, items[0].Kind)
	assert.Equal(t, "song-1", items[0].OwningTargetID)
}

func writeReadyContent(t *testing.T, store *contentstore.Store, key contentstore.Key) {
	t.Helper()
	require.NoError(t, store.WriteScript(key, "a script"))
	require.NoError(t, store.WriteAudit(key, contentstore.AuditRecord{OverallScore: 9, Passed: true}))
	require.NoError(t, store.WriteAudio(key, minimalWAV(t)))
}

// minimalWAV builds the smallest valid PCM WAV file contentstore's
// validateWAV accepts, mirroring contentstore's own test helper.
func minimalWAV(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	numSamples := 100
	dataSize := numSamples * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(8000))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}

func TestDecideSongWithPassingIntroReturnsIntroThenSong(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Artist", Title: "Title", FileReference: "song-1.wav"})
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.SongIntro, PersonaID: "nova", TargetID: "song-1"})

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentPersona = "nova"
	items := c.decideNext(c.now())

	require.Len(t, items, 2)
	assert.Equal(t, playback.Intro, items[0].Kind)
	assert.Equal(t, playback.Song, items[1].Kind)
}

func TestRunTickPlaysNextSongWhenStopped(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Artist", Title: "Title", FileReference: "song-1.wav"})
	store := contentstore.New(t.TempDir(), nil)

	c := newTestController(t, cat, store, &playback.FakeBackend{Delay: time.Hour})
	c.runTick(context.Background())

	assert.Equal(t, playback.Playing, c.player.State())
}

func TestHandlePlayerEventRecordsSongPlayOnlyForSongKind(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	c := newTestController(t, cat, store, &playback.FakeBackend{})

	c.handlePlayerEvent(playback.Event{Kind: playback.EventComplete, Item: playback.Item{Kind: playback.Song, OwningTargetID: "song-1"}})
	assert.Equal(t, 1, c.songsPlayed)

	c.handlePlayerEvent(playback.Event{Kind: playback.EventComplete, Item: playback.Item{Kind: playback.Intro, OwningTargetID: "song-1"}})
	assert.Equal(t, 1, c.songsPlayed)
}

func TestApplyCommandBanishIsNoOpWithoutCurrentSong(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	c := newTestController(t, cat, store, &playback.FakeBackend{})

	c.applyCommand(context.Background(), command.Banish)
	// No panic, no song to banish: nothing to assert beyond "it returned".
}

func TestApplyCommandFlagMarksCurrentIntro(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	key := contentstore.Key{ContentType: contentstore.SongIntro, PersonaID: "nova", TargetID: "song-1"}
	writeReadyContent(t, store, key)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentIntroKey = &key

	c.applyCommand(context.Background(), command.Flag)

	item, err := store.ReadItem(key)
	require.NoError(t, err)
	assert.Equal(t, contentstore.Flagged, item.Status)
}

func TestMaybeQueueAnnouncementsPushesTimeAnnouncementOnceOnWindowEntry(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.TimeAnnouncement, PersonaID: "nova", TargetID: "08-00"})

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC) // :00 boundary, within the 5s window

	c.maybeQueueAnnouncements(context.Background(), now)
	require.Equal(t, 1, c.queue.Length())

	// Re-entering the same marker (same slot, same day) must not duplicate.
	c.maybeQueueAnnouncements(context.Background(), now)
	assert.Equal(t, 1, c.queue.Length())
}

func TestMaybeQueueAnnouncementsSkipsOutsideWindow(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.TimeAnnouncement, PersonaID: "nova", TargetID: "08-00"})

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 15, 0, time.UTC) // past the 5s window

	c.maybeQueueAnnouncements(context.Background(), now)
	assert.Equal(t, 0, c.queue.Length())
}

func TestMaybeQueueAnnouncementsPushesWeatherOnceOnWindowEntry(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.WeatherAnnounce, PersonaID: "nova", TargetID: "morning"})

	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{calendar.Morning: 8}, -1, "")
	require.NoError(t, err)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.calendar = cal
	c.enableWeather = true
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	c.maybeQueueAnnouncements(context.Background(), now)
	require.Equal(t, 1, c.queue.Length())

	c.maybeQueueAnnouncements(context.Background(), now)
	assert.Equal(t, 1, c.queue.Length())
}

func TestMaybeQueueAnnouncementsWeatherDisabledIsNoOp(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.WeatherAnnounce, PersonaID: "nova", TargetID: "morning"})

	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{calendar.Morning: 8}, -1, "")
	require.NoError(t, err)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.calendar = cal
	c.enableWeather = false
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	c.maybeQueueAnnouncements(context.Background(), now)
	assert.Equal(t, 0, c.queue.Length())
}

func TestDecideShowPlaysIntroAndSegmentOncePerDay(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "show-1", Artist: "N/A", Title: "The Morning Show", FileReference: "show-1.wav"})
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.ShowIntro, PersonaID: "nova", TargetID: "show-1"})

	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{}, 8, "show-1")
	require.NoError(t, err)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.calendar = cal
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	items := c.decideShow(now)
	require.Len(t, items, 2)
	assert.Equal(t, playback.Intro, items[0].Kind)
	assert.Equal(t, playback.ShowSegment, items[1].Kind)
	assert.Equal(t, "show-1", items[1].OwningTargetID)

	// Already played today: the same hour must not return it again.
	assert.Nil(t, c.decideShow(now))
}

func TestDecideShowWarnsAndSkipsWhenSegmentMissingFromCatalog(t *testing.T) {
	cat := catalog.New() // no show-1 registered
	store := contentstore.New(t.TempDir(), nil)

	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{}, 8, "show-1")
	require.NoError(t, err)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.calendar = cal
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.Nil(t, c.decideShow(now))
}

func TestDecideShowOutsideWindowReturnsNil(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "show-1", Artist: "N/A", Title: "The Morning Show", FileReference: "show-1.wav"})
	store := contentstore.New(t.TempDir(), nil)

	sched, err := calendar.NewShiftSchedule([]calendar.Shift{{StartMinute: 0, Persona: "nova"}})
	require.NoError(t, err)
	cal, err := calendar.NewCalendar(sched, map[calendar.WeatherWindow]int{}, 8, "show-1")
	require.NoError(t, err)

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.calendar = cal
	c.currentPersona = "nova"
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) // not the show hour

	assert.Nil(t, c.decideShow(now))
}

func TestQueueOutroForSongCompletionIsReactiveNotBundled(t *testing.T) {
	cat := catalog.New()
	cat.AddSong(catalog.Song{ID: "song-1", Artist: "Artist", Title: "Title", FileReference: "song-1.wav"})
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.SongOutro, PersonaID: "nova", TargetID: "song-1"})

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentPersona = "nova"

	// decideSong must not bundle the outro upfront.
	items := c.decideSong(c.now())
	require.Len(t, items, 1)
	assert.Equal(t, playback.Song, items[0].Kind)
	assert.Equal(t, 0, c.queue.Length())

	// Only once the song completes does the outro get queued, at the front.
	c.queue.PushBack(playback.Item{Kind: playback.Announcement, ID: "later"})
	c.handlePlayerEvent(playback.Event{Kind: playback.EventComplete, Item: playback.Item{Kind: playback.Song, OwningTargetID: "song-1"}})

	require.Equal(t, 2, c.queue.Length())
	front, ok := c.queue.PeekFront()
	require.True(t, ok)
	assert.Equal(t, playback.Outro, front.Kind)
	assert.Equal(t, "song-1", front.OwningTargetID)
}

func TestQueueOutroForShowSegmentCompletionIsReactive(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	writeReadyContent(t, store, contentstore.Key{ContentType: contentstore.ShowOutro, PersonaID: "nova", TargetID: "show-1"})

	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.currentPersona = "nova"

	c.handlePlayerEvent(playback.Event{Kind: playback.EventComplete, Item: playback.Item{Kind: playback.ShowSegment, OwningTargetID: "show-1"}})

	require.Equal(t, 1, c.queue.Length())
	front, ok := c.queue.PeekFront()
	require.True(t, ok)
	assert.Equal(t, playback.Outro, front.Kind)
	assert.Equal(t, "show-1", front.OwningTargetID)
}

func TestSnapshotReflectsQueueDepthAndPersona(t *testing.T) {
	cat := catalog.New()
	store := contentstore.New(t.TempDir(), nil)
	c := newTestController(t, cat, store, &playback.FakeBackend{})
	c.queue.PushBack(playback.Item{Kind: playback.Song, ID: "x"})
	c.currentPersona = "nova"

	snap := c.Snapshot()
	assert.Equal(t, "nova", snap.Persona)
	assert.Equal(t, 1, snap.QueueDepth)
}
