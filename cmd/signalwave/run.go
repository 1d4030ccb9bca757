/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/signalwave/internal/calendar"
	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/command"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/logging"
	"github.com/friendsincode/signalwave/internal/playback"
	"github.com/friendsincode/signalwave/internal/rotation"
	"github.com/friendsincode/signalwave/internal/station"
	"github.com/friendsincode/signalwave/internal/statusapi"
	"github.com/friendsincode/signalwave/internal/storeindex"
	"github.com/friendsincode/signalwave/internal/supervisor"
	"github.com/friendsincode/signalwave/internal/weather"
)

const rotationStatePath = "rotation.json"
const catalogStatePath = "catalog.json"

func runStation(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return startupError(fmt.Errorf("load environment: %w", err))
	}

	environment := cfg.Environment
	if flagDebug {
		environment = "development"
	}
	logger = logging.Setup(environment)
	for _, warning := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warning)
	}

	stationSettings, err := config.LoadStation(cfg.StationConfig)
	if err != nil {
		return startupError(fmt.Errorf("load station config: %w", err))
	}

	if flagDryRun {
		logger.Info().
			Str("music_root", cfg.MusicRoot).
			Str("content_root", cfg.ContentRoot).
			Int("personas", len(stationSettings.Personas)).
			Int("shifts", len(stationSettings.Shifts)).
			Int("show_hour", stationSettings.ShowHour).
			Bool("weather_enabled", !flagNoWeather).
			Bool("shows_enabled", !flagNoShows).
			Msg("resolved configuration (dry run)")
		return nil
	}

	deps, err := buildStationDeps(cfg, stationSettings)
	if err != nil {
		return startupError(err)
	}

	ctrl := station.New(deps.Deps)

	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddRuntimeService(ctrl)
	tree.AddRuntimeService(&command.ReaderService{
		Channel: deps.Commands,
		Reader:  os.Stdin,
		Logger:  logger,
	})
	tree.AddAPIService(statusapi.New(cfg.StatusBind, ctrl, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchCatalogChanges(ctx, cfg, deps.catalog)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return runtimeError(err)
	}

	if err := catalog.Save(deps.catalog, filepath.Join(cfg.ContentRoot, catalogStatePath)); err != nil {
		logger.Error().Err(err).Msg("save catalog on shutdown")
	}
	if err := rotation.Save(deps.rotation, filepath.Join(cfg.ContentRoot, rotationStatePath)); err != nil {
		logger.Error().Err(err).Msg("save rotation state on shutdown")
	}

	logger.Info().Msg("signalwave stopped")
	return nil
}

// stationDeps bundles the constructed collaborators alongside the raw
// catalog/rotation handles the shutdown path needs to persist.
type stationDeps struct {
	station.Deps
	catalog  *catalog.Catalog
	rotation *rotation.Engine
}

func buildStationDeps(cfg *config.Config, settings *config.StationSettings) (stationDeps, error) {
	cat, err := catalog.LoadFrom(filepath.Join(cfg.ContentRoot, catalogStatePath))
	if err != nil {
		return stationDeps{}, fmt.Errorf("load catalog: %w", err)
	}
	scanResult, err := catalog.ScanDirectory(cfg.MusicRoot, catalog.DefaultMetadataReader{})
	if err != nil {
		return stationDeps{}, fmt.Errorf("scan music library: %w", err)
	}
	cat.Merge(scanResult.Accepted)
	for _, failure := range scanResult.Failed {
		logger.Warn().Str("path", failure.Path).Str("reason", failure.Reason).Msg("skipped unreadable music file")
	}

	rotationEngine, err := rotation.LoadFrom(filepath.Join(cfg.ContentRoot, rotationStatePath), rotation.Config{
		GraduationThreshold: settings.RotationPromoteAfterPlays,
		AntiRepeatWindow:    settings.RotationAntiRepeatWindow,
	})
	if err != nil {
		return stationDeps{}, fmt.Errorf("load rotation state: %w", err)
	}
	for _, song := range cat.AllSongs() {
		rotationEngine.EnsureSong(song.ID)
	}

	schedule, err := buildShiftSchedule(settings)
	if err != nil {
		return stationDeps{}, fmt.Errorf("build shift schedule: %w", err)
	}
	cal, err := calendar.NewCalendar(schedule, buildWeatherHours(settings), settings.ShowHour, settings.ShowID)
	if err != nil {
		return stationDeps{}, fmt.Errorf("build calendar: %w", err)
	}

	index, err := storeindex.Open(filepath.Join(cfg.ContentRoot, "index.sqlite"))
	if err != nil {
		logger.Warn().Err(err).Msg("content store index disabled, falling back to filesystem enumeration")
		index = nil
	}
	var indexer contentstore.Indexer
	if index != nil {
		indexer = index
	}
	store := contentstore.New(cfg.ContentRoot, indexer)

	var backend playback.Backend = playback.DefaultProcessBackend(logger)
	player := playback.NewPlayer(backend)

	personas := make(map[string]config.PersonaSettings, len(settings.Personas))
	for _, p := range settings.Personas {
		personas[p.ID] = p
	}

	return stationDeps{
		Deps: station.Deps{
			Player:                    player,
			Queue:                     playback.NewQueue(),
			Catalog:                   cat,
			Rotation:                  rotationEngine,
			Calendar:                  cal,
			Store:                     store,
			Weather:                   weather.NewCachedProvider(weather.FakeProvider{}, 15*time.Minute),
			Commands:                  command.NewChannel(),
			Personas:                  personas,
			Logger:                    logger,
			AnnouncementWindowSeconds: settings.AnnouncementWindowSeconds,
			EnableWeather:             !flagNoWeather,
			EnableShows:               !flagNoShows,
		},
		catalog:  cat,
		rotation: rotationEngine,
	}, nil
}

func buildShiftSchedule(settings *config.StationSettings) (*calendar.ShiftSchedule, error) {
	shifts := make([]calendar.Shift, 0, len(settings.Shifts))
	for _, s := range settings.Shifts {
		shifts = append(shifts, calendar.Shift{StartMinute: s.StartMinute, Persona: calendar.PersonaID(s.PersonaID)})
	}
	return calendar.NewShiftSchedule(shifts)
}

func buildWeatherHours(settings *config.StationSettings) map[calendar.WeatherWindow]int {
	hours := make(map[calendar.WeatherWindow]int, len(settings.WeatherWindows))
	for _, w := range settings.WeatherWindows {
		switch w.Window {
		case "morning":
			hours[calendar.Morning] = w.Hour
		case "midday":
			hours[calendar.Midday] = w.Hour
		case "evening":
			hours[calendar.Evening] = w.Hour
		}
	}
	return hours
}

// watchCatalogChanges keeps the catalog current as files are added to the
// music library while the station runs. A rescan failure only costs a
// missed update, never a crash, so this runs outside the supervision tree.
func watchCatalogChanges(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) {
	if !cfg.CatalogWatch {
		return
	}
	events := make(chan catalog.RescanEvent, 1)
	go catalog.Watch(ctx, cfg.MusicRoot, cat, catalog.DefaultMetadataReader{}, events, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Err != nil {
				logger.Warn().Err(ev.Err).Msg("catalog rescan failed")
				continue
			}
			if ev.Added > 0 {
				logger.Info().Int("added", ev.Added).Msg("catalog rescan found new songs")
			}
		}
	}
}
