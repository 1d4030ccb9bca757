/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/friendsincode/signalwave/internal/calendar"
	"github.com/friendsincode/signalwave/internal/catalog"
	"github.com/friendsincode/signalwave/internal/clients"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/gatekeeper"
	"github.com/friendsincode/signalwave/internal/logging"
	"github.com/friendsincode/signalwave/internal/pipeline"
	"github.com/friendsincode/signalwave/internal/rotation"
	"github.com/friendsincode/signalwave/internal/storeindex"
)

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return argError(fmt.Errorf("load environment: %w", err))
	}

	environment := cfg.Environment
	if flagVerbose {
		environment = "development"
	}
	logger = logging.Setup(environment)

	settings, err := config.LoadPipeline(cfg.PipelineConfig)
	if err != nil {
		return argError(fmt.Errorf("load pipeline config: %w", err))
	}
	contentTypes, err := resolveContentTypes()
	if err != nil {
		return argError(err)
	}
	stageFilter, err := resolveStageFilter()
	if err != nil {
		return argError(err)
	}
	settings.StageFilter = stageFilter
	if flagTest {
		settings.Mode = "Test"
	}

	stationSettings, err := config.LoadStation(cfg.StationConfig)
	if err != nil {
		return argError(fmt.Errorf("load station config: %w", err))
	}
	personas, err := resolvePersonas(stationSettings.Personas)
	if err != nil {
		return argError(err)
	}

	cat, err := catalog.LoadFrom(filepath.Join(cfg.ContentRoot, "catalog.json"))
	if err != nil {
		return fatalError(fmt.Errorf("load catalog: %w", err))
	}
	rotationEngine, err := rotation.LoadFrom(filepath.Join(cfg.ContentRoot, "rotation.json"), rotation.Config{
		GraduationThreshold: stationSettings.RotationPromoteAfterPlays,
		AntiRepeatWindow:    stationSettings.RotationAntiRepeatWindow,
	})
	if err != nil {
		return fatalError(fmt.Errorf("load rotation state: %w", err))
	}
	schedule, err := calendar.NewShiftSchedule(shiftsFrom(stationSettings))
	if err != nil {
		return fatalError(fmt.Errorf("build shift schedule: %w", err))
	}
	cal, err := calendar.NewCalendar(schedule, weatherHoursFrom(stationSettings), stationSettings.ShowHour, stationSettings.ShowID)
	if err != nil {
		return fatalError(fmt.Errorf("build calendar: %w", err))
	}

	caps := mergeCaps(settings.Caps, contentTypes, flagLimit)
	targets := pipeline.EnumerateTargets(contentTypes, personas, cat, rotationEngine, cal, caps)
	if flagRandom {
		rand.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
	}

	if flagDryRun {
		logger.Info().Int("targets", len(targets)).Str("stage_filter", settings.StageFilter).Str("mode", settings.Mode).Msg("enumerated targets (dry run)")
		return nil
	}

	snapshot := pipeline.ConfigSnapshot{
		ContentTypes: contentTypeStrings(contentTypes),
		Personas:     personaIDs(personas),
		Mode:         settings.Mode,
		StageFilter:  settings.StageFilter,
		Ordering:     pipeline.Ordering(settings.Ordering),
	}

	checkpointPath := settings.CheckpointPath
	var checkpoint *pipeline.Checkpoint
	if flagResume {
		checkpoint, err = pipeline.LoadCheckpoint(checkpointPath, snapshot)
		if err != nil {
			return fatalError(fmt.Errorf("resume: %w", err))
		}
	}
	if checkpoint == nil {
		checkpoint = pipeline.NewCheckpoint(uuid.NewString(), snapshot, checkpointPath)
	}

	index, err := storeindex.Open(filepath.Join(cfg.ContentRoot, "index.sqlite"))
	var indexer contentstore.Indexer
	if err != nil {
		logger.Warn().Err(err).Msg("content store index disabled, falling back to filesystem enumeration")
	} else {
		indexer = index
	}
	store := contentstore.New(cfg.ContentRoot, indexer)

	writer, auditor, tts := buildBackendClients(cfg, settings)

	orch := pipeline.New(store, gatekeeper.New(), writer, auditor, tts, checkpoint, *settings, personas, logger, pipeline.NoopSink{})

	if err := orch.Run(context.Background(), targets); err != nil {
		return fatalError(fmt.Errorf("pipeline run failed: %w", err))
	}

	if err := checkpoint.Save(); err != nil {
		return fatalError(fmt.Errorf("save checkpoint: %w", err))
	}
	logger.Info().Int("targets", len(targets)).Msg("pipeline run complete")
	return nil
}

func resolveContentTypes() ([]contentstore.ContentType, error) {
	if flagAllContent {
		return contentstore.AllContentTypes(), nil
	}
	var types []contentstore.ContentType
	if flagIntros {
		types = append(types, contentstore.SongIntro)
	}
	if flagOutros {
		types = append(types, contentstore.SongOutro)
	}
	if flagTime {
		types = append(types, contentstore.TimeAnnouncement)
	}
	if flagWeather {
		types = append(types, contentstore.WeatherAnnounce)
	}
	if flagShows {
		types = append(types, contentstore.ShowIntro, contentstore.ShowOutro)
	}
	if flagHandoffs {
		types = append(types, contentstore.Handoff)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("select at least one content type (--intros, --outros, --time, --weather, --shows, --handoffs, or --all-content)")
	}
	return types, nil
}

func resolveStageFilter() (string, error) {
	if flagSkipAudio {
		return "Generate,Audit", nil
	}
	switch flagStage {
	case "all", "":
		return "All", nil
	case "generate":
		return string(pipeline.GenerateStage), nil
	case "audit":
		return string(pipeline.AuditStage), nil
	case "synthesize":
		return string(pipeline.SynthesizeStage), nil
	default:
		return "", fmt.Errorf("invalid --stage %q (want generate|audit|synthesize|all)", flagStage)
	}
}

func resolvePersonas(all []config.PersonaSettings) ([]config.PersonaSettings, error) {
	if flagPersona == "" || flagPersona == "all" {
		return all, nil
	}
	for _, p := range all {
		if p.ID == flagPersona {
			return []config.PersonaSettings{p}, nil
		}
	}
	return nil, fmt.Errorf("unknown persona %q", flagPersona)
}

func mergeCaps(base map[string]int, contentTypes []contentstore.ContentType, limit int) map[string]int {
	caps := make(map[string]int, len(base))
	for k, v := range base {
		caps[k] = v
	}
	if limit > 0 {
		for _, ct := range contentTypes {
			if ct == contentstore.SongIntro || ct == contentstore.SongOutro {
				caps[string(ct)] = limit
			}
		}
	}
	return caps
}

func shiftsFrom(settings *config.StationSettings) []calendar.Shift {
	shifts := make([]calendar.Shift, 0, len(settings.Shifts))
	for _, s := range settings.Shifts {
		shifts = append(shifts, calendar.Shift{StartMinute: s.StartMinute, Persona: calendar.PersonaID(s.PersonaID)})
	}
	return shifts
}

func weatherHoursFrom(settings *config.StationSettings) map[calendar.WeatherWindow]int {
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

func contentTypeStrings(types []contentstore.ContentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func personaIDs(personas []config.PersonaSettings) []string {
	out := make([]string, len(personas))
	for i, p := range personas {
		out[i] = p.ID
	}
	return out
}

// buildBackendClients wires HTTP-backed clients against the configured
// endpoints, or deterministic fakes in --test mode (and for any backend
// whose endpoint is not configured, so a bare checkout can still run end
// to end).
func buildBackendClients(cfg *config.Config, settings *config.PipelineSettings) (clients.WriterClient, clients.AuditorClient, clients.TTSClient) {
	if flagTest {
		return clients.FakeWriter{}, clients.NewPassingFakeAuditor(), clients.FakeTTS{}
	}

	var writer clients.WriterClient = clients.FakeWriter{}
	if cfg.WriterEndpoint != "" {
		writer = clients.NewHTTPWriter(cfg.WriterEndpoint, settings.WriterRequestsPerSecond)
	}
	var auditor clients.AuditorClient = clients.NewPassingFakeAuditor()
	if cfg.AuditorEndpoint != "" {
		auditor = clients.NewHTTPAuditor(cfg.AuditorEndpoint, settings.AuditorRequestsPerSecond)
	}
	var tts clients.TTSClient = clients.FakeTTS{}
	if cfg.TTSEndpoint != "" {
		tts = clients.NewHTTPTTS(cfg.TTSEndpoint, settings.TTSRequestsPerSecond)
	}
	return writer, auditor, tts
}
