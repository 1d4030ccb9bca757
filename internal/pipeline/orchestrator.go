/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/signalwave/internal/clients"
	"github.com/friendsincode/signalwave/internal/config"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/gatekeeper"
	"github.com/friendsincode/signalwave/internal/telemetry"
)

// Orchestrator drives a batch of Targets through Generate → Audit →
// Synthesize, honoring the Gatekeeper and a PipelineCheckpoint.
type Orchestrator struct {
	Store      *contentstore.Store
	Gate       *gatekeeper.Gatekeeper
	Writer     clients.WriterClient
	Auditor    clients.AuditorClient
	TTS        clients.TTSClient
	Checkpoint *Checkpoint
	Sink       ProgressSink
	Logger     zerolog.Logger
	Settings   config.PipelineSettings
	Personas   map[string]config.PersonaSettings
}

// New constructs an Orchestrator. A nil Sink is replaced with NoopSink.
func New(store *contentstore.Store, gate *gatekeeper.Gatekeeper, writer clients.WriterClient, auditor clients.AuditorClient, tts clients.TTSClient, checkpoint *Checkpoint, settings config.PipelineSettings, personas []config.PersonaSettings, logger zerolog.Logger, sink ProgressSink) *Orchestrator {
	if sink == nil {
		sink = NoopSink{}
	}
	byID := make(map[string]config.PersonaSettings, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}
	return &Orchestrator{
		Store: store, Gate: gate, Writer: writer, Auditor: auditor, TTS: tts,
		Checkpoint: checkpoint, Sink: sink, Logger: logger, Settings: settings, Personas: byID,
	}
}

// Run dispatches to the ordering and stage filter the checkpoint's
// ConfigSnapshot names — a resume must use the same ordering it
// started with.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) error {
	switch o.Checkpoint.Config.Ordering {
	case ItemMajor:
		return o.runItemMajor(ctx, targets)
	default:
		return o.runStageMajor(ctx, targets)
	}
}

// stageEnabled reports whether stage runs under filter. filter is
// normally a single stage name or "All", but also accepts a
// comma-separated list (e.g. "Generate,Audit" for --skip-audio) so a
// run can include more than one stage without including every stage.
func stageEnabled(filter string, stage StageName) bool {
	if filter == "All" {
		return true
	}
	for _, name := range strings.Split(filter, ",") {
		if StageName(strings.TrimSpace(name)) == stage {
			return true
		}
	}
	return false
}

// runStageMajor runs Generate over every target, releases the tenant,
// then Audit, then Synthesize over passing targets — minimizing tenant
// switches. This is the default ordering.
func (o *Orchestrator) runStageMajor(ctx context.Context, targets []Target) error {
	filter := o.Checkpoint.Config.StageFilter

	if stageEnabled(filter, GenerateStage) {
		if err := o.runStage(ctx, GenerateStage, targets, o.generateOne); err != nil {
			return err
		}
	}
	if stageEnabled(filter, AuditStage) {
		if err := o.runStage(ctx, AuditStage, targets, o.auditOneWithRegeneration); err != nil {
			return err
		}
	}
	if stageEnabled(filter, SynthesizeStage) {
		passing := o.filterAuditedPass(targets)
		if err := o.runStage(ctx, SynthesizeStage, passing, o.synthesizeOne); err != nil {
			return err
		}
	}
	return nil
}

// runItemMajor drives each target through every enabled stage in turn
// before moving to the next target, useful for Test mode and
// interactive use.
func (o *Orchestrator) runItemMajor(ctx context.Context, targets []Target) error {
	filter := o.Checkpoint.Config.StageFilter
	concurrency := o.Settings.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, target := range targets {
		i, target := i, target
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			scope := int64(i)

			if stageEnabled(filter, GenerateStage) {
				if err := o.generateOne(groupCtx, scope, target); err != nil {
					return err
				}
			}
			if stageEnabled(filter, AuditStage) {
				if err := o.auditOneWithRegeneration(groupCtx, scope, target); err != nil {
					return err
				}
			}
			if stageEnabled(filter, SynthesizeStage) {
				item, err := o.Store.ReadItem(target.Key)
				if err != nil {
					return err
				}
				if item.Status == contentstore.AuditedPass {
					if err := o.synthesizeOne(groupCtx, scope, target); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	return group.Wait()
}

// stageFn processes one target at one stage.
type stageFn func(ctx context.Context, scope int64, target Target) error

// runStage fans targets out across o.Settings.Concurrency workers,
// finishing every in-flight item before returning on cancellation, so
// no in-flight item is left half-written.
func (o *Orchestrator) runStage(ctx context.Context, stage StageName, targets []Target, fn stageFn) error {
	o.Checkpoint.SetStageStatus(stage, InProgress)

	concurrency := o.Settings.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(context.Background())
	group.SetLimit(concurrency)

	total := len(targets)
	var firstErr error

	for i, target := range targets {
		i, target := i, target

		// Stop launching new work once the caller's context is done, but
		// let everything already in flight finish cleanly.
		if ctx.Err() != nil {
			break
		}

		group.Go(func() error {
			start := time.Now()
			err := fn(groupCtx, int64(i), target)
			telemetry.PipelineStageDuration.WithLabelValues(string(stage), string(target.Key.ContentType)).Observe(time.Since(start).Seconds())

			outcome := "passed"
			if err != nil {
				outcome = "failed"
				o.Logger.Warn().Err(err).Str("stage", string(stage)).Str("key", target.Key.String()).Msg("pipeline stage item failed")
			}
			telemetry.PipelineItemsTotal.WithLabelValues(string(stage), string(target.Key.ContentType), outcome).Inc()
			o.Sink.Report(ProgressEvent{Stage: stage, Key: target.Key.String(), Outcome: outcome, Processed: i + 1, Total: total})

			var writeErr *CheckpointWriteError
			if err != nil && errors.As(err, &writeErr) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		firstErr = err
	}

	if firstErr != nil {
		o.Checkpoint.SetStageStatus(stage, Failed)
		return firstErr
	}

	status := Completed
	if ctx.Err() != nil {
		status = InProgress
	}
	o.Checkpoint.SetStageStatus(stage, status)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (o *Orchestrator) filterAuditedPass(targets []Target) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		item, err := o.Store.ReadItem(t.Key)
		if err != nil {
			o.Logger.Warn().Err(err).Str("key", t.Key.String()).Msg("failed to read item status before synthesize")
			continue
		}
		if item.Status == contentstore.AuditedPass {
			out = append(out, t)
		}
	}
	return out
}

func (o *Orchestrator) persona(personaID string) config.PersonaSettings {
	if p, ok := o.Personas[personaID]; ok {
		return p
	}
	return config.PersonaSettings{ID: personaID}
}

// generateOne runs the Generate stage for one target.
func (o *Orchestrator) generateOne(ctx context.Context, scope int64, target Target) error {
	key := target.Key

	if o.Checkpoint.IsKeyComplete(GenerateStage, key) {
		if item, err := o.Store.ReadItem(key); err == nil && item.Status != contentstore.Absent {
			o.Checkpoint.MarkKeyOutcome(GenerateStage, key, "skipped", true)
			return nil
		}
	}

	brief := BuildBrief(key, o.persona(key.PersonaID), target.Context)

	var lastErr error
	for attempt := 0; attempt <= o.retryCap(); attempt++ {
		raw, err := o.invokeWriter(ctx, scope, brief)
		if err != nil {
			lastErr = err
			if !retryable(err) {
				break
			}
			continue
		}

		script := Sanitize(raw)
		if IsForbiddenEmpty(script) {
			lastErr = fmt.Errorf("writer response for %s sanitized to empty or forbidden content", key)
			continue
		}

		if err := o.Store.WriteScript(key, script); err != nil {
			return &CheckpointWriteError{Err: err}
		}
		o.Checkpoint.MarkKeyOutcome(GenerateStage, key, "passed", true)
		if err := o.Checkpoint.Save(); err != nil {
			return err
		}
		return nil
	}

	o.Checkpoint.MarkKeyOutcome(GenerateStage, key, "failed", false)
	if err := o.Checkpoint.Save(); err != nil {
		return err
	}
	return fmt.Errorf("generate %s: %w", key, lastErr)
}

func (o *Orchestrator) invokeWriter(ctx context.Context, scope int64, brief clients.Brief) (string, error) {
	var result string
	err := o.Gate.WithTenant(scope, gatekeeper.Writer, func() error {
		raw, err := o.Writer.Write(ctx, brief)
		if err != nil {
			return err
		}
		result = raw
		return nil
	})
	return result, err
}

// auditOneWithRegeneration runs Audit, and on failure re-enters Generate
// for the same key up to RegenerationCap times.
func (o *Orchestrator) auditOneWithRegeneration(ctx context.Context, scope int64, target Target) error {
	key := target.Key

	for regenerations := 0; ; regenerations++ {
		passed, err := o.auditOnce(ctx, scope, key)
		if err != nil {
			return err
		}
		if passed {
			return nil
		}
		if regenerations >= o.regenerationCap() {
			return nil // left as AuditedFail, excluded from Synthesize
		}
		// A failed Audit must produce a fresh script on the next attempt,
		// not re-audit the one that just failed: clear the Generate-stage
		// completion so generateOne's short-circuit doesn't skip it.
		o.Checkpoint.ClearKeyComplete(GenerateStage, key)
		if err := o.generateOne(ctx, scope, target); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) auditOnce(ctx context.Context, scope int64, key contentstore.Key) (passed bool, err error) {
	item, err := o.Store.ReadItem(key)
	if err != nil {
		return false, err
	}
	if item.Status == contentstore.AuditedPass {
		return true, nil
	}
	if item.Status != contentstore.ScriptOnly && item.Status != contentstore.AuditedFail {
		// No script to audit; nothing to do here (Generate should have run first).
		return false, nil
	}

	var lastErr error
	for attempt := 0; attempt <= o.retryCap(); attempt++ {
		var record clients.AuditRecord
		var callErr error
		callErr = o.Gate.WithTenant(scope, gatekeeper.Auditor, func() error {
			record, callErr = o.Auditor.Audit(ctx, item.ScriptText, key.PersonaID, string(key.ContentType))
			return callErr
		})
		if callErr != nil {
			lastErr = callErr
			if !retryable(callErr) {
				break
			}
			continue
		}

		threshold := o.Settings.AuditThreshold
		rec := contentstore.AuditRecord{
			OverallScore:       record.OverallScore,
			PerCriterionScores: record.PerCriterionScores,
			Passed:             record.OverallScore >= threshold,
			Issues:             record.Issues,
			Notes:              record.Notes,
			RawResponse:        record.RawResponse,
		}

		if err := o.Store.WriteAudit(key, rec); err != nil {
			return false, &CheckpointWriteError{Err: err}
		}
		o.Checkpoint.MarkKeyOutcome(AuditStage, key, outcomeFor(rec.Passed), true)
		if err := o.Checkpoint.Save(); err != nil {
			return false, err
		}
		return rec.Passed, nil
	}

	o.Checkpoint.MarkKeyOutcome(AuditStage, key, "failed", false)
	if err := o.Checkpoint.Save(); err != nil {
		return false, err
	}
	return false, nil
}

func outcomeFor(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// synthesizeOne runs the Synthesize stage for one target.
func (o *Orchestrator) synthesizeOne(ctx context.Context, scope int64, target Target) error {
	key := target.Key

	if o.Checkpoint.IsKeyComplete(SynthesizeStage, key) {
		if item, err := o.Store.ReadItem(key); err == nil && item.Status == contentstore.AudioReady {
			o.Checkpoint.MarkKeyOutcome(SynthesizeStage, key, "skipped", true)
			return nil
		}
	}

	item, err := o.Store.ReadItem(key)
	if err != nil {
		return err
	}
	if item.Status != contentstore.AuditedPass {
		o.Checkpoint.MarkKeyOutcome(SynthesizeStage, key, "skipped", false)
		return o.Checkpoint.Save()
	}

	persona := o.persona(key.PersonaID)

	var lastErr error
	for attempt := 0; attempt <= o.retryCap(); attempt++ {
		var audio []byte
		callErr := o.Gate.WithTenant(scope, gatekeeper.Synthesizer, func() error {
			var synthErr error
			audio, synthErr = o.TTS.Synthesize(ctx, item.ScriptText, persona.VoiceReference)
			return synthErr
		})
		if callErr != nil {
			lastErr = callErr
			if !retryable(callErr) {
				break
			}
			continue
		}

		if err := o.Store.WriteAudio(key, audio); err != nil {
			return &CheckpointWriteError{Err: err}
		}
		o.Checkpoint.MarkKeyOutcome(SynthesizeStage, key, "passed", true)
		return o.Checkpoint.Save()
	}

	o.Checkpoint.MarkKeyOutcome(SynthesizeStage, key, "failed", false)
	if err := o.Checkpoint.Save(); err != nil {
		return err
	}
	return fmt.Errorf("synthesize %s: %w", key, lastErr)
}

func (o *Orchestrator) retryCap() int {
	if o.Settings.RetryCap <= 0 {
		return 0
	}
	return o.Settings.RetryCap
}

func (o *Orchestrator) regenerationCap() int {
	if o.Settings.RegenerationCap <= 0 {
		return 0
	}
	return o.Settings.RegenerationCap
}

// retryable reports whether err warrants another attempt: Transient
// failures and a circuit-open backend do (the breaker may have closed by
// the next attempt); Persistent, BadOutput, and Malformed do not.
func retryable(err error) bool {
	var backendErr *clients.BackendError
	if !errors.As(err, &backendErr) {
		return false
	}
	switch backendErr.Kind {
	case clients.Transient, clients.CircuitOpen:
		return true
	default:
		return false
	}
}
