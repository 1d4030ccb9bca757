/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes the process's Prometheus metrics and
// OpenTelemetry tracer, both of which are no-ops until explicitly
// configured — neither is required for the system to function, only
// for operators who choose to run them.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PipelineStageDuration tracks how long each pipeline stage takes per item kind.
	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalwave_pipeline_stage_duration_seconds",
		Help:    "Duration of a single pipeline stage invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "kind"})

	// PipelineItemsTotal counts items that completed a stage, by outcome.
	PipelineItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalwave_pipeline_items_total",
		Help: "Pipeline items processed, labeled by stage and outcome.",
	}, []string{"stage", "kind", "outcome"})

	// PipelineCheckpointAge reports the age in seconds of the last persisted checkpoint.
	PipelineCheckpointAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalwave_pipeline_checkpoint_age_seconds",
		Help: "Seconds since the pipeline checkpoint file was last written.",
	})

	// GatekeeperAcquisitions counts acquire attempts by tenant and outcome.
	GatekeeperAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalwave_gatekeeper_acquisitions_total",
		Help: "Gatekeeper acquire attempts, labeled by tenant and outcome.",
	}, []string{"tenant", "outcome"})

	// GatekeeperHeld reports which tenant currently holds the gatekeeper, 0 if none.
	GatekeeperHeld = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalwave_gatekeeper_held",
		Help: "1 if the named tenant currently holds the gatekeeper.",
	}, []string{"tenant"})

	// RotationDrawsTotal counts rotation selections by tier.
	RotationDrawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalwave_rotation_draws_total",
		Help: "Rotation engine draws, labeled by tier selected.",
	}, []string{"tier"})

	// StationPlaybackState reports the current player state as a gauge (1 == active).
	StationPlaybackState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalwave_station_playback_state",
		Help: "1 if the station player is currently in the named state.",
	}, []string{"state"})

	// StationQueueDepth reports the number of items waiting in the playback queue.
	StationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalwave_station_queue_depth",
		Help: "Number of items currently queued for playback.",
	})

	// StationDropouts counts unrecoverable playback failures.
	StationDropouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signalwave_station_dropouts_total",
		Help: "Playback attempts that failed and were skipped.",
	})

	// CommandsTotal counts accepted and dropped operator commands.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalwave_commands_total",
		Help: "Operator commands received, labeled by command and outcome.",
	}, []string{"command", "outcome"})
)

// Handler serves the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
