/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package supervisor builds the thejerf/suture tree the station runtime
// runs under: the Station Controller and the operator command reader in
// one "runtime" layer, the status HTTP server in a sibling "api" layer,
// so a crash in one never takes the other down with it — a layered
// supervision tree built on thejerf/suture/v4 rather than a hand-rolled
// ticker loop.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/friendsincode/signalwave/internal/logging"
)

// TreeConfig tunes the root supervisor's restart policy.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig mirrors suture's own documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the station runtime's two-layer supervision tree: a runtime
// layer (Station Controller, command reader) and an api layer (status
// HTTP server), both under one root.
type Tree struct {
	root    *suture.Supervisor
	runtime *suture.Supervisor
	api     *suture.Supervisor
}

// NewTree constructs the tree, wiring logger through sutureslog so every
// restart/failure event lands in the same structured log sink as the
// rest of the process.
func NewTree(logger zerolog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger(logger)}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	root := suture.New("signalwave", rootSpec)
	runtime := suture.New("runtime", childSpec)
	api := suture.New("api", childSpec)
	root.Add(runtime)
	root.Add(api)

	return &Tree{root: root, runtime: runtime, api: api}
}

// AddRuntimeService adds svc to the runtime layer (Station Controller,
// command reader).
func (t *Tree) AddRuntimeService(svc suture.Service) suture.ServiceToken {
	return t.runtime.Add(svc)
}

// AddAPIService adds svc to the api layer (status HTTP server).
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the whole tree until ctx is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}
