/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package statusapi exposes the Station Controller's Snapshot as JSON
// over HTTP, plus the process's Prometheus exposition, served over chi.
// It serves a single read-model snapshot and has no persistence of its
// own.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/signalwave/internal/snapshot"
	"github.com/friendsincode/signalwave/internal/telemetry"
)

// SnapshotSource is anything that can produce the controller's current
// observable state. internal/station.Controller satisfies this.
type SnapshotSource interface {
	Snapshot() snapshot.Snapshot
}

// Server is the read-only status HTTP surface: GET /status and
// GET /metrics.
type Server struct {
	addr   string
	source SnapshotSource
	logger zerolog.Logger
	srv    *http.Server
}

// New constructs a Server bound to addr (":8090", say).
func New(addr string, source SnapshotSource, logger zerolog.Logger) *Server {
	s := &Server{addr: addr, source: source, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/status", s.handleStatus)
	router.Get("/metrics", telemetry.Handler().ServeHTTP)
	router.Get("/healthz", s.handleHealthz)

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Serve runs the HTTP server until ctx is cancelled, satisfying
// thejerf/suture's Service interface.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("status API listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
