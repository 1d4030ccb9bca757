/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/signalwave/internal/snapshot"
)

type fakeSource struct {
	snap snapshot.Snapshot
}

func (f fakeSource) Snapshot() snapshot.Snapshot { return f.snap }

func TestHandleStatusReturnsSnapshotJSON(t *testing.T) {
	want := snapshot.Snapshot{State: snapshot.Playing, Persona: "nova", SongsPlayed: 3}
	s := New("127.0.0.1:0", fakeSource{snap: want}, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got snapshot.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want.Persona, got.Persona)
	assert.Equal(t, want.SongsPlayed, got.SongsPlayed)
}

func TestHandleHealthz(t *testing.T) {
	s := New("127.0.0.1:0", fakeSource{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	s := New("127.0.0.1:0", fakeSource{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
