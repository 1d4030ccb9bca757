/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"os"
	"sync"
	"time"
)

// FakeBackend completes every Launch after a fixed synthetic delay,
// mirroring the real ffplay duration without spawning a process. Used by
// tests.
type FakeBackend struct {
	// Delay is how long a launched item "plays" before completing.
	// Zero completes on the next scheduler tick.
	Delay time.Duration

	// FailPaths, if set, causes Launch to return an error for any file
	// path present in the set, simulating a missing/unreadable file.
	FailPaths map[string]bool

	// RequireExists mirrors ProcessBackend's stat-before-spawn behavior
	// when true.
	RequireExists bool

	mu      sync.Mutex
	handles []*fakeHandle
}

func (b *FakeBackend) Launch(ctx context.Context, filePath string) (Handle, error) {
	if b.FailPaths != nil && b.FailPaths[filePath] {
		return nil, os.ErrNotExist
	}
	if b.RequireExists {
		if _, err := os.Stat(filePath); err != nil {
			return nil, err
		}
	}

	h := &fakeHandle{done: make(chan error, 1)}
	delay := b.Delay

	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				h.done <- ctx.Err()
				return
			case <-h.stopped():
				h.done <- nil
				return
			case <-timer.C:
				if h.isPaused() {
					timer.Reset(10 * time.Millisecond)
					continue
				}
				h.done <- nil
				return
			}
		}
	}()

	return h, nil
}

type fakeHandle struct {
	done chan error

	mu       sync.Mutex
	pausedAt bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (h *fakeHandle) Done() <-chan error { return h.done }

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pausedAt = true
	return nil
}

func (h *fakeHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pausedAt = false
	return nil
}

func (h *fakeHandle) Stop() error {
	h.stopOnce.Do(func() {
		if h.stopCh == nil {
			h.stopCh = make(chan struct{})
		}
		close(h.stopCh)
	})
	return nil
}

func (h *fakeHandle) isPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pausedAt
}

func (h *fakeHandle) stopped() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopCh == nil {
		h.stopCh = make(chan struct{})
	}
	return h.stopCh
}
