/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package weather

import (
	"context"
	"testing"
	"time"
)

type countingProvider struct {
	calls int
	snap  Snapshot
}

func (c *countingProvider) Fetch(context.Context) (Snapshot, error) {
	c.calls++
	return c.snap, nil
}

func TestCachedProviderCachesWithinTTL(t *testing.T) {
	inner := &countingProvider{snap: Snapshot{Summary: "clear", TempCelsius: 21}}
	cached := NewCachedProvider(inner, time.Minute)

	for i := 0; i < 5; i++ {
		snap, err := cached.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if snap.Summary != "clear" {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}
}

func TestCachedProviderRefetchesAfterExpiry(t *testing.T) {
	inner := &countingProvider{snap: Snapshot{Summary: "rain"}}
	cached := NewCachedProvider(inner, 10*time.Millisecond)

	if _, err := cached.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := cached.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("expected 2 upstream calls after expiry, got %d", inner.calls)
	}
}

func TestFakeProviderReturnsFixedSnapshot(t *testing.T) {
	want := Snapshot{Summary: "overcast", TempCelsius: 12}
	got, err := FakeProvider{Snapshot: want}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
