/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weather wraps an external weather/news data provider behind a
// small cached interface. Only the cached typed record a Provider
// returns matters to the rest of the system — no particular upstream
// API or protocol is implied.
package weather

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Snapshot is the cached, typed weather record consumed by announcement
// script building.
type Snapshot struct {
	Summary     string    `json:"summary"`
	TempCelsius float64   `json:"temp_celsius"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Provider fetches a fresh Snapshot. Implementations are swappable;
// tests substitute a deterministic fake.
type Provider interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

const cacheKey = "current"

// CachedProvider wraps a Provider with a TTL cache so repeated calls
// within the TTL do not reach the upstream; a cache miss calls the
// wrapped provider synchronously.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache
}

// NewCachedProvider wraps inner with a TTL cache (default 15 minutes).
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedProvider{inner: inner, cache: cache.New(ttl, ttl/2)}
}

// Fetch returns the cached snapshot if present and fresh, otherwise
// calls through to the wrapped provider and caches the result.
func (c *CachedProvider) Fetch(ctx context.Context) (Snapshot, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(Snapshot), nil
	}

	snap, err := c.inner.Fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	c.cache.SetDefault(cacheKey, snap)
	return snap, nil
}

// FakeProvider returns a fixed Snapshot, for tests and --test mode.
type FakeProvider struct {
	Snapshot Snapshot
}

// Fetch implements Provider.
func (f FakeProvider) Fetch(context.Context) (Snapshot, error) {
	return f.Snapshot, nil
}
