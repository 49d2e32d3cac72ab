// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package proxy implements the tiered read-through cache that sits between
// the HTTP surface and the upstream fetchers. The upstream fails in bursts
// (challenge pages, timeouts, outages), so a failed refresh degrades to
// the last good payload instead of an error for as long as the stale
// window allows.
package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
)

// Tier describes how a lookup was satisfied.
type Tier string

const (
	// TierFresh: entry within the fresh window, upstream not contacted.
	TierFresh Tier = "fresh"

	// TierRefreshed: upstream fetched successfully (first fill or refresh).
	TierRefreshed Tier = "refreshed"

	// TierStale: refresh failed, serving the last good payload.
	TierStale Tier = "stale"

	// TierFailed: refresh failed and no servable entry remains.
	TierFailed Tier = "failed"
)

// CacheHeader maps a tier onto the X-Cache response header value.
func (t Tier) CacheHeader() string {
	switch t {
	case TierFresh:
		return "HIT"
	case TierStale:
		return "STALE"
	default:
		return "MISS"
	}
}

// Entry is a cached upstream payload.
type Entry struct {
	Payload     []byte
	ContentType string
	FetchedAt   time.Time
}

// FetchFunc produces a payload for a cache key. It is called only when the
// cached entry is missing or past its fresh window.
type FetchFunc func(ctx context.Context) (payload []byte, contentType string, err error)

// TieredCache is a read-through cache with two freshness windows. Within
// freshTTL an entry is served without contacting upstream at all. Between
// freshTTL and staleTTL a failed refresh falls back to the cached entry.
// Past staleTTL the entry is unservable and failures surface to the
// caller.
//
// Only a successful fetch overwrites a cached entry, so a challenge page
// or timeout can never displace good data. Safe for concurrent use.
type TieredCache struct {
	name     string
	freshTTL time.Duration
	staleTTL time.Duration

	mu      sync.RWMutex
	entries map[string]*Entry

	now func() time.Time
}

// NewTieredCache creates a tiered cache. The name keys the cache metrics.
func NewTieredCache(name string, freshTTL, staleTTL time.Duration) *TieredCache {
	return &TieredCache{
		name:     name,
		freshTTL: freshTTL,
		staleTTL: staleTTL,
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}
}

// Get returns the entry for key, fetching through fetch when the cached
// copy is missing or no longer fresh. The returned Tier tells the caller
// how the result was obtained; err is non-nil only when the tier is
// TierFailed.
func (tc *TieredCache) Get(ctx context.Context, key string, fetch FetchFunc) (*Entry, Tier, error) {
	now := tc.now()

	tc.mu.RLock()
	entry := tc.entries[key]
	tc.mu.RUnlock()

	if entry != nil && now.Sub(entry.FetchedAt) < tc.freshTTL {
		metrics.RecordTieredResult(tc.name, string(TierFresh))
		return entry, TierFresh, nil
	}

	payload, contentType, err := fetch(ctx)
	if err == nil {
		fresh := &Entry{
			Payload:     payload,
			ContentType: contentType,
			FetchedAt:   tc.now(),
		}
		tc.mu.Lock()
		tc.entries[key] = fresh
		metrics.CacheEntries.WithLabelValues(tc.name).Set(float64(len(tc.entries)))
		tc.mu.Unlock()

		metrics.RecordTieredResult(tc.name, string(TierRefreshed))
		return fresh, TierRefreshed, nil
	}

	if entry != nil && now.Sub(entry.FetchedAt) < tc.staleTTL {
		logging.Warn().
			Str("cache", tc.name).
			Str("key", key).
			Dur("age", now.Sub(entry.FetchedAt)).
			Err(err).
			Msg("Refresh failed, serving stale entry")
		metrics.RecordTieredResult(tc.name, string(TierStale))
		return entry, TierStale, nil
	}

	metrics.RecordTieredResult(tc.name, string(TierFailed))
	return nil, TierFailed, err
}

// Peek returns the cached entry for key without fetching, along with
// whether it is still servable (within the stale window).
func (tc *TieredCache) Peek(key string) (*Entry, bool) {
	tc.mu.RLock()
	entry := tc.entries[key]
	tc.mu.RUnlock()

	if entry == nil {
		return nil, false
	}
	return entry, tc.now().Sub(entry.FetchedAt) < tc.staleTTL
}

// Invalidate removes the entry for key.
func (tc *TieredCache) Invalidate(key string) {
	tc.mu.Lock()
	delete(tc.entries, key)
	metrics.CacheEntries.WithLabelValues(tc.name).Set(float64(len(tc.entries)))
	tc.mu.Unlock()
}

// Sweep removes entries past the stale window. Called periodically by the
// maintenance service; lookups never return swept-eligible entries, so
// this only bounds memory.
func (tc *TieredCache) Sweep() int {
	cutoff := tc.now().Add(-tc.staleTTL)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	removed := 0
	for key, entry := range tc.entries {
		if entry.FetchedAt.Before(cutoff) {
			delete(tc.entries, key)
			removed++
		}
	}
	metrics.CacheEntries.WithLabelValues(tc.name).Set(float64(len(tc.entries)))
	return removed
}

// Len returns the number of entries, servable or not.
func (tc *TieredCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.entries)
}

// Name returns the cache's metric name.
func (tc *TieredCache) Name() string {
	return tc.name
}
