// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package camnames discovers camera names by fanning out over the
// upstream's undocumented list endpoints and merging whatever subset
// happens to be populated this week. No single endpoint is authoritative;
// the merged map is the best picture available and is cached because the
// fan-out is expensive.
package camnames

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
	"github.com/johndlloyd/monitor-the-situation/internal/proxy"
	"github.com/johndlloyd/monitor-the-situation/internal/upstream"
)

// nameMapKey is the single tiered-cache key for the aggregated map.
const nameMapKey = "camnames"

// ErrNoCameras is returned when an aggregation cycle, after the configured
// retries, resolved zero cameras. The tiered cache turns this into a
// stale-map fallback when one exists.
var ErrNoCameras = errors.New("aggregation resolved zero cameras")

// NameInfo is the per-camera value in the aggregated map.
type NameInfo struct {
	Location string `json:"location"`
	Roadway  string `json:"roadway"`
}

// Aggregator runs the fan-out and owns the tiered cache wrapping it.
type Aggregator struct {
	fetcher upstream.JSONFetcher
	cfg     *config.UpstreamConfig
	cache   *proxy.TieredCache

	// sleep is swapped in tests so retry backoff does not really wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAggregator creates an Aggregator whose merged map is cached with the
// given freshness windows.
func NewAggregator(fetcher upstream.JSONFetcher, cfg *config.UpstreamConfig, freshTTL, staleTTL time.Duration) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		cfg:     cfg,
		cache:   proxy.NewTieredCache("camnames", freshTTL, staleTTL),
		sleep:   sleepCtx,
	}
}

// NameMapJSON returns the aggregated camera-name map as JSON bytes plus
// the cache tier that produced it. The map never fails outward: when no
// cycle has ever succeeded and the current one resolves nothing, the
// result is an empty object.
func (a *Aggregator) NameMapJSON(ctx context.Context) ([]byte, proxy.Tier) {
	entry, tier, err := a.cache.Get(ctx, nameMapKey, a.aggregate)
	if err != nil {
		logging.Warn().Err(err).Msg("Name aggregation failed with no servable cache")
		return []byte("{}"), tier
	}
	return entry.Payload, tier
}

// Refresh forces an aggregation pass through the cache, used by the
// background maintenance service to keep the map warm.
func (a *Aggregator) Refresh(ctx context.Context) error {
	_, tier, err := a.cache.Get(ctx, nameMapKey, a.aggregate)
	if err != nil {
		return err
	}
	logging.Debug().Str("tier", string(tier)).Msg("Name map refreshed")
	return nil
}

// Cache exposes the underlying tiered cache for sweeping and stats.
func (a *Aggregator) Cache() *proxy.TieredCache {
	return a.cache
}

// aggregate is the cache fetch function: run fan-out cycles until one
// yields records or the zero-result retry budget is spent.
func (a *Aggregator) aggregate(ctx context.Context) ([]byte, string, error) {
	for attempt := 0; ; attempt++ {
		merged := a.cycle(ctx)
		if len(merged) > 0 {
			payload, err := json.Marshal(merged)
			if err != nil {
				return nil, "", err
			}
			return payload, "application/json", nil
		}

		if attempt >= a.cfg.ZeroResultRetries {
			return nil, "", ErrNoCameras
		}

		// Zero results usually mean a transient upstream glitch; back off
		// and try the whole fan-out again.
		logging.Info().
			Int("attempt", attempt+1).
			Dur("backoff", a.cfg.ZeroResultBackoff).
			Msg("Aggregation yielded zero cameras, retrying")
		if err := a.sleep(ctx, a.cfg.ZeroResultBackoff); err != nil {
			return nil, "", err
		}
	}
}

// cycle probes every candidate concurrently and merges the results in
// priority order. Branch failures are absorbed here; a cycle as a whole
// cannot fail, only come back empty.
func (a *Aggregator) cycle(ctx context.Context) map[string]NameInfo {
	start := time.Now()
	candidates := Candidates(a.cfg)

	// Indexed by candidate so the merge below walks in priority order
	// regardless of completion order.
	results := make([][]NameRecord, len(candidates))

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			results[i] = a.probe(ctx, c)
		}(i, candidate)
	}
	wg.Wait()

	merged := make(map[string]NameInfo)
	for _, records := range results {
		for _, rec := range records {
			// First writer wins; later sources never overwrite.
			if _, exists := merged[rec.ID]; exists {
				continue
			}
			merged[rec.ID] = NameInfo{Location: rec.Location, Roadway: rec.Roadway}
		}
	}

	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.AggregationRecords.Set(float64(len(merged)))
	logging.Info().
		Int("candidates", len(candidates)).
		Int("cameras", len(merged)).
		Dur("elapsed", time.Since(start)).
		Msg("Aggregation cycle complete")

	return merged
}

// probe fetches and normalizes one branch. Every failure mode lands here
// and contributes an empty slice.
func (a *Aggregator) probe(ctx context.Context, c Candidate) []NameRecord {
	body, err := a.fetcher.FetchJSON(ctx, c.Path, "list")
	if err != nil {
		metrics.AggregationBranches.WithLabelValues("failed").Inc()
		logging.Debug().Str("source", c.Source).Err(err).Msg("Fan-out branch failed")
		return nil
	}

	records, err := Normalize(body)
	if err != nil {
		metrics.AggregationBranches.WithLabelValues("unrecognized").Inc()
		logging.Debug().Str("source", c.Source).Err(err).Msg("Fan-out branch shape unrecognized")
		return nil
	}

	if len(records) == 0 {
		metrics.AggregationBranches.WithLabelValues("empty").Inc()
		return nil
	}

	metrics.AggregationBranches.WithLabelValues("merged").Inc()
	return records
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
