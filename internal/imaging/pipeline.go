// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package imaging

import (
	"context"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/cache"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
)

// Tier describes which layer of the pipeline produced an image.
type Tier string

const (
	// TierHit: served from the short-lived snapshot cache.
	TierHit Tier = "hit"

	// TierMiss: freshly fetched from upstream.
	TierMiss Tier = "miss"

	// TierStale: upstream failed, served the last-known-good image.
	TierStale Tier = "stale"

	// TierPlaceholder: nothing has ever loaded for this key.
	TierPlaceholder Tier = "placeholder"
)

// Header returns the X-Snapshot response header value.
func (t Tier) Header() string {
	switch t {
	case TierHit:
		return "HIT"
	case TierMiss:
		return "MISS"
	case TierStale:
		return "STALE"
	default:
		return "PLACEHOLDER"
	}
}

// Result is a guaranteed-renderable image response.
type Result struct {
	Payload     []byte
	ContentType string
	Tier        Tier
}

// ImageFetcher is the upstream surface the pipeline fetches through.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (payload []byte, contentType string, err error)
}

// URLResolver maps a camera id to its current snapshot URL.
type URLResolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Pipeline degrades through three tiers (fresh fetch, last-known-good,
// placeholder) and never returns an error: every failure mode of
// resolution, guarding and fetching lands on a renderable image. The
// last-known-good store is written only on success, so one bad cycle
// never makes a tile look worse than its last good frame.
type Pipeline struct {
	resolver URLResolver
	fetcher  ImageFetcher

	snapshots   cache.Cacher
	lastGood    cache.ByteStore
	snapshotTTL time.Duration
	staticTTL   time.Duration
}

// snapshotEntry is what the short-lived cache holds per key.
type snapshotEntry struct {
	payload     []byte
	contentType string
}

// NewPipeline assembles the pipeline. snapshotTTL covers resolved dynamic
// snapshots (seconds); staticTTL covers fixed-URL images, which change
// slowly enough that hours is right.
func NewPipeline(resolver URLResolver, fetcher ImageFetcher, lastGood cache.ByteStore, snapshotTTL, staticTTL time.Duration) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		fetcher:     fetcher,
		snapshots:   cache.NewTTL(snapshotTTL),
		lastGood:    lastGood,
		snapshotTTL: snapshotTTL,
		staticTTL:   staticTTL,
	}
}

// ByID serves the snapshot for a camera id, resolving the dynamic URL
// first. Never fails.
func (p *Pipeline) ByID(ctx context.Context, id string) Result {
	key := "id:" + id

	if res, ok := p.cached(key); ok {
		return res
	}

	url, err := p.resolver.Resolve(ctx, id)
	if err != nil {
		logging.Debug().Str("camera", id).Err(err).Msg("Snapshot URL resolution failed")
		return p.fallback(key)
	}

	return p.fetchInto(ctx, key, url, p.snapshotTTL)
}

// ByURL serves the image at a fixed URL. The caller is responsible for
// rejecting unsafe URLs before this point; the fetcher re-checks anyway.
// Never fails.
func (p *Pipeline) ByURL(ctx context.Context, url string) Result {
	key := "url:" + url

	if res, ok := p.cached(key); ok {
		return res
	}

	return p.fetchInto(ctx, key, url, p.staticTTL)
}

// Stop releases the snapshot cache's sweep goroutine.
func (p *Pipeline) Stop() {
	p.snapshots.Stop()
}

func (p *Pipeline) cached(key string) (Result, bool) {
	v, ok := p.snapshots.Get(key)
	if !ok {
		return Result{}, false
	}
	entry := v.(snapshotEntry)
	metrics.RecordSnapshotTier(string(TierHit))
	return Result{Payload: entry.payload, ContentType: entry.contentType, Tier: TierHit}, true
}

func (p *Pipeline) fetchInto(ctx context.Context, key, url string, ttl time.Duration) Result {
	payload, contentType, err := p.fetcher.FetchImage(ctx, url)
	if err != nil {
		logging.Debug().Str("key", key).Err(err).Msg("Image fetch failed")
		return p.fallback(key)
	}

	p.snapshots.SetWithTTL(key, snapshotEntry{payload: payload, contentType: contentType}, ttl)
	if err := p.lastGood.Set(key, payload, contentType); err != nil {
		// The response is still served; only the future fallback suffers.
		logging.Warn().Str("key", key).Err(err).Msg("Last-known-good store write failed")
	}

	metrics.RecordSnapshotTier(string(TierMiss))
	return Result{Payload: payload, ContentType: contentType, Tier: TierMiss}
}

// fallback serves last-known-good bytes when any exist, else the
// placeholder.
func (p *Pipeline) fallback(key string) Result {
	if payload, contentType, ok := p.lastGood.Get(key); ok {
		metrics.RecordSnapshotTier(string(TierStale))
		return Result{Payload: payload, ContentType: contentType, Tier: TierStale}
	}

	metrics.RecordSnapshotTier(string(TierPlaceholder))
	return Result{Payload: Placeholder(), ContentType: "image/png", Tier: TierPlaceholder}
}
