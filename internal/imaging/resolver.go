// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package imaging serves camera images no matter what the upstream is
// doing. It composes the dynamic URL resolver, the image fetcher, a short
// snapshot cache, a last-known-good store and a generated placeholder into
// a pipeline that always returns a renderable image.
package imaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/johndlloyd/monitor-the-situation/internal/cache"
	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
	"github.com/johndlloyd/monitor-the-situation/internal/upstream"
)

// Resolver maps an opaque camera id to its current time-limited snapshot
// URL via the per-camera metadata call. Resolved URLs are cached for a
// short TTL only: the upstream rotates them every 30-60 seconds and an
// expired one reliably 404s, so unlike the byte caches there is no value
// in serving a stale resolution. Failures propagate.
type Resolver struct {
	fetcher upstream.JSONFetcher
	cfg     *config.UpstreamConfig
	cache   cache.Cacher
}

// NewResolver creates a Resolver whose resolutions live for ttl.
func NewResolver(fetcher upstream.JSONFetcher, cfg *config.UpstreamConfig, ttl time.Duration) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cfg:     cfg,
		cache:   cache.NewTTL(ttl),
	}
}

// cameraMetadata covers the field spellings under which the metadata call
// exposes the snapshot URL.
type cameraMetadata struct {
	SnapshotURL string `json:"snapshotUrl"`
	ImageURL    string `json:"imageUrl"`
	URL         string `json:"url"`
	Image       struct {
		URL string `json:"url"`
	} `json:"image"`
}

func (m cameraMetadata) snapshotURL() string {
	for _, candidate := range []string{m.SnapshotURL, m.ImageURL, m.URL, m.Image.URL} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

// Resolve returns the current snapshot URL for id. Returns
// upstream.ErrResolutionFailure when the metadata call succeeds but
// contains no usable URL; fetch errors pass through unwrapped.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	if cached, ok := r.cache.Get(id); ok {
		metrics.ResolverResults.WithLabelValues("hit").Inc()
		return cached.(string), nil
	}

	body, err := r.fetcher.FetchJSON(ctx, fmt.Sprintf(r.cfg.CameraMetadataPattern, id), "metadata")
	if err != nil {
		metrics.ResolverResults.WithLabelValues("failed").Inc()
		return "", err
	}

	var meta cameraMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		metrics.ResolverResults.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: metadata decode: %v", upstream.ErrResolutionFailure, err)
	}

	url := meta.snapshotURL()
	if url == "" {
		metrics.ResolverResults.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: no snapshot url in metadata for camera %s",
			upstream.ErrResolutionFailure, id)
	}

	r.cache.Set(id, url)
	metrics.ResolverResults.WithLabelValues("resolved").Inc()
	logging.Debug().Str("camera", id).Msg("Resolved snapshot URL")
	return url, nil
}

// Stop releases the resolver cache's sweep goroutine.
func (r *Resolver) Stop() {
	r.cache.Stop()
}
