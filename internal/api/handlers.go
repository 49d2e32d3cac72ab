// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package api is the HTTP surface of the proxy. Every endpoint exists so
// a static dashboard page, served from anywhere, can read the
// transportation department's camera data without tripping over the
// upstream's missing CORS and flaky bot detection.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/camnames"
	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/imaging"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/proxy"
	"github.com/johndlloyd/monitor-the-situation/internal/upstream"
)

// Handler holds the wired pipeline components behind the HTTP endpoints.
type Handler struct {
	cfg        *config.Config
	fetcher    upstream.JSONFetcher
	manifests  *proxy.TieredCache
	aggregator *camnames.Aggregator
	resolver   imaging.URLResolver
	pipeline   *imaging.Pipeline

	started time.Time
}

// NewHandler wires the handler.
func NewHandler(cfg *config.Config, fetcher upstream.JSONFetcher, manifests *proxy.TieredCache, aggregator *camnames.Aggregator, resolver imaging.URLResolver, pipeline *imaging.Pipeline) *Handler {
	return &Handler{
		cfg:        cfg,
		fetcher:    fetcher,
		manifests:  manifests,
		aggregator: aggregator,
		resolver:   resolver,
		pipeline:   pipeline,
		started:    time.Now(),
	}
}

// Proxy handles GET /api/proxy?p=<upstream-path>: a read-through fetch of
// one upstream JSON resource through the tiered cache. Paths outside the
// configured allowlist are rejected so the service is not an open relay.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("p")
	if err := validateRequest(&proxyRequest{Path: path}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	if !h.allowedProxyPath(path) {
		logging.Warn().Str("path", sanitizeLogValue(path)).Msg("Proxy path outside allowlist")
		writeError(w, http.StatusBadRequest, "path_not_allowed", "")
		return
	}

	entry, tier, err := h.manifests.Get(r.Context(), path, func(ctx context.Context) ([]byte, string, error) {
		body, err := h.fetcher.FetchJSON(ctx, path, "manifest")
		return body, "application/json", err
	})

	w.Header().Set("X-Cache", tier.CacheHeader())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, errorCode(err), previewFrom(err))
		return
	}

	writeJSONBytes(w, http.StatusOK, entry.Payload)
}

// CamNames handles GET /camnames: the aggregated camera-name map. Always
// 200; an empty object means nothing resolved and nothing is cached.
func (h *Handler) CamNames(w http.ResponseWriter, r *http.Request) {
	payload, tier := h.aggregator.NameMapJSON(r.Context())
	w.Header().Set("X-Cache", tier.CacheHeader())
	writeJSONBytes(w, http.StatusOK, payload)
}

// Snapshot handles GET /snapshot?id=<numericId>|url=<httpsUrl>: camera
// image bytes through the resilience pipeline. Parameter problems are the
// only 4xx; once parameters pass, the response is always 200 with an
// image.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	rawURL := r.URL.Query().Get("url")

	if err := validateRequest(&snapshotRequest{ID: id, URL: rawURL}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	switch {
	case id != "" && rawURL != "":
		writeError(w, http.StatusBadRequest, "conflicting_parameters", "provide id or url, not both")
		return

	case id != "":
		res := h.pipeline.ByID(r.Context(), id)
		w.Header().Set("X-Snapshot", res.Tier.Header())
		writeImage(w, res.Payload, res.ContentType)

	case rawURL != "":
		// Rejected before any fetch is attempted.
		if _, err := upstream.ValidateTarget(rawURL); err != nil {
			logging.Warn().Str("url", sanitizeLogValue(rawURL)).Err(err).Msg("Snapshot URL rejected")
			writeError(w, http.StatusBadRequest, "unsafe_url", "")
			return
		}
		res := h.pipeline.ByURL(r.Context(), rawURL)
		w.Header().Set("X-Snapshot", res.Tier.Header())
		writeImage(w, res.Payload, res.ContentType)

	default:
		writeError(w, http.StatusBadRequest, "missing_parameter", "id or url is required")
	}
}

// Image handles GET /image?id=<numericId>: resolve the camera's current
// snapshot URL and redirect to it, or serve a transparent pixel when
// resolution fails so an <img> tag never breaks.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := validateRequest(&imageRequest{ID: id}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	url, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		logging.Debug().Str("camera", id).Err(err).Msg("Redirect resolution failed, serving pixel")
		writeImage(w, imaging.TransparentPixel(), "image/png")
		return
	}

	w.Header().Set("Cache-Control", noCacheControl)
	http.Redirect(w, r, url, http.StatusFound)
}

// Healthz handles GET /healthz: liveness only.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", noCacheControl)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Readyz handles GET /readyz: the service is ready as soon as it can
// serve; warm caches are reported but not required.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", noCacheControl)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"camnames_warm":     h.aggregator.Cache().Len() > 0,
		"placeholder_ready": len(imaging.Placeholder()) > 0,
	})
}

// CacheStats handles GET /api/cache/stats: entry counts per cache for
// operational visibility.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", noCacheControl)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"manifest_entries": h.manifests.Len(),
		"camnames_entries": h.aggregator.Cache().Len(),
		"uptime":           time.Since(h.started).Round(time.Second).String(),
	})
}

// allowedProxyPath checks the upstream path against the configured prefix
// allowlist. Dot segments are rejected outright rather than normalized.
func (h *Handler) allowedProxyPath(path string) bool {
	if !strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return false
	}
	for _, prefix := range h.cfg.Upstream.ProxyPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// errorCode maps a classified fetch error onto its response code string.
func errorCode(err error) string {
	switch {
	case errors.Is(err, upstream.ErrChallengePage):
		return "challenge_page"
	case errors.Is(err, upstream.ErrTimeout):
		return "timeout"
	case errors.Is(err, upstream.ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, upstream.ErrMalformedRedirect):
		return "malformed_redirect"
	case errors.Is(err, upstream.ErrTargetRejected):
		return "target_rejected"
	case errors.Is(err, upstream.ErrResolutionFailure):
		return "resolution_failure"
	default:
		return "network_error"
	}
}

// previewFrom extracts the sanitized challenge excerpt carried in a
// challenge-page error; other errors produce no preview.
func previewFrom(err error) string {
	if err == nil || !errors.Is(err, upstream.ErrChallengePage) {
		return ""
	}
	return strings.TrimPrefix(err.Error(), upstream.ErrChallengePage.Error()+": ")
}
