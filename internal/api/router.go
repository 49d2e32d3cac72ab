// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/middleware"
)

// Router builds the chi handler tree around a wired Handler.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a Router.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)       // X-Request-ID plus logging context
	r.Use(chimiddleware.RealIP)       // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)    // Recover from panics
	r.Use(router.corsHandler())       // Global so OPTIONS preflight works everywhere
	r.Use(middleware.PrometheusMetrics)

	if !router.cfg.Security.RateLimitDisabled {
		r.Use(httprate.Limit(
			router.cfg.Security.RateLimitReqs,
			router.cfg.Security.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	// ========================
	// Dashboard Endpoints
	// ========================
	r.Get("/api/proxy", router.handler.Proxy)
	r.Get("/camnames", router.handler.CamNames)
	r.Get("/snapshot", router.handler.Snapshot)
	r.Get("/image", router.handler.Image)

	// ========================
	// Operational Endpoints
	// ========================
	r.Get("/healthz", router.handler.Healthz)
	r.Get("/readyz", router.handler.Readyz)
	r.Get("/api/cache/stats", router.handler.CacheStats)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsHandler builds the CORS middleware. The dashboard is a static page
// that can be hosted anywhere, so the default configuration allows any
// origin for these read-only GET endpoints.
func (router *Router) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Cache", "X-Snapshot", "X-Request-ID"},
		MaxAge:         86400,
	})
}
