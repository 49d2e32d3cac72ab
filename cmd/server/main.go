// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package main is the entry point for the monitor-the-situation proxy.
//
// The proxy sits between a traffic dashboard frontend and a state
// transportation authority's camera APIs. The upstream is slow, rate
// limited, intermittently fronted by a bot-challenge page, and prone to
// returning zero-result responses, so every byte it serves is cached in
// tiers: fresh data is served without contacting the upstream at all,
// and stale data outlives failed refreshes so the dashboard keeps
// working through outages.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables over config file over
//     built-in defaults (Koanf v2)
//  2. Upstream fetcher: browser-emulating HTTP client with challenge
//     detection, wrapped in a circuit breaker
//  3. Stores and caches: last-good image store (memory or BadgerDB),
//     tiered manifest cache, camera name aggregator, URL resolver,
//     snapshot pipeline
//  4. HTTP server: chi router with CORS, rate limiting, and Prometheus
//     metrics
//  5. Supervisor tree: the HTTP server and the background refresh loop
//     under suture supervision
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests (10s
// timeout), then closes the image store.
//
// # Example Usage
//
//	export UPSTREAM_BASE_URL=https://trafficcams.example.gov
//	export STORE_BACKEND=badger
//	export STORE_PATH=/data/images
//	./monitor-the-situation
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/api"
	"github.com/johndlloyd/monitor-the-situation/internal/cache"
	"github.com/johndlloyd/monitor-the-situation/internal/camnames"
	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/imaging"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/proxy"
	"github.com/johndlloyd/monitor-the-situation/internal/supervisor"
	"github.com/johndlloyd/monitor-the-situation/internal/supervisor/services"
	"github.com/johndlloyd/monitor-the-situation/internal/upstream"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Str("store_backend", cfg.Store.Backend).
		Msg("Starting monitor-the-situation proxy")

	// Upstream fetcher with circuit breaker. Image fetches bypass the
	// breaker: the snapshot pipeline has its own placeholder fallback
	// and must never surface an error.
	fetcher := upstream.New(&cfg.Upstream)
	jsonFetcher := upstream.NewBreakerFetcher(fetcher, &cfg.Upstream)
	if cfg.Upstream.BreakerEnabled {
		logging.Info().
			Dur("timeout", cfg.Upstream.BreakerTimeout).
			Msg("Circuit breaker enabled for JSON fetches")
	}

	// Last-good image store survives restarts when backed by badger.
	lastGood, err := cache.NewByteStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open image store")
	}
	defer func() {
		if err := lastGood.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing image store")
		}
	}()

	// Caching layers.
	manifests := proxy.NewTieredCache("manifest", cfg.Cache.FreshTTL, cfg.Cache.StaleTTL)
	aggregator := camnames.NewAggregator(jsonFetcher, &cfg.Upstream, cfg.Cache.NamesFreshTTL, cfg.Cache.NamesStaleTTL)

	resolver := imaging.NewResolver(jsonFetcher, &cfg.Upstream, cfg.Image.ResolverTTL)
	defer resolver.Stop()

	pipeline := imaging.NewPipeline(resolver, fetcher, lastGood, cfg.Image.SnapshotTTL, cfg.Image.StaticTTL)
	defer pipeline.Stop()

	handler := api.NewHandler(cfg, jsonFetcher, manifests, aggregator, resolver, pipeline)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervisor tree: maintenance layer keeps the name map warm and
	// sweeps expired entries; api layer runs the HTTP server.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Refresh at half the fresh window so clients rarely hit a cold map.
	tree.AddMaintenanceService(services.NewRefreshService(
		aggregator,
		cfg.Cache.NamesFreshTTL/2,
		manifests,
		aggregator.Cache(),
	))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes shutting down.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Proxy stopped gracefully")
}
