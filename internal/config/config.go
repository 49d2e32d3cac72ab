// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package config

import "time"

// Config is the root configuration structure.
//
// Loaded via Koanf v2 with layered sources (highest priority wins):
// environment variables, then an optional YAML config file, then built-in
// defaults. See LoadWithKoanf.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Cache    CacheConfig    `koanf:"cache"`
	Image    ImageConfig    `koanf:"image"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// UpstreamConfig holds settings for the transportation-department API.
//
// The upstream has no public CORS support, no stable schema, and an
// intermittent bot-detection layer, so everything about how we talk to it
// is configurable: which endpoints to probe, what browser identity to
// present, and how long to wait before giving up.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream API, e.g. https://511.example.gov
	BaseURL string `koanf:"base_url"`

	// Referer and Origin are sent on every request. The upstream's
	// bot-detection layer keys on their absence.
	Referer string `koanf:"referer"`
	Origin  string `koanf:"origin"`

	// UserAgent is the browser identity presented upstream.
	UserAgent string `koanf:"user_agent"`

	// AcceptLanguage is sent as Accept-Language.
	AcceptLanguage string `koanf:"accept_language"`

	// JSONTimeout bounds metadata/manifest fetches.
	JSONTimeout time.Duration `koanf:"json_timeout"`

	// ImageTimeout bounds snapshot image fetches (larger payloads).
	ImageTimeout time.Duration `koanf:"image_timeout"`

	// MaxRedirects caps redirect following on image fetches.
	MaxRedirects int `koanf:"max_redirects"`

	// RateLimit and RateBurst bound outbound request rate so the fan-out
	// does not hammer the WAF-fronted API.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// ProxyPathPrefixes is the allowlist of upstream paths the generic
	// proxy endpoint may fetch. Anything outside these prefixes is
	// rejected so the service cannot be used as an open relay.
	ProxyPathPrefixes []string `koanf:"proxy_path_prefixes"`

	// ListEndpointPattern is the printf pattern for the numbered camera
	// list endpoints, e.g. "/api/cameras/list/%d".
	ListEndpointPattern string `koanf:"list_endpoint_pattern"`

	// ListEndpointCount is how many numbered list endpoints to probe.
	ListEndpointCount int `koanf:"list_endpoint_count"`

	// AlternateEndpoints are probed after the numbered lists.
	AlternateEndpoints []string `koanf:"alternate_endpoints"`

	// CoordinatesEndpoint is the coordinates-manifest fallback, probed last.
	CoordinatesEndpoint string `koanf:"coordinates_endpoint"`

	// CameraMetadataPattern is the printf pattern for the per-camera
	// metadata call that yields a time-limited snapshot URL,
	// e.g. "/api/cameras/%s".
	CameraMetadataPattern string `koanf:"camera_metadata_pattern"`

	// ZeroResultRetries and ZeroResultBackoff control the retry policy
	// when an aggregation cycle resolves zero cameras. Zero results
	// usually mean a transient upstream glitch, but the policy is
	// configurable rather than hard-coded.
	ZeroResultRetries int           `koanf:"zero_result_retries"`
	ZeroResultBackoff time.Duration `koanf:"zero_result_backoff"`

	// Breaker settings for the circuit breaker wrapping manifest and
	// metadata fetches.
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// CacheConfig holds freshness tiers for the JSON resource caches.
type CacheConfig struct {
	// FreshTTL is how long a manifest entry is served without contacting
	// upstream at all.
	FreshTTL time.Duration `koanf:"fresh_ttl"`

	// StaleTTL is how long a manifest entry remains servable as degraded
	// data after a failed refresh. Must exceed FreshTTL.
	StaleTTL time.Duration `koanf:"stale_ttl"`

	// NamesFreshTTL / NamesStaleTTL are the tiers for the aggregated
	// camera-name map (the fan-out is expensive, so fresh is ~5 minutes).
	NamesFreshTTL time.Duration `koanf:"names_fresh_ttl"`
	NamesStaleTTL time.Duration `koanf:"names_stale_ttl"`

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// ImageConfig holds freshness settings for the image pipeline.
type ImageConfig struct {
	// SnapshotTTL is the short in-memory cache for live snapshot bytes.
	SnapshotTTL time.Duration `koanf:"snapshot_ttl"`

	// StaticTTL is the long cache for static-URL camera images; the
	// visual content changes slowly enough that hours is appropriate.
	StaticTTL time.Duration `koanf:"static_ttl"`

	// ResolverTTL is the short cache for resolved dynamic snapshot URLs.
	// The upstream rotates these every 30-60s; a stale one reliably 404s.
	ResolverTTL time.Duration `koanf:"resolver_ttl"`
}

// StoreConfig selects the last-known-good image store backend.
type StoreConfig struct {
	// Backend is "memory" (default) or "badger" (persists across restarts).
	Backend string `koanf:"backend"`

	// Path is the BadgerDB directory when Backend is "badger".
	Path string `koanf:"path"`
}

// SecurityConfig holds CORS and inbound rate limiting.
type SecurityConfig struct {
	// CORSOrigins is the allowed origin list. The dashboard is a static
	// page served from anywhere, so the default is permissive ("*").
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads the configuration. Alias for LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
