// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/monitor-the-situation/config.yaml",
	"/etc/monitor-the-situation/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8511,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Upstream: UpstreamConfig{
			BaseURL:        "",
			Referer:        "",
			Origin:         "",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			AcceptLanguage: "en-US,en;q=0.9",
			JSONTimeout:    8 * time.Second,
			ImageTimeout:   15 * time.Second,
			MaxRedirects:   5,
			RateLimit:      20,
			RateBurst:      40,
			ProxyPathPrefixes: []string{
				"/api/cameras",
				"/api/traffic",
			},
			ListEndpointPattern:   "/api/cameras/list/%d",
			ListEndpointCount:     24,
			AlternateEndpoints:    []string{"/api/cameras/all", "/api/traffic/cameras"},
			CoordinatesEndpoint:   "/api/cameras/coordinates",
			CameraMetadataPattern: "/api/cameras/%s",
			ZeroResultRetries:     3,
			ZeroResultBackoff:     time.Second,
			BreakerEnabled:        true,
			BreakerMaxRequests:    3,
			BreakerInterval:       time.Minute,
			BreakerTimeout:        2 * time.Minute,
		},
		Cache: CacheConfig{
			FreshTTL:        2 * time.Minute,
			StaleTTL:        60 * time.Minute,
			NamesFreshTTL:   5 * time.Minute,
			NamesStaleTTL:   2 * time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		Image: ImageConfig{
			SnapshotTTL: 60 * time.Second,
			StaticTTL:   4 * time.Hour,
			ResolverTTL: 45 * time.Second,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "/data/lastgood",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// UPSTREAM_BASE_URL -> upstream.base_url, HTTP_PORT -> server.port
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"upstream.proxy_path_prefixes",
	"upstream.alternate_endpoints",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - UPSTREAM_BASE_URL   -> upstream.base_url
//   - HTTP_PORT           -> server.port
//   - CACHE_FRESH_TTL     -> cache.fresh_ttl
//   - LOG_LEVEL           -> logging.level
//   - CORS_ORIGINS        -> security.cors_origins
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Upstream mappings
		"upstream_base_url":        "upstream.base_url",
		"upstream_referer":         "upstream.referer",
		"upstream_origin":          "upstream.origin",
		"upstream_user_agent":      "upstream.user_agent",
		"upstream_accept_language": "upstream.accept_language",
		"upstream_json_timeout":    "upstream.json_timeout",
		"upstream_image_timeout":   "upstream.image_timeout",
		"upstream_max_redirects":   "upstream.max_redirects",
		"upstream_rate_limit":      "upstream.rate_limit",
		"upstream_rate_burst":      "upstream.rate_burst",
		"proxy_path_prefixes":      "upstream.proxy_path_prefixes",
		"list_endpoint_pattern":    "upstream.list_endpoint_pattern",
		"list_endpoint_count":      "upstream.list_endpoint_count",
		"alternate_endpoints":      "upstream.alternate_endpoints",
		"coordinates_endpoint":     "upstream.coordinates_endpoint",
		"camera_metadata_pattern":  "upstream.camera_metadata_pattern",
		"zero_result_retries":      "upstream.zero_result_retries",
		"zero_result_backoff":      "upstream.zero_result_backoff",
		"breaker_enabled":          "upstream.breaker_enabled",
		"breaker_max_requests":     "upstream.breaker_max_requests",
		"breaker_interval":         "upstream.breaker_interval",
		"breaker_timeout":          "upstream.breaker_timeout",

		// Cache mappings
		"cache_fresh_ttl":        "cache.fresh_ttl",
		"cache_stale_ttl":        "cache.stale_ttl",
		"cache_names_fresh_ttl":  "cache.names_fresh_ttl",
		"cache_names_stale_ttl":  "cache.names_stale_ttl",
		"cache_cleanup_interval": "cache.cleanup_interval",

		// Image mappings
		"image_snapshot_ttl": "image.snapshot_ttl",
		"image_static_ttl":   "image.static_ttl",
		"image_resolver_ttl": "image.resolver_ttl",

		// Store mappings
		"store_backend": "store.backend",
		"store_path":    "store.path",

		// Security mappings
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are dropped rather than guessed at; a typo'd env
	// var silently overriding a nested key is worse than it being ignored.
	return ""
}
