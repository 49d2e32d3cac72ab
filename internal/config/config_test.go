// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a default config with the one required field filled in.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Upstream.BaseURL = "https://511.example.gov"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if !strings.Contains(err.Error(), "UPSTREAM_BASE_URL") {
		t.Errorf("expected UPSTREAM_BASE_URL in error, got %v", err)
	}
}

func TestValidateRejectsHTTPBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.BaseURL = "http://511.example.gov"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for http base URL")
	}
}

func TestValidateRejectsStaleBelowFresh(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.FreshTTL = 10 * time.Minute
	cfg.Cache.StaleTTL = 5 * time.Minute
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when stale TTL <= fresh TTL")
	}
	if !strings.Contains(err.Error(), "CACHE_STALE_TTL") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsEmptyProxyAllowlist(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.ProxyPathPrefixes = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty proxy allowlist")
	}
}

func TestValidateRejectsBadListPattern(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.ListEndpointPattern = "/api/cameras/list"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for pattern without a numeric placeholder")
	}
}

func TestValidateRejectsUnknownStoreBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestValidateBadgerRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "badger"
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for badger backend without path")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"UPSTREAM_BASE_URL", "upstream.base_url"},
		{"HTTP_PORT", "server.port"},
		{"CACHE_FRESH_TTL", "cache.fresh_ttl"},
		{"LOG_LEVEL", "logging.level"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"STORE_BACKEND", "store.backend"},
		{"ZERO_RESULT_RETRIES", "upstream.zero_result_retries"},
		{"SOME_RANDOM_VAR", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanfEnvOverride(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://511.example.gov")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CACHE_FRESH_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://dash.example.com, https://alt.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Cache.FreshTTL != 90*time.Second {
		t.Errorf("expected 90s fresh TTL, got %v", cfg.Cache.FreshTTL)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "https://dash.example.com" {
		t.Errorf("expected two CORS origins, got %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanfDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://511.example.gov")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Upstream.MaxRedirects != 5 {
		t.Errorf("expected default max redirects 5, got %d", cfg.Upstream.MaxRedirects)
	}
	if cfg.Upstream.JSONTimeout != 8*time.Second {
		t.Errorf("expected default JSON timeout 8s, got %v", cfg.Upstream.JSONTimeout)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected default store backend memory, got %q", cfg.Store.Backend)
	}
}
