// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("UPSTREAM_BASE_URL must use https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL has no host")
	}

	if c.Upstream.JSONTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_JSON_TIMEOUT must be positive, got %v", c.Upstream.JSONTimeout)
	}
	if c.Upstream.ImageTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_IMAGE_TIMEOUT must be positive, got %v", c.Upstream.ImageTimeout)
	}
	if c.Upstream.MaxRedirects < 0 {
		return fmt.Errorf("UPSTREAM_MAX_REDIRECTS must not be negative, got %d", c.Upstream.MaxRedirects)
	}
	if c.Upstream.ListEndpointCount < 0 {
		return fmt.Errorf("LIST_ENDPOINT_COUNT must not be negative, got %d", c.Upstream.ListEndpointCount)
	}
	if c.Upstream.ListEndpointCount > 0 && !strings.Contains(c.Upstream.ListEndpointPattern, "%d") {
		return fmt.Errorf("LIST_ENDPOINT_PATTERN must contain %%d, got %q", c.Upstream.ListEndpointPattern)
	}
	if c.Upstream.CameraMetadataPattern != "" && !strings.Contains(c.Upstream.CameraMetadataPattern, "%s") {
		return fmt.Errorf("CAMERA_METADATA_PATTERN must contain %%s, got %q", c.Upstream.CameraMetadataPattern)
	}
	if c.Upstream.ZeroResultRetries < 0 {
		return fmt.Errorf("ZERO_RESULT_RETRIES must not be negative, got %d", c.Upstream.ZeroResultRetries)
	}
	if len(c.Upstream.ProxyPathPrefixes) == 0 {
		return fmt.Errorf("PROXY_PATH_PREFIXES must not be empty (the proxy would be an open relay with no allowlist)")
	}
	for _, p := range c.Upstream.ProxyPathPrefixes {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("proxy path prefix %q must start with /", p)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.FreshTTL <= 0 {
		return fmt.Errorf("CACHE_FRESH_TTL must be positive, got %v", c.Cache.FreshTTL)
	}
	if c.Cache.StaleTTL <= c.Cache.FreshTTL {
		return fmt.Errorf("CACHE_STALE_TTL (%v) must exceed CACHE_FRESH_TTL (%v)", c.Cache.StaleTTL, c.Cache.FreshTTL)
	}
	if c.Cache.NamesStaleTTL <= c.Cache.NamesFreshTTL {
		return fmt.Errorf("CACHE_NAMES_STALE_TTL (%v) must exceed CACHE_NAMES_FRESH_TTL (%v)", c.Cache.NamesStaleTTL, c.Cache.NamesFreshTTL)
	}
	if c.Image.ResolverTTL <= 0 {
		return fmt.Errorf("IMAGE_RESOLVER_TTL must be positive, got %v", c.Image.ResolverTTL)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required when STORE_BACKEND=badger")
		}
		return nil
	default:
		return fmt.Errorf("STORE_BACKEND must be \"memory\" or \"badger\", got %q", c.Store.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
