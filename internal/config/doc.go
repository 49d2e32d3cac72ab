// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package config provides layered configuration loading via Koanf v2.
//
// Configuration is assembled from three layers, highest priority first:
//
//  1. Environment variables (UPSTREAM_BASE_URL, HTTP_PORT, CACHE_FRESH_TTL, ...)
//  2. An optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Built-in defaults
//
// The only required setting is upstream.base_url; everything else has a
// working default. Validation runs after unmarshaling and rejects
// configurations that would be unsafe at runtime (no proxy allowlist,
// stale TTL below fresh TTL, and so on).
package config
