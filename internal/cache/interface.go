// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package cache provides the cache abstractions used throughout the proxy.
//
// Two interfaces cover the two kinds of cached state:
//
//   - Cacher: a TTL'd in-process map for structured values (manifest
//     entries, merged name maps, resolved URLs).
//   - ByteStore: a keyed byte-payload store for last-known-good images,
//     with an in-process implementation (default) and a BadgerDB-backed
//     implementation that survives restarts.
//
// Call sites depend only on the interfaces, so the backing store can be
// swapped without touching them.
package cache

import "time"

// Cacher defines the interface for TTL cache implementations.
//
// Usage:
//
//	var c Cacher = NewTTL(5 * time.Minute)
//	c.Set("key", value)
//	if val, ok := c.Get("key"); ok {
//	    // Use cached value
//	}
type Cacher interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found and not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all entries from the cache.
	Clear()

	// GetStats returns cache statistics.
	GetStats() Stats

	// HitRate returns the cache hit rate as a percentage.
	HitRate() float64

	// Stop releases the cache's background resources. The cache must not
	// be used after Stop.
	Stop()
}

// ByteStore is a keyed byte-payload store for image bytes.
//
// Entries never expire: a last-known-good image is useful no matter how old
// it is, because the alternative is a placeholder. Implementations must be
// safe for concurrent use.
type ByteStore interface {
	// Get returns the payload and content type for key.
	// Returns ok=false if the key has never been stored.
	Get(key string) (payload []byte, contentType string, ok bool)

	// Set stores the payload and content type for key, replacing any
	// previous entry.
	Set(key string, payload []byte, contentType string) error

	// Invalidate removes the entry for key, if any.
	Invalidate(key string) error

	// Close releases any resources held by the store.
	Close() error
}
