// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package cache

import "sync"

// MemoryStore is the default in-process ByteStore.
//
// Each running instance holds its own independent copy; entries are
// re-derivable from the upstream, so cross-instance inconsistency is
// bounded by normal refresh.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]byteEntry
}

type byteEntry struct {
	payload     []byte
	contentType string
}

// NewMemoryStore creates an empty in-process byte store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]byteEntry),
	}
}

// Get returns the stored payload for key.
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", false
	}
	return entry.payload, entry.contentType, true
}

// Set stores payload for key, replacing any previous entry. The payload is
// copied so callers may reuse their buffer.
func (s *MemoryStore) Set(key string, payload []byte, contentType string) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	s.mu.Lock()
	s.entries[key] = byteEntry{payload: buf, contentType: contentType}
	s.mu.Unlock()
	return nil
}

// Invalidate removes the entry for key.
func (s *MemoryStore) Invalidate(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
