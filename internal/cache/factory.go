// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package cache

import "fmt"

// Backend names accepted by NewByteStore.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// NewByteStore creates the ByteStore named by backend. The badger backend
// requires a filesystem path.
func NewByteStore(backend, path string) (ByteStore, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		if path == "" {
			return nil, fmt.Errorf("badger backend requires a store path")
		}
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
