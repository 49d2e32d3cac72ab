// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTTLBasicOperations(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get("key2")
	if exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestTTLExpiration(t *testing.T) {
	c := NewTTL(50 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")

	_, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	_, exists = c.Get("key1")
	if exists {
		t.Error("Expected key1 to be expired")
	}
}

func TestTTLPerEntryOverride(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	c.SetWithTTL("short", "v", 50*time.Millisecond)
	c.Set("long", "v")

	time.Sleep(80 * time.Millisecond)

	if _, exists := c.Get("short"); exists {
		t.Error("Expected short-lived entry to be expired")
	}
	if _, exists := c.Get("long"); !exists {
		t.Error("Expected default-TTL entry to survive")
	}
}

func TestTTLDelete(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}
}

func TestTTLClear(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	c.Clear()

	for _, key := range []string{"key1", "key2", "key3"} {
		if _, exists := c.Get(key); exists {
			t.Errorf("Expected %s to be cleared", key)
		}
	}
}

func TestTTLStats(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Get("key1") // hit
	c.Get("key1") // hit
	c.Get("miss") // miss

	stats := c.GetStats()
	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}

	rate := c.HitRate()
	if rate < 66.0 || rate > 67.0 {
		t.Errorf("Expected hit rate around 66.7, got %f", rate)
	}
}

func TestTTLConcurrentAccess(t *testing.T) {
	c := NewTTL(1 * time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}
