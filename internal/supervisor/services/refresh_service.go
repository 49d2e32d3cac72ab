// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package services

import (
	"context"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/logging"
)

// Refresher rebuilds a cached artifact ahead of its expiry. The camera
// name aggregator is the canonical implementation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Sweeper drops expired entries from a cache.
type Sweeper interface {
	Sweep() int
	Name() string
}

// RefreshService periodically refreshes the camera name map and sweeps
// the tiered caches so dead entries do not accumulate between requests.
type RefreshService struct {
	refresher Refresher
	sweepers  []Sweeper
	interval  time.Duration
}

// NewRefreshService builds the maintenance loop. The interval should be
// shorter than the name map's fresh TTL so clients rarely pay for a
// synchronous rebuild.
func NewRefreshService(refresher Refresher, interval time.Duration, sweepers ...Sweeper) *RefreshService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &RefreshService{
		refresher: refresher,
		sweepers:  sweepers,
		interval:  interval,
	}
}

// Serve implements suture.Service. Refresh failures are logged and
// retried on the next tick; the tiered cache keeps serving stale data
// in the meantime.
func (s *RefreshService) Serve(ctx context.Context) error {
	// Warm the name map immediately rather than waiting a full interval.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug().Msg("Refresh service stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RefreshService) runOnce(ctx context.Context) {
	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn().Err(err).Msg("Camera name refresh failed; stale map remains in service")
		}
	}

	for _, sw := range s.sweepers {
		if removed := sw.Sweep(); removed > 0 {
			logging.Debug().
				Str("cache", sw.Name()).
				Int("removed", removed).
				Msg("Swept expired cache entries")
		}
	}
}

func (s *RefreshService) String() string {
	return "refresh-maintenance"
}
