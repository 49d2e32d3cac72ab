// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
)

// BreakerFetcher wraps a JSONFetcher with a circuit breaker so a flapping
// or challenge-serving upstream stops consuming the fan-out's time. An
// open circuit fails fast; the tiered caches then fall back to stale data,
// which is exactly the degraded behavior the dashboard wants.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped fetcher directly or wait out the
// configured windows.
type BreakerFetcher struct {
	inner JSONFetcher
	cb    *gobreaker.CircuitBreaker[[]byte]
	name  string
}

// NewBreakerFetcher wraps inner with a circuit breaker configured from
// cfg. If the breaker is disabled in config, inner is returned unchanged.
//
// Circuit breaker behavior:
//   - Opens after 60% failure rate with minimum 10 requests
//   - Allows cfg.BreakerMaxRequests probes in half-open state
//   - Resets counts every cfg.BreakerInterval while closed
//   - Waits cfg.BreakerTimeout before transitioning open to half-open
func NewBreakerFetcher(inner JSONFetcher, cfg *config.UpstreamConfig) JSONFetcher {
	if !cfg.BreakerEnabled {
		return inner
	}

	cbName := "upstream-json"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerFetcher{
		inner: inner,
		cb:    cb,
		name:  cbName,
	}
}

// FetchJSON routes the fetch through the circuit breaker. When the circuit
// is open the upstream is not contacted at all and the returned error
// classifies as ErrNetwork, so cache fallback logic treats it like any
// other upstream failure.
func (bf *BreakerFetcher) FetchJSON(ctx context.Context, path, resource string) ([]byte, error) {
	body, err := bf.cb.Execute(func() ([]byte, error) {
		return bf.inner.FetchJSON(ctx, path, resource)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bf.name, "rejected").Inc()
			return nil, errors.Join(ErrNetwork, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(bf.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bf.name, "success").Inc()
	return body, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
