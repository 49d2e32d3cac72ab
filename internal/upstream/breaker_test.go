// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
)

type stubFetcher struct {
	calls int
	body  []byte
	err   error
}

func (s *stubFetcher) FetchJSON(ctx context.Context, path, resource string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

func breakerConfig() *config.UpstreamConfig {
	return &config.UpstreamConfig{
		BreakerEnabled:     true,
		BreakerMaxRequests: 3,
		BreakerInterval:    time.Minute,
		BreakerTimeout:     2 * time.Minute,
	}
}

func TestBreakerDisabledReturnsInner(t *testing.T) {
	inner := &stubFetcher{}
	cfg := breakerConfig()
	cfg.BreakerEnabled = false

	wrapped := NewBreakerFetcher(inner, cfg)
	if wrapped != inner {
		t.Errorf("Expected inner fetcher back when breaker disabled, got %T", wrapped)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &stubFetcher{body: []byte(`{"ok":true}`)}
	wrapped := NewBreakerFetcher(inner, breakerConfig())

	body, err := wrapped.FetchJSON(context.Background(), "/api/x", "manifest")
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestBreakerOpensAfterSustainedFailures(t *testing.T) {
	inner := &stubFetcher{err: ErrChallengePage}
	wrapped := NewBreakerFetcher(inner, breakerConfig())

	// Trip threshold is 60% failures over at least 10 requests.
	for i := 0; i < 12; i++ {
		wrapped.FetchJSON(context.Background(), "/api/x", "manifest")
	}

	callsBefore := inner.calls
	_, err := wrapped.FetchJSON(context.Background(), "/api/x", "manifest")
	if err == nil {
		t.Fatal("Expected error from open circuit")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Open-circuit error should classify as ErrNetwork, got %v", err)
	}
	if inner.calls != callsBefore {
		t.Errorf("Open circuit still contacted inner fetcher (%d calls)", inner.calls-callsBefore)
	}
}
