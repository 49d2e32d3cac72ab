// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

type countingSweeper struct {
	calls   atomic.Int32
	removed int
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return s.removed
}

func (s *countingSweeper) Name() string { return "test-cache" }

func TestRefreshServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*RefreshService)(nil)
}

func TestNewRefreshServiceDefaultInterval(t *testing.T) {
	svc := NewRefreshService(&countingRefresher{}, 0)
	if svc.interval != 10*time.Minute {
		t.Errorf("expected default interval 10m, got %v", svc.interval)
	}
}

func TestRefreshServiceWarmsImmediately(t *testing.T) {
	refresher := &countingRefresher{}
	sweeper := &countingSweeper{removed: 2}
	svc := NewRefreshService(refresher, time.Hour, sweeper)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	deadline := time.After(time.Second)
	for refresher.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial refresh never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if refresher.calls.Load() != 1 {
		t.Errorf("expected 1 refresh, got %d", refresher.calls.Load())
	}
	if sweeper.calls.Load() != 1 {
		t.Errorf("expected 1 sweep, got %d", sweeper.calls.Load())
	}
}

func TestRefreshServiceTicksRepeatedly(t *testing.T) {
	refresher := &countingRefresher{}
	svc := NewRefreshService(refresher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	deadline := time.After(time.Second)
	for refresher.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 refreshes, got %d", refresher.calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	<-errCh
}

func TestRefreshServiceSurvivesRefreshErrors(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("upstream down")}
	svc := NewRefreshService(refresher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	deadline := time.After(time.Second)
	for refresher.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected retries despite errors, got %d calls", refresher.calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestRefreshServiceString(t *testing.T) {
	svc := NewRefreshService(&countingRefresher{}, time.Minute)
	if svc.String() != "refresh-maintenance" {
		t.Errorf("expected 'refresh-maintenance', got %q", svc.String())
	}
}
