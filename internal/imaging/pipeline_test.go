// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package imaging

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/johndlloyd/monitor-the-situation/internal/cache"
	"github.com/johndlloyd/monitor-the-situation/internal/upstream"
)

type stubImageFetcher struct {
	payload []byte
	err     error
	calls   int
}

func (f *stubImageFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.payload, "image/jpeg", nil
}

type stubResolver struct {
	url string
	err error
}

func (r *stubResolver) Resolve(ctx context.Context, id string) (string, error) {
	return r.url, r.err
}

func newTestPipeline(resolver URLResolver, fetcher ImageFetcher) *Pipeline {
	return NewPipeline(resolver, fetcher, cache.NewMemoryStore(), time.Minute, time.Hour)
}

func TestPipelineAlwaysFailingFetcherYieldsPlaceholder(t *testing.T) {
	resolver := &stubResolver{url: "https://cdn.example.com/a.jpg"}
	fetcher := &stubImageFetcher{err: upstream.ErrTimeout}
	p := newTestPipeline(resolver, fetcher)
	defer p.Stop()

	res := p.ByID(context.Background(), "42")
	if res.Tier != TierPlaceholder {
		t.Fatalf("Expected placeholder tier, got %v", res.Tier)
	}
	if len(res.Payload) == 0 {
		t.Fatal("Placeholder payload is empty")
	}
	if !bytes.Equal(res.Payload, Placeholder()) {
		t.Error("Expected the shared placeholder asset")
	}
	if res.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %q", res.ContentType)
	}
}

func TestPipelineResolutionFailureYieldsPlaceholder(t *testing.T) {
	resolver := &stubResolver{err: upstream.ErrResolutionFailure}
	fetcher := &stubImageFetcher{payload: []byte("never reached")}
	p := newTestPipeline(resolver, fetcher)
	defer p.Stop()

	res := p.ByID(context.Background(), "42")
	if res.Tier != TierPlaceholder {
		t.Fatalf("Expected placeholder tier, got %v", res.Tier)
	}
	if fetcher.calls != 0 {
		t.Errorf("Fetcher should not run after resolution failure, got %d calls", fetcher.calls)
	}
}

func TestPipelineSuccessThenCacheHit(t *testing.T) {
	resolver := &stubResolver{url: "https://cdn.example.com/a.jpg"}
	fetcher := &stubImageFetcher{payload: []byte("jpeg-bytes")}
	p := newTestPipeline(resolver, fetcher)
	defer p.Stop()

	first := p.ByID(context.Background(), "42")
	if first.Tier != TierMiss {
		t.Fatalf("Expected miss tier on first fetch, got %v", first.Tier)
	}

	second := p.ByID(context.Background(), "42")
	if second.Tier != TierHit {
		t.Errorf("Expected hit tier on second fetch, got %v", second.Tier)
	}
	if fetcher.calls != 1 {
		t.Errorf("Cache hit still fetched upstream: %d calls", fetcher.calls)
	}
	if !bytes.Equal(second.Payload, []byte("jpeg-bytes")) {
		t.Errorf("Unexpected payload: %s", second.Payload)
	}
}

func TestPipelineFailureAfterSuccessServesLastGood(t *testing.T) {
	resolver := &stubResolver{url: "https://cdn.example.com/a.jpg"}
	fetcher := &stubImageFetcher{payload: []byte("good-frame")}
	store := cache.NewMemoryStore()
	p := NewPipeline(resolver, fetcher, store, time.Millisecond, time.Hour)
	defer p.Stop()

	p.ByID(context.Background(), "42")

	// Snapshot cache expires, then upstream dies.
	time.Sleep(10 * time.Millisecond)
	fetcher.err = upstream.ErrNetwork

	res := p.ByID(context.Background(), "42")
	if res.Tier != TierStale {
		t.Fatalf("Expected stale tier, got %v", res.Tier)
	}
	if !bytes.Equal(res.Payload, []byte("good-frame")) {
		t.Errorf("Expected last good frame, got %s", res.Payload)
	}
	if res.ContentType != "image/jpeg" {
		t.Errorf("Expected original content type, got %q", res.ContentType)
	}
}

func TestPipelineByURL(t *testing.T) {
	fetcher := &stubImageFetcher{payload: []byte("static-image")}
	p := newTestPipeline(&stubResolver{}, fetcher)
	defer p.Stop()

	res := p.ByURL(context.Background(), "https://cdn.example.com/static.jpg")
	if res.Tier != TierMiss {
		t.Fatalf("Expected miss tier, got %v", res.Tier)
	}

	res = p.ByURL(context.Background(), "https://cdn.example.com/static.jpg")
	if res.Tier != TierHit || fetcher.calls != 1 {
		t.Errorf("Expected cached static image, tier=%v calls=%d", res.Tier, fetcher.calls)
	}
}

func TestTierHeaders(t *testing.T) {
	tests := []struct {
		tier Tier
		want string
	}{
		{TierHit, "HIT"},
		{TierMiss, "MISS"},
		{TierStale, "STALE"},
		{TierPlaceholder, "PLACEHOLDER"},
	}
	for _, tt := range tests {
		if got := tt.tier.Header(); got != tt.want {
			t.Errorf("Header(%v) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}
