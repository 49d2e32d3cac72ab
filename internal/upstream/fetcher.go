// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package upstream talks to the transportation-department API on the
// dashboard's behalf. The upstream has no public CORS support, a
// bot-detection layer that serves challenge HTML with HTTP 200, and
// snapshot URLs that redirect through a rotating CDN, so this package
// owns the browser identity, payload classification, redirect handling
// and outbound target guarding for every fetch the service makes.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
	"github.com/johndlloyd/monitor-the-situation/internal/logging"
	"github.com/johndlloyd/monitor-the-situation/internal/metrics"
)

// maxBodyBytes caps how much of any upstream response is read. Camera
// manifests are tens of kilobytes and snapshots a few hundred; anything
// larger is not a response we want.
const maxBodyBytes = 16 << 20

// JSONFetcher is the surface consumed by the caches and the aggregator.
// The circuit breaker wraps this same interface.
type JSONFetcher interface {
	// FetchJSON performs a GET of path relative to the upstream base URL
	// and returns the body bytes once classified as data. The resource
	// label ("manifest", "list", "metadata") keys the fetch metrics.
	FetchJSON(ctx context.Context, path, resource string) ([]byte, error)
}

// Fetcher performs upstream HTTP requests with a browser header set,
// outbound rate limiting and per-resource timeouts. Safe for concurrent
// use.
type Fetcher struct {
	cfg     *config.UpstreamConfig
	client  *http.Client
	limiter *rate.Limiter

	// allowLocal relaxes the target guard's scheme and local-address
	// checks, for tests that fetch from a local plaintext listener.
	allowLocal bool
}

// New creates a Fetcher from upstream configuration.
func New(cfg *config.UpstreamConfig) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			// Redirects are followed manually in FetchImage so each hop
			// passes the target guard and the hop count stays bounded.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// FetchJSON fetches a JSON resource from the upstream API. The path is
// joined onto the configured base URL. Returns ErrChallengePage when the
// body is a bot-detection interstitial, ErrTimeout on deadline, ErrNetwork
// otherwise.
func (f *Fetcher) FetchJSON(ctx context.Context, path, resource string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.JSONTimeout)
	defer cancel()

	start := time.Now()
	body, _, err := f.get(ctx, f.cfg.BaseURL+path, jsonHeaders)
	if err != nil {
		metrics.RecordUpstreamRequest(resource, outcomeFor(err), time.Since(start))
		return nil, err
	}

	if IsChallengePage(body) {
		metrics.ChallengePagesDetected.Inc()
		metrics.RecordUpstreamRequest(resource, "challenge", time.Since(start))
		logging.Warn().
			Str("path", path).
			Str("preview", Preview(body)).
			Msg("Challenge page detected on HTTP 200 response")
		return nil, fmt.Errorf("%w: %s", ErrChallengePage, Preview(body))
	}

	metrics.RecordUpstreamRequest(resource, "ok", time.Since(start))
	return body, nil
}

// FetchImage fetches an image from an absolute URL, following up to
// MaxRedirects redirects manually. Every hop, including the initial URL,
// must pass the outbound target guard. Returns the payload and its
// Content-Type.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ImageTimeout)
	defer cancel()

	start := time.Now()
	target, err := validateTarget(rawURL, f.allowLocal)
	if err != nil {
		metrics.RecordUpstreamRequest("image", "ssrf", time.Since(start))
		return nil, "", err
	}

	for hop := 0; hop <= f.cfg.MaxRedirects; hop++ {
		body, resp, err := f.get(ctx, target.String(), imageHeaders)
		if err != nil {
			var redirectErr *redirectError
			if !errors.As(err, &redirectErr) {
				metrics.RecordUpstreamRequest("image", outcomeFor(err), time.Since(start))
				return nil, "", err
			}

			next, err := f.nextTarget(target, redirectErr.location)
			if err != nil {
				metrics.RecordUpstreamRequest("image", outcomeFor(err), time.Since(start))
				return nil, "", err
			}
			logging.Debug().
				Str("from", target.Host).
				Str("to", next.Host).
				Int("hop", hop+1).
				Msg("Following image redirect")
			target = next
			continue
		}

		metrics.RedirectHops.Observe(float64(hop))
		metrics.RecordUpstreamRequest("image", "ok", time.Since(start))

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		return body, contentType, nil
	}

	metrics.RecordUpstreamRequest("image", "redirect", time.Since(start))
	return nil, "", fmt.Errorf("%w: more than %d hops from %s",
		ErrTooManyRedirects, f.cfg.MaxRedirects, rawURL)
}

// redirectError carries a redirect's Location value out of get so the
// caller can decide whether to follow it.
type redirectError struct {
	status   int
	location string
}

func (e *redirectError) Error() string {
	return fmt.Sprintf("redirect %d to %q", e.status, e.location)
}

// get performs a single GET with the browser header set. Returns the body
// for HTTP 200, a *redirectError for 3xx, and a classified error otherwise.
func (f *Fetcher) get(ctx context.Context, rawURL string, profile headerProfile) ([]byte, *http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, classifyTransportErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	f.applyBrowserHeaders(req, profile)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, nil, classifyTransportErr(err)
		}
		return body, resp, nil

	case isRedirect(resp.StatusCode):
		return nil, nil, &redirectError{
			status:   resp.StatusCode,
			location: resp.Header.Get("Location"),
		}

	default:
		return nil, nil, fmt.Errorf("%w: unexpected status %d from %s",
			ErrNetwork, resp.StatusCode, req.URL.Host)
	}
}

// nextTarget resolves and guards a redirect Location against the URL that
// produced it.
func (f *Fetcher) nextTarget(from *url.URL, location string) (*url.URL, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty Location header", ErrMalformedRedirect)
	}
	next, err := from.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRedirect, location)
	}
	return validateTarget(next.String(), f.allowLocal)
}

// headerProfile selects the browser header variant for a request kind. A
// real browser sends different Accept and sec-fetch hints for an XHR data
// call than for an <img> load, and the upstream's bot-detection layer
// differentiates on them.
type headerProfile struct {
	accept string
	dest   string
	mode   string
	site   string
}

var (
	jsonHeaders = headerProfile{
		accept: "application/json, text/plain, */*",
		dest:   "empty",
		mode:   "cors",
		site:   "same-origin",
	}
	imageHeaders = headerProfile{
		accept: "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		dest:   "image",
		mode:   "no-cors",
		site:   "cross-site",
	}
)

// applyBrowserHeaders presents the configured browser identity. The
// upstream's bot-detection layer keys on the absence of these headers.
func (f *Fetcher) applyBrowserHeaders(req *http.Request, profile headerProfile) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", profile.accept)
	req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	req.Header.Set("Sec-Fetch-Dest", profile.dest)
	req.Header.Set("Sec-Fetch-Mode", profile.mode)
	req.Header.Set("Sec-Fetch-Site", profile.site)
	if f.cfg.Referer != "" {
		req.Header.Set("Referer", f.cfg.Referer)
	}
	if f.cfg.Origin != "" {
		req.Header.Set("Origin", f.cfg.Origin)
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// classifyTransportErr maps transport-level failures onto the sentinel
// taxonomy so callers can branch with errors.Is.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// outcomeFor maps a classified error onto its metric label.
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrChallengePage):
		return "challenge"
	case errors.Is(err, ErrTooManyRedirects):
		return "redirect"
	case errors.Is(err, ErrMalformedRedirect):
		return "redirect"
	case errors.Is(err, ErrTargetRejected):
		return "ssrf"
	default:
		return "network"
	}
}
