// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import "errors"

// Sentinel errors for upstream fetch outcomes. Callers branch with
// errors.Is; the wrapped message carries the specifics.
var (
	// ErrTimeout is returned when a fetch exceeds its deadline.
	ErrTimeout = errors.New("upstream timeout")

	// ErrNetwork covers connection failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("upstream network error")

	// ErrChallengePage is returned when the upstream answered HTTP 200 but
	// the body is a bot-detection interstitial rather than data.
	ErrChallengePage = errors.New("upstream returned challenge page")

	// ErrTooManyRedirects is returned when an image fetch exceeds the
	// redirect hop cap.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrMalformedRedirect is returned when a redirect response carries a
	// missing or unparseable Location header.
	ErrMalformedRedirect = errors.New("malformed redirect")

	// ErrTargetRejected is returned when a fetch target fails the outbound
	// request guard (non-HTTPS scheme or internal address).
	ErrTargetRejected = errors.New("fetch target rejected")

	// ErrResolutionFailure is returned when a dynamic snapshot URL cannot
	// be resolved from camera metadata.
	ErrResolutionFailure = errors.New("snapshot url resolution failed")
)
