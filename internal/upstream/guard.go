// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ValidateTarget checks that rawURL is a safe outbound fetch target. The
// /snapshot endpoint accepts caller-supplied URLs and snapshot redirects
// point wherever the upstream CDN says, so every target is checked before
// any connection is made: HTTPS only, and no loopback, private, link-local
// or unspecified addresses.
//
// Hostname checks apply to literal IPs; DNS names are not resolved here.
// Returns the parsed URL on success and ErrTargetRejected otherwise.
func ValidateTarget(rawURL string) (*url.URL, error) {
	return validateTarget(rawURL, false)
}

// allowLocal exempts a loopback listener (plaintext scheme, localhost
// names, loopback addresses) so in-package tests can point the fetcher at
// an httptest server. Private, link-local and unspecified addresses stay
// rejected even with the flag set. Production callers always pass false.
func validateTarget(rawURL string, allowLocal bool) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable url", ErrTargetRejected)
	}

	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && allowLocal:
	default:
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrTargetRejected, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrTargetRejected)
	}

	lower := strings.ToLower(host)
	if !allowLocal && (lower == "localhost" || strings.HasSuffix(lower, ".localhost")) {
		return nil, fmt.Errorf("%w: localhost target", ErrTargetRejected)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if allowLocal && addr.Unmap().IsLoopback() {
			return u, nil
		}
		if isInternalAddr(addr) {
			return nil, fmt.Errorf("%w: internal address %s", ErrTargetRejected, host)
		}
	}

	return u, nil
}

func isInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
