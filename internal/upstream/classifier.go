// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"bytes"
	"strings"
)

// The upstream's bot-detection layer serves challenge interstitials with
// HTTP 200 and a Content-Type that cannot be trusted, so status codes and
// headers are useless for telling data from challenge. The one reliable
// signal is the payload shape: every data response is a JSON document.

// previewLimit bounds how much of a rejected body is kept for diagnostics.
const previewLimit = 100

// IsChallengePage reports whether an HTTP-200 body is a challenge
// interstitial rather than JSON data. The first non-whitespace byte of
// every valid upstream response is '{' or '['; anything else (typically
// '<' from HTML) is a challenge page.
// utf8BOM occasionally prefixes otherwise valid JSON from the upstream.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

func IsChallengePage(body []byte) bool {
	body = bytes.TrimPrefix(body, utf8BOM)
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return false
		default:
			return true
		}
	}
	// Empty or all-whitespace bodies are not data either.
	return true
}

// Preview returns a sanitized excerpt of body for logs and error payloads.
// Control characters are replaced and the excerpt is capped so challenge
// HTML cannot flood logs or response bodies.
func Preview(body []byte) string {
	excerpt := body
	truncated := false
	if len(excerpt) > previewLimit {
		excerpt = excerpt[:previewLimit]
		truncated = true
	}

	var sb strings.Builder
	sb.Grow(len(excerpt))
	for _, b := range excerpt {
		if b < 0x20 || b == 0x7f {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte(b)
		}
	}

	out := strings.Join(strings.Fields(sb.String()), " ")
	if truncated {
		out += "..."
	}
	return out
}
