// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"strings"
	"testing"
)

func TestIsChallengePage(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		challenge bool
	}{
		{"json object", `{"cameras":[]}`, false},
		{"json array", `[{"id":"cam-1"}]`, false},
		{"leading whitespace object", "\n\t {\"a\":1}", false},
		{"leading whitespace array", "  \r\n[1,2]", false},
		{"utf8 bom object", "\xef\xbb\xbf{\"a\":1}", false},
		{"utf8 bom then whitespace", "\xef\xbb\xbf \n[1]", false},
		{"html challenge", "<!DOCTYPE html><html><head>Checking your browser", true},
		{"html fragment", "<html><body>Access denied</body></html>", true},
		{"plain text", "Service temporarily unavailable", true},
		{"empty body", "", true},
		{"whitespace only", " \n\t ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChallengePage([]byte(tt.body)); got != tt.challenge {
				t.Errorf("IsChallengePage(%q) = %v, want %v", tt.body, got, tt.challenge)
			}
		})
	}
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := Preview([]byte(long))

	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected truncation marker, got %q", got)
	}
	if len(got) > previewLimit+3 {
		t.Errorf("Preview too long: %d bytes", len(got))
	}
}

func TestPreviewSanitizesControlCharacters(t *testing.T) {
	got := Preview([]byte("<html>\x00\x01\n  <body>challenge</body>"))

	if strings.ContainsAny(got, "\x00\x01\n") {
		t.Errorf("Control characters leaked into preview: %q", got)
	}
	if got != "<html> <body>challenge</body>" {
		t.Errorf("Unexpected preview: %q", got)
	}
}

func TestPreviewShortBodyUnmarked(t *testing.T) {
	if got := Preview([]byte("short")); got != "short" {
		t.Errorf("Expected %q, got %q", "short", got)
	}
}
