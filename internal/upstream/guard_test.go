// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package upstream

import (
	"errors"
	"testing"
)

func TestValidateTargetAccepts(t *testing.T) {
	urls := []string{
		"https://511.example.gov/api/cameras/list/1",
		"https://cdn.example.com/snapshots/cam-42.jpg?token=abc",
		"https://8.8.8.8/image.jpg",
	}

	for _, raw := range urls {
		if _, err := ValidateTarget(raw); err != nil {
			t.Errorf("ValidateTarget(%q) = %v, want nil", raw, err)
		}
	}
}

func TestValidateTargetRejects(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"plain http", "http://example.com/image.jpg"},
		{"ftp scheme", "ftp://example.com/file"},
		{"no scheme", "example.com/image.jpg"},
		{"localhost", "https://localhost/admin"},
		{"localhost subdomain", "https://evil.localhost/admin"},
		{"loopback v4", "https://127.0.0.1/admin"},
		{"loopback v6", "https://[::1]/admin"},
		{"private 10", "https://10.0.0.5/internal"},
		{"private 172", "https://172.16.0.1/internal"},
		{"private 192", "https://192.168.1.5/snapshot.jpg"},
		{"link local", "https://169.254.169.254/latest/meta-data"},
		{"unspecified", "https://0.0.0.0/x"},
		{"empty host", "https:///path"},
		{"garbage", "://not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTarget(tt.url)
			if err == nil {
				t.Fatalf("ValidateTarget(%q) succeeded, want rejection", tt.url)
			}
			if !errors.Is(err, ErrTargetRejected) {
				t.Errorf("Expected ErrTargetRejected, got %v", err)
			}
		})
	}
}

func TestValidateTargetRelaxedMode(t *testing.T) {
	// The in-package test hook admits a plaintext loopback listener but
	// nothing else: private and link-local ranges stay rejected so
	// redirect-hop guarding remains observable under the flag.
	accepted := []string{
		"http://127.0.0.1:39217/cam.jpg",
		"http://[::1]:39217/cam.jpg",
		"https://cdn.example.com/cam.jpg",
	}
	for _, raw := range accepted {
		if _, err := validateTarget(raw, true); err != nil {
			t.Errorf("validateTarget(%q, relaxed) = %v, want nil", raw, err)
		}
	}

	rejected := []string{
		"https://192.168.1.5/snapshot.jpg",
		"https://10.0.0.5/internal",
		"https://169.254.169.254/latest/meta-data",
		"https://0.0.0.0/x",
	}
	for _, raw := range rejected {
		if _, err := validateTarget(raw, true); !errors.Is(err, ErrTargetRejected) {
			t.Errorf("validateTarget(%q, relaxed) = %v, want ErrTargetRejected", raw, err)
		}
	}
}

func TestValidateTargetMappedV4(t *testing.T) {
	// IPv4-mapped IPv6 form of a private address must not slip through.
	if _, err := ValidateTarget("https://[::ffff:192.168.1.5]/x"); err == nil {
		t.Error("Expected rejection of mapped private address")
	}
}
