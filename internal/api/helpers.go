// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/johndlloyd/monitor-the-situation/internal/logging"
)

// Cache-Control values per payload class. JSON manifests tolerate being a
// few minutes old and browsers may revalidate lazily; images rotate every
// minute upstream so they get the short directive.
const (
	jsonCacheControl  = "public, max-age=300, stale-while-revalidate=600"
	imageCacheControl = "public, max-age=60"
	noCacheControl    = "no-store"
)

// sanitizeLogValue removes control characters from strings to prevent log
// injection. Query parameters are attacker-controlled and end up in log
// lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSONBytes sends a pre-marshaled JSON payload with caching headers.
func writeJSONBytes(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", jsonCacheControl)
	}
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("ETag", generateETag(payload))

	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// writeJSON marshals v and sends it with caching headers.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, status, payload)
}

// writeImage sends image bytes with the short image cache directive.
func writeImage(w http.ResponseWriter, payload []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to write image response")
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Preview string `json:"preview,omitempty"`
}

// writeError sends an error response. Errors are never cacheable.
func writeError(w http.ResponseWriter, status int, code, preview string) {
	w.Header().Set("Cache-Control", noCacheControl)
	writeJSON(w, status, errorBody{Error: code, Preview: preview})
}

// generateETag creates a simple ETag from data using FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}
