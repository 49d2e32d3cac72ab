// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package metrics

import (
	"testing"
	"time"
)

func TestFormatStatusCode(t *testing.T) {
	if got := FormatStatusCode(200); got != "200" {
		t.Errorf("expected \"200\", got %q", got)
	}
	if got := FormatStatusCode(503); got != "503" {
		t.Errorf("expected \"503\", got %q", got)
	}
}

// Metric helpers must not panic with arbitrary label values; Prometheus
// registration errors surface as panics at init, so exercising each helper
// once doubles as a registration smoke test.
func TestHelpersDoNotPanic(t *testing.T) {
	RecordAPIRequest("GET", "/camnames", "200", 10*time.Millisecond)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	RecordUpstreamRequest("manifest", "ok", 100*time.Millisecond)
	RecordUpstreamRequest("image", "timeout", 15*time.Second)
	RecordTieredResult("manifest", "fresh")
	RecordSnapshotTier("placeholder")
	ChallengePagesDetected.Inc()
	RedirectHops.Observe(3)
	AggregationBranches.WithLabelValues("merged").Inc()
	AggregationRecords.Set(42)
	CircuitBreakerState.WithLabelValues("upstream-api").Set(0)
}
