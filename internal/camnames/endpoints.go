// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package camnames

import (
	"fmt"

	"github.com/johndlloyd/monitor-the-situation/internal/config"
)

// Candidate is one endpoint the fan-out probes. Source labels the branch
// in logs and metrics; Priority orders the merge (lower wins first).
type Candidate struct {
	Path   string
	Source string
}

// Candidates builds the probe list in merge-priority order: the numbered
// list endpoints, then the alternates, then the coordinates manifest.
// Which of these are actually populated varies week to week, which is why
// all of them are probed every cycle.
func Candidates(cfg *config.UpstreamConfig) []Candidate {
	candidates := make([]Candidate, 0, cfg.ListEndpointCount+len(cfg.AlternateEndpoints)+1)

	for i := 1; i <= cfg.ListEndpointCount; i++ {
		candidates = append(candidates, Candidate{
			Path:   fmt.Sprintf(cfg.ListEndpointPattern, i),
			Source: fmt.Sprintf("list-%d", i),
		})
	}

	for i, path := range cfg.AlternateEndpoints {
		candidates = append(candidates, Candidate{
			Path:   path,
			Source: fmt.Sprintf("alternate-%d", i+1),
		})
	}

	if cfg.CoordinatesEndpoint != "" {
		candidates = append(candidates, Candidate{
			Path:   cfg.CoordinatesEndpoint,
			Source: "coordinates",
		})
	}

	return candidates
}
