// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

// Package metrics provides Prometheus instrumentation.
//
// Metrics are registered with the default registry via promauto and exposed
// at /metrics by the API router. Label cardinality is kept deliberately low:
// upstream resources are labeled by class ("manifest", "list", "metadata",
// "image"), never by individual camera ID.
package metrics
