// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics instruments the onera-core security machinery with
// Prometheus counters/gauges/histograms, following the same
// promauto-against-a-dedicated-registry pattern used throughout.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "onera"

// Registry is the dedicated Prometheus registry all onera-core metrics
// are registered against, so embedding applications can mount it
// alongside their own metrics without name collisions.
var Registry = prometheus.NewRegistry()
