// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandshakesInitiated tracks Noise_NK handshakes started by this initiator.
	HandshakesInitiated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "noise",
			Name:      "handshakes_initiated_total",
			Help:      "Total number of Noise_NK handshakes initiated",
		},
	)

	// HandshakesCompleted/Failed track handshake outcomes.
	HandshakesCompleted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "noise",
			Name:      "handshakes_completed_total",
			Help:      "Total number of Noise_NK handshakes completed successfully",
		},
	)
	HandshakesFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "noise",
			Name:      "handshakes_failed_total",
			Help:      "Total number of Noise_NK handshake failures",
		},
		[]string{"reason"}, // attestation_invalid, transport_error, decrypt_error, timeout
	)

	// HandshakeDuration tracks wall-clock handshake latency.
	HandshakeDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "noise",
			Name:      "handshake_duration_seconds",
			Help:      "Noise_NK handshake duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// FramesSent/Received track transport-cipher frame counts.
	FramesSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "frames_sent_total",
			Help:      "Total number of encrypted frames sent over an InferenceChannel",
		},
	)
	FramesReceived = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "frames_received_total",
			Help:      "Total number of encrypted frames received over an InferenceChannel",
		},
	)
	FrameDecryptFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "frame_decrypt_failures_total",
			Help:      "Total number of fatal inbound frame decryption failures",
		},
	)
)
