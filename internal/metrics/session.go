// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionUnlocks tracks SecureSession unlock transitions by path and outcome.
	SessionUnlocks = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "unlocks_total",
			Help:      "Total number of SecureSession unlock attempts",
		},
		[]string{"path", "status"}, // device/password/passkey/recovery, success/failure
	)

	// SessionLocks tracks what caused a lock transition.
	SessionLocks = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "locks_total",
			Help:      "Total number of SecureSession lock transitions",
		},
		[]string{"reason"}, // explicit, idle_timeout, background_timeout, shutdown
	)

	// SessionUnlocked reports whether the singleton session currently holds keys.
	SessionUnlocked = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "unlocked",
			Help:      "1 if the SecureSession currently holds decrypted keys, 0 otherwise",
		},
	)

	// ChatCacheHits/Misses track ChatKeyCache effectiveness.
	ChatCacheHits = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat_cache",
			Name:      "hits_total",
			Help:      "Total number of ChatKeyCache hits",
		},
	)
	ChatCacheMisses = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat_cache",
			Name:      "misses_total",
			Help:      "Total number of ChatKeyCache misses (including expired entries)",
		},
	)
	ChatCacheEvictions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat_cache",
			Name:      "evictions_total",
			Help:      "Total number of ChatKeyCache evictions",
		},
		[]string{"reason"}, // expired, capacity, removed, cleared
	)
)
