// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsAreRegistered(t *testing.T) {
	mustNotBeNil := map[string]prometheus.Collector{
		"CryptoOperations":        CryptoOperations,
		"CryptoErrors":            CryptoErrors,
		"CryptoOperationDuration": CryptoOperationDuration,
		"SessionUnlocks":          SessionUnlocks,
		"SessionLocks":            SessionLocks,
		"SessionUnlocked":         SessionUnlocked,
		"ChatCacheHits":           ChatCacheHits,
		"ChatCacheMisses":         ChatCacheMisses,
		"ChatCacheEvictions":      ChatCacheEvictions,
		"HandshakesInitiated":     HandshakesInitiated,
		"HandshakesCompleted":     HandshakesCompleted,
		"HandshakesFailed":        HandshakesFailed,
		"HandshakeDuration":       HandshakeDuration,
		"FramesSent":              FramesSent,
		"FramesReceived":          FramesReceived,
		"FrameDecryptFailures":    FrameDecryptFailures,
	}
	for name, m := range mustNotBeNil {
		if m == nil {
			t.Errorf("%s metric is nil", name)
		}
	}
}
