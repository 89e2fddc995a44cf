// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_download_transitions_total",
		Help: "Download state transitions by target state",
	}, []string{"state"})

	downloadsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamres_downloads_active",
		Help: "Downloads currently transferring",
	})
)

// RecordDownloadTransition counts a transition into state.
func RecordDownloadTransition(state string) {
	downloadTransitions.WithLabelValues(state).Inc()
}

// IncDownloadsActive marks a download as transferring.
func IncDownloadsActive() { downloadsActive.Inc() }

// DecDownloadsActive marks a transfer as finished.
func DecDownloadsActive() { downloadsActive.Dec() }
