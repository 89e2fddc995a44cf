// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_resolutions_total",
		Help: "Stream resolutions by the layer that answered them",
	}, []string{"source"}) // source=range_cache|memo|catalog

	resolutionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_resolution_errors_total",
		Help: "Failed stream resolutions by error code",
	}, []string{"code"})

	resolutionsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamres_resolutions_coalesced_total",
		Help: "Cold resolutions that joined an in-flight resolution for the same content id",
	})

	coldResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamres_cold_resolution_duration_seconds",
		Help:    "Latency of cold (catalog-backed) resolutions",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	memoEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamres_memo_evictions_total",
		Help: "Entries evicted from the resolution memo",
	})

	selectedItag = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_selected_itag_total",
		Help: "Formats chosen by the quality policy",
	}, []string{"itag", "tier"})

	rangeCacheBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamres_rangecache_bytes_written_total",
		Help: "Bytes written into the range cache",
	})
)

// RecordResolution counts a successful resolution answered by source.
func RecordResolution(source string) {
	resolutionsTotal.WithLabelValues(source).Inc()
}

// RecordResolutionError counts a failed resolution.
func RecordResolutionError(code string) {
	resolutionErrorsTotal.WithLabelValues(code).Inc()
}

// RecordCoalesced counts a caller that shared another caller's flight.
func RecordCoalesced() {
	resolutionsCoalesced.Inc()
}

// ObserveColdResolution records the duration of a catalog-backed resolution.
func ObserveColdResolution(seconds float64) {
	coldResolutionDuration.Observe(seconds)
}

// RecordMemoEviction counts a FIFO eviction from the memo.
func RecordMemoEviction() {
	memoEvictions.Inc()
}

// RecordSelectedFormat counts the itag picked for a tier.
func RecordSelectedFormat(itag, tier string) {
	selectedItag.WithLabelValues(itag, tier).Inc()
}

// AddRangeCacheBytes accounts bytes persisted into the range cache.
func AddRangeCacheBytes(n int) {
	rangeCacheBytesWritten.Add(float64(n))
}
