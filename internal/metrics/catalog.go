// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_catalog_requests_total",
		Help: "Catalog requests by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|transport|status|decode|circuit_open

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamres_circuit_breaker_state",
		Help: "Circuit breaker state by component (active state=1; others 0)",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips (transitions to open state)",
	}, []string{"component"})

	continuationStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamres_continuation_stops_total",
		Help: "Continuation fetches by stop reason",
	}, []string{"reason"}) // terminal|empty_page|max_depth|cycle|failed|cancelled

	continuationPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamres_continuation_pages_total",
		Help: "Continuation pages fetched from the catalog",
	})
)

var circuitStates = []string{"closed", "half-open", "open"}

// RecordCatalogRequest counts a catalog call.
func RecordCatalogRequest(operation, outcome string) {
	catalogRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetCircuitBreakerState records the active circuit breaker state for a component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(component, s).Set(value)
	}
	if state == "open" {
		circuitBreakerTrips.WithLabelValues(component).Inc()
	}
}

// RecordContinuation records how a continuation fetch ended and how many pages it pulled.
func RecordContinuation(reason string, pages int) {
	continuationStops.WithLabelValues(reason).Inc()
	continuationPages.Add(float64(pages))
}
