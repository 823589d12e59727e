// Package telemetry holds the process-wide prometheus collectors and the
// prefixed-logger convention used across dealwatch.
package telemetry

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CatalogFetches counts price fetch pipelines by outcome ("ok"/"error").
	CatalogFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealwatch",
		Name:      "catalog_fetches_total",
		Help:      "Price history fetch pipelines by outcome.",
	}, []string{"outcome"})

	// Predictions counts predictor runs by outcome ("predicted"/"skipped").
	Predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealwatch",
		Name:      "predictions_total",
		Help:      "Sale predictions by outcome.",
	}, []string{"outcome"})

	// DiscoveryRetries counts scheduled discovery retries.
	DiscoveryRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dealwatch",
		Name:      "discovery_retries_total",
		Help:      "Scheduled debug-endpoint discovery retries.",
	})

	// Sessions counts session lifecycle transitions ("started"/"stopped").
	Sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealwatch",
		Name:      "sessions_total",
		Help:      "Debug session starts and stops.",
	}, []string{"event"})

	// SessionState gauges the current session state machine position
	// (0 idle, 1 discovering, 2 connected).
	SessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dealwatch",
		Name:      "session_state",
		Help:      "Current debug session state (0 idle, 1 discovering, 2 connected).",
	})

	// RateLookups counts exchange-rate lookups by source ("cache"/"remote"/"error").
	RateLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealwatch",
		Name:      "rate_lookups_total",
		Help:      "Exchange rate lookups by source.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(
		CatalogFetches,
		Predictions,
		DiscoveryRetries,
		Sessions,
		SessionState,
		RateLookups,
	)
}

// Logger returns a logger with the shared bracketed-prefix convention.
func Logger(prefix string) *log.Logger {
	return log.New(log.Writer(), "["+prefix+"] ", log.LstdFlags)
}
