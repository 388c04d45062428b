// Package metrics exposes Prometheus instrumentation for the threat
// pipeline. All collectors are registered on the default registry via
// promauto and served by the metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanDuration times scanner invocations by kind (shallow, deep).
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tg_scan_duration_seconds",
			Help:    "Time spent scanning inputs for threats",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
		[]string{"kind"},
	)

	// ThreatsDetected counts matched signatures by key and severity.
	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tg_threats_detected_total",
			Help: "Threat signature matches",
		},
		[]string{"type", "severity"},
	)

	// Decisions counts policy outcomes by action and context.
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tg_decisions_total",
			Help: "Decision policy outcomes",
		},
		[]string{"action", "context"},
	)

	// BannedRequests counts requests short-circuited by the ban list,
	// by identity kind.
	BannedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tg_banned_requests_total",
			Help: "Requests denied because the identity is banned",
		},
		[]string{"kind"},
	)

	// Escalations counts automatic ban insertions by identity kind and
	// outcome (success, degraded).
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tg_escalations_total",
			Help: "Automatic ban escalations",
		},
		[]string{"kind", "outcome"},
	)

	// BanStoreOps counts enforcement-cache operations by op and outcome.
	BanStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tg_ban_store_operations_total",
			Help: "Ban store operations",
		},
		[]string{"op", "outcome"},
	)

	// BanStoreSize tracks the fast-tier entry count per identity kind.
	BanStoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tg_ban_store_size",
			Help: "Entries in the fast tier of the ban store",
		},
		[]string{"kind"},
	)

	// ScanCacheHits and ScanCacheMisses track the scanner result cache.
	ScanCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tg_scan_cache_hits_total",
			Help: "Scanner result cache hits",
		},
	)
	ScanCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tg_scan_cache_misses_total",
			Help: "Scanner result cache misses",
		},
	)
)
