package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the threading service
var (
	threadRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threading_requests_total",
		Help: "Total number of thread requests",
	}, []string{"algorithm", "status"})

	threadBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threading_build_duration_seconds",
		Help:    "Time spent building thread forests",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"algorithm"})

	messagesThreaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threading_messages_threaded_total",
		Help: "Total number of messages run through the threading engine",
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threading_cache_hits_total",
		Help: "Thread cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threading_cache_misses_total",
		Help: "Thread cache misses",
	})
)
