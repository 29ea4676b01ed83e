// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the cache core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actcache_cache_requests_total",
		Help: "Act lookups against the cache by result",
	}, []string{"result"}) // result=hit|miss

	inlineFills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actcache_inline_fills_total",
		Help: "Single-miss enrichments served inline from the request path",
	})

	queueEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actcache_queue_enqueued_total",
		Help: "Act ids added to the background fetch queue",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "actcache_queue_depth",
		Help: "Act ids currently pending in the fetch queue",
	})

	updateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actcache_update_errors_total",
		Help: "Background update failures by source",
	}, []string{"source"}) // source=musicbrainz|bandsintown|cache|unknown

	enrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "actcache_enrich_duration_seconds",
		Help:    "Time spent composing one act record from upstream data",
		Buckets: prometheus.DefBuckets,
	})

	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actcache_events_rejected_total",
		Help: "Raw upstream events dropped by the transformer, by reason",
	}, []string{"reason"})

	sweepCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actcache_sweep_cycles_total",
		Help: "Completed sweep cycles",
	})

	sweepEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actcache_sweep_evicted_total",
		Help: "Act records evicted for inactivity",
	})

	cacheUnhealthy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actcache_cache_unhealthy_total",
		Help: "Times the request path flagged the cache unhealthy",
	})
)

func RecordCacheHit()                    { cacheRequests.WithLabelValues("hit").Inc() }
func RecordCacheMiss()                   { cacheRequests.WithLabelValues("miss").Inc() }
func RecordInlineFill()                  { inlineFills.Inc() }
func RecordEnqueued(n int)               { queueEnqueued.Add(float64(n)) }
func SetQueueDepth(n int)                { queueDepth.Set(float64(n)) }
func RecordUpdateError(src string)       { updateErrors.WithLabelValues(src).Inc() }
func ObserveEnrichDuration(s float64)    { enrichDuration.Observe(s) }
func RecordEventsRejected(reason string) { eventsRejected.WithLabelValues(reason).Inc() }
func RecordSweepCycle()                  { sweepCycles.Inc() }
func RecordEvicted(n int)                { sweepEvicted.Add(float64(n)) }
func RecordCacheUnhealthy()              { cacheUnhealthy.Inc() }
