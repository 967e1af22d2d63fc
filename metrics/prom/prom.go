// Package prom adapts kestrel.MetricsCollector to Prometheus.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements kestrel.MetricsCollector and exports Prometheus
// counters and two latency histograms. Safe for concurrent use; every Prometheus
// metric type is goroutine-safe on its own.
type Adapter struct {
	hits         prometheus.Counter
	staleHits    prometheus.Counter
	storeWins    prometheus.Counter
	timeouts     prometheus.Counter
	loads        *prometheus.CounterVec
	stores       *prometheus.CounterVec
	loadLatency  prometheus.Histogram
	storeLatency prometheus.Histogram
}

// New constructs a Prometheus metrics adapter and registers its metrics
// with reg. A nil reg registers against prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "hits_total",
			Help: "Gets resolved from a fresh cached result", ConstLabels: constLabels,
		}),
		staleHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "stale_hits_total",
			Help: "Gets resolved from a stale cached result", ConstLabels: constLabels,
		}),
		storeWins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "store_wins_total",
			Help: "Sets that superseded an in-flight load", ConstLabels: constLabels,
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "timeouts_total",
			Help: "Waiter timeouts while waiting for a load or store", ConstLabels: constLabels,
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "loads_total",
			Help: "Loader.Load calls by outcome", ConstLabels: constLabels,
		}, []string{"outcome"}),
		stores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "stores_total",
			Help: "Loader.Store calls by outcome", ConstLabels: constLabels,
		}, []string{"outcome"}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "load_latency_seconds",
			Help: "Loader.Load latency", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}),
		storeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "store_latency_seconds",
			Help: "Loader.Store latency", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(a.hits, a.staleHits, a.storeWins, a.timeouts, a.loads, a.stores, a.loadLatency, a.storeLatency)
	return a
}

// RecordHit implements kestrel.MetricsCollector.
func (a *Adapter) RecordHit() { a.hits.Inc() }

// RecordStaleHit implements kestrel.MetricsCollector.
func (a *Adapter) RecordStaleHit() { a.staleHits.Inc() }

// RecordLoad implements kestrel.MetricsCollector.
func (a *Adapter) RecordLoad(latencyNanos int64, err error) {
	a.loadLatency.Observe(float64(latencyNanos) / 1e9)
	a.loads.WithLabelValues(outcome(err)).Inc()
}

// RecordStore implements kestrel.MetricsCollector.
func (a *Adapter) RecordStore(latencyNanos int64, err error) {
	a.storeLatency.Observe(float64(latencyNanos) / 1e9)
	a.stores.WithLabelValues(outcome(err)).Inc()
}

// RecordStoreWins implements kestrel.MetricsCollector.
func (a *Adapter) RecordStoreWins() { a.storeWins.Inc() }

// RecordTimeout implements kestrel.MetricsCollector.
func (a *Adapter) RecordTimeout() { a.timeouts.Inc() }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
