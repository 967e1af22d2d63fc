// Package otelmetrics adapts kestrel.MetricsCollector to OpenTelemetry.
//
// Folded into the main module (the teacher shipped this as a separate
// nested module purely to keep its go.mod free of the OTEL dependency
// for consumers who don't need it); here it lives alongside the
// Prometheus adapter under metrics/.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package otelmetrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
)

// ErrNilMeterProvider is returned by New when provider is nil.
var ErrNilMeterProvider = errors.New("otelmetrics: meter provider cannot be nil")

// Collector implements kestrel.MetricsCollector using OpenTelemetry.
// Instruments are thread-safe and allocation-free after construction.
type Collector struct {
	hits        metric.Int64Counter
	staleHits   metric.Int64Counter
	storeWins   metric.Int64Counter
	timeouts    metric.Int64Counter
	loadOK      metric.Int64Counter
	loadErr     metric.Int64Counter
	storeOK     metric.Int64Counter
	storeErr    metric.Int64Counter
	loadLatency  metric.Int64Histogram
	storeLatency metric.Int64Histogram
}

// Options configures a Collector.
type Options struct {
	// MeterName names the OpenTelemetry meter. Default:
	// "github.com/kestrel-cache/kestrel".
	MeterName string
}

// Option is a functional option for New.
type Option func(*Options)

// WithMeterName overrides the default meter name.
func WithMeterName(name string) Option {
	return func(o *Options) { o.MeterName = name }
}

// New creates an OpenTelemetry-backed metrics collector against provider.
func New(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, ErrNilMeterProvider
	}

	options := Options{MeterName: "github.com/kestrel-cache/kestrel"}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	c := &Collector{}

	var err error
	if c.hits, err = meter.Int64Counter("kestrel_hits_total", metric.WithDescription("Gets resolved from a fresh cached result")); err != nil {
		return nil, err
	}
	if c.staleHits, err = meter.Int64Counter("kestrel_stale_hits_total", metric.WithDescription("Gets resolved from a stale cached result")); err != nil {
		return nil, err
	}
	if c.storeWins, err = meter.Int64Counter("kestrel_store_wins_total", metric.WithDescription("Sets that superseded an in-flight load")); err != nil {
		return nil, err
	}
	if c.timeouts, err = meter.Int64Counter("kestrel_timeouts_total", metric.WithDescription("Waiter timeouts")); err != nil {
		return nil, err
	}
	if c.loadOK, err = meter.Int64Counter("kestrel_loads_success_total", metric.WithDescription("Successful Loader.Load calls")); err != nil {
		return nil, err
	}
	if c.loadErr, err = meter.Int64Counter("kestrel_loads_error_total", metric.WithDescription("Failed Loader.Load calls")); err != nil {
		return nil, err
	}
	if c.storeOK, err = meter.Int64Counter("kestrel_stores_success_total", metric.WithDescription("Successful Loader.Store calls")); err != nil {
		return nil, err
	}
	if c.storeErr, err = meter.Int64Counter("kestrel_stores_error_total", metric.WithDescription("Failed Loader.Store calls")); err != nil {
		return nil, err
	}
	if c.loadLatency, err = meter.Int64Histogram("kestrel_load_latency_ns", metric.WithDescription("Loader.Load latency"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.storeLatency, err = meter.Int64Histogram("kestrel_store_latency_ns", metric.WithDescription("Loader.Store latency"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}

	return c, nil
}

// RecordHit implements kestrel.MetricsCollector.
func (c *Collector) RecordHit() { c.hits.Add(context.Background(), 1) }

// RecordStaleHit implements kestrel.MetricsCollector.
func (c *Collector) RecordStaleHit() { c.staleHits.Add(context.Background(), 1) }

// RecordLoad implements kestrel.MetricsCollector.
func (c *Collector) RecordLoad(latencyNanos int64, err error) {
	ctx := context.Background()
	c.loadLatency.Record(ctx, latencyNanos)
	if err != nil {
		c.loadErr.Add(ctx, 1)
		return
	}
	c.loadOK.Add(ctx, 1)
}

// RecordStore implements kestrel.MetricsCollector.
func (c *Collector) RecordStore(latencyNanos int64, err error) {
	ctx := context.Background()
	c.storeLatency.Record(ctx, latencyNanos)
	if err != nil {
		c.storeErr.Add(ctx, 1)
		return
	}
	c.storeOK.Add(ctx, 1)
}

// RecordStoreWins implements kestrel.MetricsCollector.
func (c *Collector) RecordStoreWins() { c.storeWins.Add(context.Background(), 1) }

// RecordTimeout implements kestrel.MetricsCollector.
func (c *Collector) RecordTimeout() { c.timeouts.Add(context.Background(), 1) }
