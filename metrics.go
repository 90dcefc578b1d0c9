package middb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    insertCounter  prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
//	    p.insertCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordQueryField is called after each field-equality query.
	RecordQueryField(hits int, duration time.Duration, err error)

	// RecordQueryEmbedding is called after each k-NN embedding query. k is
	// the requested neighbor count.
	RecordQueryEmbedding(k int, duration time.Duration, err error)

	// RecordQueryHybrid is called after each hybrid field+embedding query.
	RecordQueryHybrid(k int, duration time.Duration, err error)

	// RecordSnapshot is called after each background snapshot flush.
	RecordSnapshot(recordCount int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector. Use
// this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)              {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)              {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)              {}
func (NoopMetricsCollector) RecordQueryField(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordQueryEmbedding(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQueryHybrid(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSnapshot(int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without wiring an external
// dependency.
type BasicMetricsCollector struct {
	InsertCount     atomic.Int64
	InsertErrors    atomic.Int64
	UpdateCount     atomic.Int64
	UpdateErrors    atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
	QueryFieldCount atomic.Int64
	QueryFieldErrs  atomic.Int64
	QueryEmbCount   atomic.Int64
	QueryEmbErrs    atomic.Int64
	QueryEmbNanos   atomic.Int64
	QueryHybCount   atomic.Int64
	QueryHybErrs    atomic.Int64
	SnapshotCount   atomic.Int64
	SnapshotErrs    atomic.Int64
}

func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordUpdate(_ time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordQueryField(_ int, _ time.Duration, err error) {
	b.QueryFieldCount.Add(1)
	if err != nil {
		b.QueryFieldErrs.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordQueryEmbedding(_ int, duration time.Duration, err error) {
	b.QueryEmbCount.Add(1)
	b.QueryEmbNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryEmbErrs.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordQueryHybrid(_ int, _ time.Duration, err error) {
	b.QueryHybCount.Add(1)
	if err != nil {
		b.QueryHybErrs.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordSnapshot(_ int, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrs.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:        b.InsertCount.Load(),
		InsertErrors:       b.InsertErrors.Load(),
		UpdateCount:        b.UpdateCount.Load(),
		UpdateErrors:       b.UpdateErrors.Load(),
		DeleteCount:        b.DeleteCount.Load(),
		DeleteErrors:       b.DeleteErrors.Load(),
		QueryFieldCount:    b.QueryFieldCount.Load(),
		QueryFieldErrs:     b.QueryFieldErrs.Load(),
		QueryEmbCount:      b.QueryEmbCount.Load(),
		QueryEmbErrs:       b.QueryEmbErrs.Load(),
		QueryEmbAvgNanos:   b.getAvgQueryEmbNanos(),
		QueryHybridCount:   b.QueryHybCount.Load(),
		QueryHybridErrs:    b.QueryHybErrs.Load(),
		SnapshotCount:      b.SnapshotCount.Load(),
		SnapshotErrs:       b.SnapshotErrs.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryEmbNanos() int64 {
	count := b.QueryEmbCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryEmbNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	UpdateCount      int64
	UpdateErrors     int64
	DeleteCount      int64
	DeleteErrors     int64
	QueryFieldCount  int64
	QueryFieldErrs   int64
	QueryEmbCount    int64
	QueryEmbErrs     int64
	QueryEmbAvgNanos int64
	QueryHybridCount int64
	QueryHybridErrs  int64
	SnapshotCount    int64
	SnapshotErrs     int64
}
