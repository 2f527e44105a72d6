package feather

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	RecordAdd(duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordSave is called after each save operation.
	RecordSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddTotalNanos    atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveTotalNanos   atomic.Int64
}

func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// MetricsStats is a point-in-time view of collected metrics.
type MetricsStats struct {
	AddCount        int64
	AddErrors       int64
	AddAvgNanos     int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	SaveCount       int64
	SaveErrors      int64
	SaveAvgNanos    int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() MetricsStats {
	stats := MetricsStats{
		AddCount:     b.AddCount.Load(),
		AddErrors:    b.AddErrors.Load(),
		SearchCount:  b.SearchCount.Load(),
		SearchErrors: b.SearchErrors.Load(),
		SaveCount:    b.SaveCount.Load(),
		SaveErrors:   b.SaveErrors.Load(),
	}
	if stats.AddCount > 0 {
		stats.AddAvgNanos = b.AddTotalNanos.Load() / stats.AddCount
	}
	if stats.SearchCount > 0 {
		stats.SearchAvgNanos = b.SearchTotalNanos.Load() / stats.SearchCount
	}
	if stats.SaveCount > 0 {
		stats.SaveAvgNanos = b.SaveTotalNanos.Load() / stats.SaveCount
	}
	return stats
}
