package fhirschema

import (
	"sync/atomic"
	"time"
)

// Metrics tracks validation performance using lock-free atomic
// operations. All methods are safe for concurrent use.
type Metrics struct {
	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	enumerationsTotal atomic.Uint64

	// Timing, stored as nanoseconds.
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	errorsTotal atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so the first value becomes the minimum.
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// RecordValidation records a completed validation call.
func (m *Metrics) RecordValidation(duration time.Duration, errorCount int) {
	m.validationsTotal.Add(1)
	if errorCount == 0 {
		m.validationsValid.Add(1)
	}
	m.errorsTotal.Add(uint64(errorCount))

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMin.Load()
		if ns >= old {
			break
		}
		if m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordEnumeration records one element-enumeration pass.
func (m *Metrics) RecordEnumeration() {
	m.enumerationsTotal.Add(1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ValidationsTotal  uint64
	ValidationsValid  uint64
	EnumerationsTotal uint64
	ErrorsTotal       uint64

	ValidationTimeTotal time.Duration
	ValidationTimeMin   time.Duration
	ValidationTimeMax   time.Duration
}

// Snapshot returns a consistent-enough copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	min := m.validationTimeMin.Load()
	if min == ^uint64(0) {
		min = 0
	}
	return MetricsSnapshot{
		ValidationsTotal:    m.validationsTotal.Load(),
		ValidationsValid:    m.validationsValid.Load(),
		EnumerationsTotal:   m.enumerationsTotal.Load(),
		ErrorsTotal:         m.errorsTotal.Load(),
		ValidationTimeTotal: time.Duration(m.validationTimeTotal.Load()),
		ValidationTimeMin:   time.Duration(min),
		ValidationTimeMax:   time.Duration(m.validationTimeMax.Load()),
	}
}

// AverageValidationTime returns the mean duration of recorded
// validations, or 0 when none were recorded.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total)
}
