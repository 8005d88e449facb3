// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the shipper.
//
// It exposes a narrow Backend interface (counters plus duration samples) and
// a global, pluggable backend that defaults to a no-op implementation, so
// metric calls are always safe even when no backend is configured. Concrete
// systems (Datadog) live in subpackages and are selected at startup; the rest
// of the codebase depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRecord increments the per-record counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "echoed"        record re-emitted on the output stream
//   - "parse_errors"  structured parse failed
//   - "dropped"       record not inserted (structured-only parse failure)
//   - "inserted"      insert completed (including conflict-ignored rows)
//   - "insert_errors" insert failed
func RecordRecord(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("logship_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordInsert records one database round trip: outcome counter plus latency.
func RecordInsert(job string, err error, d time.Duration) {
	kind := "inserted"
	if err != nil {
		kind = "insert_errors"
	}
	RecordRecord(job, kind, 1)
	backend.ObserveHistogram("logship_insert_duration_seconds", d.Seconds(), Labels{
		"job":  job,
		"kind": kind,
	})
}
