// Package metrics provides Prometheus instrumentation for the data logger.
//
// # Overview
//
// All collectors are registered with the default Prometheus registry and are
// labelled by group. Hot paths resolve their label children once, through
// ForGroup, so recording a sample costs a few atomic operations.
//
// # Basic Usage
//
//	gm := metrics.ForGroup("base")
//	start := time.Now()
//	// ... append ...
//	gm.ObserveAppend(time.Since(start))
//
// # Metric Types
//
// Counter: samples appended, flushes, flushed rows and bytes, write errors
// Gauge: bytes currently buffered per group, flush queue depth
// Histogram: append and flush latency in nanoseconds
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush triggers used as label values.
const (
	TriggerBudget   = "budget"
	TriggerExplicit = "explicit"
	TriggerClose    = "close"
)

var (
	// SamplesAppended counts accepted samples.
	// Labels: group
	SamplesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_samples_appended_total",
			Help: "Total number of samples appended",
		},
		[]string{"group"},
	)

	// AppendLatency tracks the distribution of append latencies in nanoseconds.
	// The histogram buckets are optimized for sub-millisecond latency tracking.
	AppendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "datalogger_append_latency_nanoseconds",
			Help: "Append latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns
				1000,   // 1μs
				10000,  // 10μs
				100000, // 100μs
				1e6,    // 1ms, the real-time ceiling
				1e7,
				1e8,
			},
		},
		[]string{"group"},
	)

	// Flushes counts persisted frames.
	// Labels: group, trigger (budget/explicit/close)
	Flushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_flushes_total",
			Help: "Total number of buffer flushes",
		},
		[]string{"group", "trigger"},
	)

	// FlushLatency tracks how long encoding, compressing and writing a frame takes.
	FlushLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "datalogger_flush_latency_nanoseconds",
			Help: "Frame write latency in nanoseconds",
			Buckets: []float64{
				1e4, // 10μs
				1e5, // 100μs
				1e6, // 1ms
				1e7, // 10ms
				1e8, // 100ms
				1e9, // 1s
			},
		},
		[]string{"group"},
	)

	// FlushedRows counts persisted rows.
	FlushedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_flushed_rows_total",
			Help: "Total number of rows persisted",
		},
		[]string{"group"},
	)

	// FlushedBytes counts bytes written to artifacts after compression.
	FlushedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_flushed_bytes_total",
			Help: "Total number of artifact bytes written",
		},
		[]string{"group"},
	)

	// BufferedBytes is the encoded size of samples held in memory.
	BufferedBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datalogger_buffered_bytes",
			Help: "Encoded size of buffered samples in bytes",
		},
		[]string{"group"},
	)

	// WriteErrors counts failed frame writes.
	WriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_write_errors_total",
			Help: "Total number of failed frame writes",
		},
		[]string{"group"},
	)

	// FlushQueueDepth is the number of batches waiting for the flush worker.
	FlushQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalogger_flush_queue_depth",
			Help: "Batches waiting for the flush worker",
		},
	)
)

// Group holds the label children of one group
type Group struct {
	appended      prometheus.Counter
	appendLatency prometheus.Observer
	flushLatency  prometheus.Observer
	flushedRows   prometheus.Counter
	flushedBytes  prometheus.Counter
	buffered      prometheus.Gauge
	writeErrors   prometheus.Counter
	flushes       map[string]prometheus.Counter
}

// ForGroup resolves the collectors of group.
func ForGroup(group string) *Group {
	return &Group{
		appended:      SamplesAppended.WithLabelValues(group),
		appendLatency: AppendLatency.WithLabelValues(group),
		flushLatency:  FlushLatency.WithLabelValues(group),
		flushedRows:   FlushedRows.WithLabelValues(group),
		flushedBytes:  FlushedBytes.WithLabelValues(group),
		buffered:      BufferedBytes.WithLabelValues(group),
		writeErrors:   WriteErrors.WithLabelValues(group),
		flushes: map[string]prometheus.Counter{
			TriggerBudget:   Flushes.WithLabelValues(group, TriggerBudget),
			TriggerExplicit: Flushes.WithLabelValues(group, TriggerExplicit),
			TriggerClose:    Flushes.WithLabelValues(group, TriggerClose),
		},
	}
}

// ObserveAppend records one accepted sample.
func (g *Group) ObserveAppend(d time.Duration) {
	g.appended.Inc()
	g.appendLatency.Observe(float64(d.Nanoseconds()))
}

// SetBuffered sets the buffered byte gauge.
func (g *Group) SetBuffered(bytes int64) {
	g.buffered.Set(float64(bytes))
}

// ObserveFlush records one persisted frame.
func (g *Group) ObserveFlush(trigger string, rows int, bytes int, d time.Duration) {
	if c, ok := g.flushes[trigger]; ok {
		c.Inc()
	}
	g.flushedRows.Add(float64(rows))
	g.flushedBytes.Add(float64(bytes))
	g.flushLatency.Observe(float64(d.Nanoseconds()))
}

// ObserveWriteError records a failed frame write.
func (g *Group) ObserveWriteError() {
	g.writeErrors.Inc()
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
