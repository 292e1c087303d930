package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a sliding window of latencies for percentile
// reporting. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	next    int
	full    bool
	count   int64
	sum     time.Duration
	max     time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker keeping the last maxSize values.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LatencyTracker{
		values:  make([]time.Duration, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.values[l.next] = d
	l.next++
	if l.next == l.maxSize {
		l.next = 0
		l.full = true
	}
	l.count++
	l.sum += d
	if d > l.max {
		l.max = d
	}
}

// Percentile returns the p-th percentile (0-100) of the window. Values of p
// outside that range are clamped to it.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	switch {
	case p < 0 || math.IsNaN(p):
		p = 0
	case p > 100:
		p = 100
	}

	l.mu.Lock()
	n := l.next
	if l.full {
		n = l.maxSize
	}
	window := make([]time.Duration, n)
	copy(window, l.values[:n])
	l.mu.Unlock()

	if n == 0 {
		return 0
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
	index := int(float64(n) * p / 100)
	if index >= n {
		index = n - 1
	}
	return window[index]
}

// Summary returns the all-time count, mean and max.
func (l *LatencyTracker) Summary() (count int64, mean, peak time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return 0, 0, 0
	}
	return l.count, l.sum / time.Duration(l.count), l.max
}
