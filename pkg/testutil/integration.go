package testutil

import (
	"testing"
	"time"
)

// IntegrationTest skips t in short mode. Use it for tests that record whole
// runs or measure timing.
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// PerformanceTest checks the mean per-sample latency of a recording loop.
type PerformanceTest struct {
	t          *testing.T
	name       string
	maxLatency time.Duration
}

// NewPerformanceTest creates a performance test named name.
func NewPerformanceTest(t *testing.T, name string) *PerformanceTest {
	return &PerformanceTest{t: t, name: name}
}

// WithLatencyTarget sets the maximum mean latency per sample.
func (p *PerformanceTest) WithLatencyTarget(maxLatency time.Duration) *PerformanceTest {
	p.maxLatency = maxLatency
	return p
}

// Run calls fn, which records samples and reports how many it recorded and
// how long that took, and checks the result against the target.
func (p *PerformanceTest) Run(fn func() (samples int64, duration time.Duration)) {
	p.t.Helper()

	samples, duration := fn()
	if samples == 0 || duration <= 0 {
		p.t.Fatalf("performance test %s recorded nothing", p.name)
	}
	avgLatency := duration / time.Duration(samples)

	p.t.Logf("%s: %d samples in %v (%.0f samples/sec, %v per sample)",
		p.name, samples, duration, float64(samples)/duration.Seconds(), avgLatency)

	if p.maxLatency > 0 && avgLatency > p.maxLatency {
		p.t.Errorf("%s: latency %v exceeds target %v", p.name, avgLatency, p.maxLatency)
	}
}
