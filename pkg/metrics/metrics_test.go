package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGroupMetrics(t *testing.T) {
	gm := ForGroup("metrics_test")

	gm.ObserveAppend(2 * time.Microsecond)
	gm.ObserveAppend(3 * time.Microsecond)
	gm.SetBuffered(512)
	gm.ObserveFlush(TriggerBudget, 2, 100, time.Millisecond)
	gm.ObserveFlush("unknown", 1, 10, time.Millisecond)
	gm.ObserveWriteError()

	assert.Equal(t, 2.0, testutil.ToFloat64(SamplesAppended.WithLabelValues("metrics_test")))
	assert.Equal(t, 512.0, testutil.ToFloat64(BufferedBytes.WithLabelValues("metrics_test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Flushes.WithLabelValues("metrics_test", TriggerBudget)))
	assert.Equal(t, 3.0, testutil.ToFloat64(FlushedRows.WithLabelValues("metrics_test")))
	assert.Equal(t, 110.0, testutil.ToFloat64(FlushedBytes.WithLabelValues("metrics_test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WriteErrors.WithLabelValues("metrics_test")))
}

func TestLatencyTracker(t *testing.T) {
	lt := NewLatencyTracker(4)
	for _, us := range []int{5, 1, 3, 2, 4} {
		lt.Record(time.Duration(us) * time.Microsecond)
	}

	// The window holds the last four values: 1, 3, 2, 4.
	assert.Equal(t, 4*time.Microsecond, lt.Percentile(100))
	assert.Equal(t, 1*time.Microsecond, lt.Percentile(0))

	assert.Equal(t, 4*time.Microsecond, lt.Percentile(250))
	assert.Equal(t, 1*time.Microsecond, lt.Percentile(-1))
	assert.Equal(t, 1*time.Microsecond, lt.Percentile(math.NaN()))
	assert.Zero(t, NewLatencyTracker(4).Percentile(-5))

	count, mean, peak := lt.Summary()
	assert.Equal(t, int64(5), count)
	assert.Equal(t, 3*time.Microsecond, mean)
	assert.Equal(t, 5*time.Microsecond, peak)
}

func TestTimer(t *testing.T) {
	timer := NewTimer("flush")
	assert.Equal(t, "flush", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Duration(0))
}
