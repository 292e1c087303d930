// Package testutil provides testing utilities for the data logger
package testutil

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/datalogger/pkg/field"
)

// Logger returns a logger writing to the test log at warn level and above.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel))
}

// ParseFloats parses canonical text values.
func ParseFloats(t testing.TB, values []string) []float64 {
	t.Helper()
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		require.NoError(t, err, "value %d: %q", i, v)
		out[i] = f
	}
	return out
}

// RobotFields returns the fields of a mixed-type robot state group: a 20x10
// float64 matrix, a 3x3 float32 rotation, 12-element joint vectors, a
// string mode, a contact flag and scalar timing values.
func RobotFields() []field.Field {
	return []field.Field{
		field.New("time", field.Float64(0)),
		field.New("jacobian", field.Matrix64(20, 10, make([]float64, 200))),
		field.New("rot", field.Matrix32(3, 3, make([]float32, 9))),
		field.New("q", field.Vector64(make([]float64, 12)...)),
		field.New("tau", field.Vector32(make([]float32, 12)...)),
		field.New("mode", field.String("")),
		field.New("contact", field.Bool(false)),
		field.New("dt", field.Float32(0)),
		field.New("tick", field.Int64(0)),
	}
}

// RobotSample returns sample i of the RobotFields group. Every element is a
// deterministic function of i and its position, see RobotValue.
func RobotSample(i int) []field.Value {
	jac := make([]float64, 200)
	for k := range jac {
		jac[k] = RobotValue(i, k)
	}
	rot := make([]float32, 9)
	for k := range rot {
		rot[k] = float32(RobotValue(i, k))
	}
	q := make([]float64, 12)
	tau := make([]float32, 12)
	for k := range q {
		q[k] = math.Sin(RobotValue(i, k))
		tau[k] = float32(k) - float32(i)/4
	}
	mode := "stand"
	if i%3 == 0 {
		mode = "walk, trot"
	}
	return []field.Value{
		field.Float64(float64(i) * 0.0025),
		field.Matrix64(20, 10, jac),
		field.Matrix32(3, 3, rot),
		field.Vector64(q...),
		field.Vector32(tau...),
		field.String(mode),
		field.Bool(i%2 == 0),
		field.Float32(0.0025),
		field.Int64(int64(i)),
	}
}

// RobotValue is element k of the matrices of sample i.
func RobotValue(i, k int) float64 {
	return float64(i)*0.5 + float64(k)/8
}
