// Package field encodes named telemetry values into flattened scalar
// columns.
//
// A Value is a tagged union over the supported kinds: float64, float32,
// int64, bool and string scalars, float64/float32 vectors and row-major
// float64/float32 matrices. Composite values flatten into one column per
// element: vector F of length N becomes F_1..F_N and an R×C matrix F becomes
// F_1_1, F_1_2, ... F_R_C with the row index outermost.
package field

import (
	"fmt"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
)

// Shape describes how a value's scalars are arranged.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeVector
	ShapeMatrix
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeVector:
		return "vector"
	case ShapeMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Value is one telemetry value of a supported kind. The zero Value is
// invalid and is rejected by SpecOf and Spec.Check.
type Value struct {
	typ   columnar.Type
	shape Shape
	rows  int
	cols  int

	f64  float64
	f32  float32
	i64  int64
	b    bool
	s    string
	f64s []float64
	f32s []float32
}

// Float64 returns a float64 scalar value.
func Float64(v float64) Value {
	return Value{typ: columnar.TypeFloat64, shape: ShapeScalar, rows: 1, cols: 1, f64: v}
}

// Float32 returns a float32 scalar value.
func Float32(v float32) Value {
	return Value{typ: columnar.TypeFloat32, shape: ShapeScalar, rows: 1, cols: 1, f32: v}
}

// Int64 returns an integer scalar value.
func Int64(v int64) Value {
	return Value{typ: columnar.TypeInt64, shape: ShapeScalar, rows: 1, cols: 1, i64: v}
}

// Bool returns a boolean scalar value.
func Bool(v bool) Value {
	return Value{typ: columnar.TypeBool, shape: ShapeScalar, rows: 1, cols: 1, b: v}
}

// String returns a text scalar value.
func String(v string) Value {
	return Value{typ: columnar.TypeString, shape: ShapeScalar, rows: 1, cols: 1, s: v}
}

// Vector64 returns a float64 vector. The slice is not copied; its contents
// are read when the value is appended.
func Vector64(v ...float64) Value {
	return Value{typ: columnar.TypeFloat64, shape: ShapeVector, rows: len(v), cols: 1, f64s: v}
}

// Vector32 returns a float32 vector.
func Vector32(v ...float32) Value {
	return Value{typ: columnar.TypeFloat32, shape: ShapeVector, rows: len(v), cols: 1, f32s: v}
}

// Matrix64 returns a rows×cols float64 matrix backed by row-major data.
// A data length other than rows*cols is reported when the value is checked.
func Matrix64(rows, cols int, data []float64) Value {
	return Value{typ: columnar.TypeFloat64, shape: ShapeMatrix, rows: rows, cols: cols, f64s: data}
}

// Matrix32 returns a rows×cols float32 matrix backed by row-major data.
func Matrix32(rows, cols int, data []float32) Value {
	return Value{typ: columnar.TypeFloat32, shape: ShapeMatrix, rows: rows, cols: cols, f32s: data}
}

// Type returns the scalar type of the value's elements.
func (v Value) Type() columnar.Type { return v.typ }

// Shape returns the value's arrangement.
func (v Value) Shape() Shape { return v.shape }

// Dims returns the declared rows and columns. Scalars are 1×1 and vectors
// are N×1.
func (v Value) Dims() (rows, cols int) { return v.rows, v.cols }

// Len returns the number of scalars the value flattens into.
func (v Value) Len() int {
	if v.shape == ShapeScalar {
		return 1
	}
	return v.rows * v.cols
}

// Signature describes the kind and shape, e.g. "float64", "vector<float32>[3]"
// or "matrix<float64>[3x3]".
func (v Value) Signature() string {
	return signature(v.typ, v.shape, v.rows, v.cols)
}

func signature(t columnar.Type, shape Shape, rows, cols int) string {
	switch shape {
	case ShapeVector:
		return fmt.Sprintf("vector<%s>[%d]", t, rows)
	case ShapeMatrix:
		return fmt.Sprintf("matrix<%s>[%dx%d]", t, rows, cols)
	default:
		return t.String()
	}
}

// valid reports whether the value is internally consistent.
func (v Value) valid() error {
	if v.typ == columnar.TypeInvalid {
		return fmt.Errorf("value has no type")
	}
	switch v.shape {
	case ShapeScalar:
		return nil
	case ShapeVector, ShapeMatrix:
		if v.rows <= 0 || v.cols <= 0 {
			return fmt.Errorf("%s has no elements", v.Signature())
		}
		n := len(v.f64s)
		if v.typ == columnar.TypeFloat32 {
			n = len(v.f32s)
		}
		if n != v.rows*v.cols {
			return fmt.Errorf("%s backed by %d elements", v.Signature(), n)
		}
		return nil
	default:
		return fmt.Errorf("unknown shape %s", v.shape)
	}
}

// AppendTo writes the value's scalars into cols, one column per flattened
// element in column order. The caller must have checked the value against
// the field's Spec; cols must hold at least Len() columns of the value's
// type.
func (v Value) AppendTo(cols []columnar.Column) {
	switch v.shape {
	case ShapeScalar:
		switch v.typ {
		case columnar.TypeFloat64:
			cols[0].(*columnar.Float64Column).Append(v.f64)
		case columnar.TypeFloat32:
			cols[0].(*columnar.Float32Column).Append(v.f32)
		case columnar.TypeInt64:
			cols[0].(*columnar.Int64Column).Append(v.i64)
		case columnar.TypeBool:
			cols[0].(*columnar.BoolColumn).Append(v.b)
		case columnar.TypeString:
			cols[0].(*columnar.StringColumn).Append(v.s)
		}
	default:
		if v.typ == columnar.TypeFloat32 {
			for i, x := range v.f32s {
				cols[i].(*columnar.Float32Column).Append(x)
			}
			return
		}
		for i, x := range v.f64s {
			cols[i].(*columnar.Float64Column).Append(x)
		}
	}
}

// EncodedSize returns the number of bytes the value occupies in a persisted
// frame before compression.
func (v Value) EncodedSize() int64 {
	if v.typ == columnar.TypeString {
		return int64(uvarintLen(uint64(len(v.s))) + len(v.s))
	}
	return int64(v.typ.Width() * v.Len())
}

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
