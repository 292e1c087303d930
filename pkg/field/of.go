package field

import (
	"math"
	"reflect"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// Matrix is implemented by dense matrix types such as gonum's mat.Dense.
type Matrix interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// Of converts a native Go value into a Value. Supported inputs are Value
// itself, float64, float32, signed and unsigned integers, bool, string,
// []float64 and []float32 (vectors), [][]float64 and [][]float32 (matrices,
// which must be rectangular), fixed-size arrays of the same element types
// and any Matrix. Vector and matrix data are copied.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case float64:
		return Float64(x), nil
	case float32:
		return Float32(x), nil
	case int:
		return Int64(int64(x)), nil
	case int8:
		return Int64(int64(x)), nil
	case int16:
		return Int64(int64(x)), nil
	case int32:
		return Int64(int64(x)), nil
	case int64:
		return Int64(x), nil
	case uint8:
		return Int64(int64(x)), nil
	case uint16:
		return Int64(int64(x)), nil
	case uint32:
		return Int64(int64(x)), nil
	case uint:
		return ofUint(uint64(x))
	case uint64:
		return ofUint(x)
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case []float64:
		return Vector64(append([]float64(nil), x...)...), nil
	case []float32:
		return Vector32(append([]float32(nil), x...)...), nil
	case [][]float64:
		return ofRows64(x)
	case [][]float32:
		return ofRows32(x)
	case Matrix:
		r, c := x.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				data = append(data, x.At(i, j))
			}
		}
		return Matrix64(r, c, data), nil
	case nil:
		return Value{}, dlerrors.New(dlerrors.ErrorTypeSchema, "unsupported value kind <nil>")
	}
	return ofReflect(reflect.ValueOf(v))
}

func ofUint(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, dlerrors.Newf(dlerrors.ErrorTypeSchema, "integer %d overflows int64", x)
	}
	return Int64(int64(x)), nil
}

func ofRows64(rows [][]float64) (Value, error) {
	if len(rows) == 0 {
		return Matrix64(0, 0, nil), nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Value{}, dlerrors.Newf(dlerrors.ErrorTypeSchema,
				"ragged matrix: row %d has %d elements, expected %d", i+1, len(row), cols)
		}
		data = append(data, row...)
	}
	return Matrix64(len(rows), cols, data), nil
}

func ofRows32(rows [][]float32) (Value, error) {
	if len(rows) == 0 {
		return Matrix32(0, 0, nil), nil
	}
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Value{}, dlerrors.Newf(dlerrors.ErrorTypeSchema,
				"ragged matrix: row %d has %d elements, expected %d", i+1, len(row), cols)
		}
		data = append(data, row...)
	}
	return Matrix32(len(rows), cols, data), nil
}

// ofReflect handles named scalar types plus [N]T and [R][C]T arrays of
// float64 and float32.
func ofReflect(rv reflect.Value) (Value, error) {
	unsupported := func() (Value, error) {
		return Value{}, dlerrors.Newf(dlerrors.ErrorTypeSchema, "unsupported value kind %s", rv.Type()).
			WithDetail("kind", rv.Type().String())
	}
	switch rv.Kind() {
	case reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.Float32:
		return Float32(float32(rv.Float())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ofUint(rv.Uint())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Array:
	default:
		return unsupported()
	}

	elem := rv.Type().Elem()
	switch {
	case elem.Kind() == reflect.Float64:
		data := make([]float64, rv.Len())
		for i := range data {
			data[i] = rv.Index(i).Float()
		}
		return Vector64(data...), nil
	case elem.Kind() == reflect.Float32:
		data := make([]float32, rv.Len())
		for i := range data {
			data[i] = float32(rv.Index(i).Float())
		}
		return Vector32(data...), nil
	case elem.Kind() == reflect.Array && elem.Elem().Kind() == reflect.Float64:
		rows, cols := rv.Len(), elem.Len()
		data := make([]float64, 0, rows*cols)
		for r := 0; r < rows; r++ {
			row := rv.Index(r)
			for c := 0; c < cols; c++ {
				data = append(data, row.Index(c).Float())
			}
		}
		return Matrix64(rows, cols, data), nil
	case elem.Kind() == reflect.Array && elem.Elem().Kind() == reflect.Float32:
		rows, cols := rv.Len(), elem.Len()
		data := make([]float32, 0, rows*cols)
		for r := 0; r < rows; r++ {
			row := rv.Index(r)
			for c := 0; c < cols; c++ {
				data = append(data, float32(row.Index(c).Float()))
			}
		}
		return Matrix32(rows, cols, data), nil
	}
	return unsupported()
}
