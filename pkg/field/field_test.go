package field

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

func columnNames(specs []columnar.ColumnSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func TestScalarColumns(t *testing.T) {
	for _, v := range []Value{Float64(1.5), Float32(4.2), Int64(3), Bool(true), String("hello")} {
		spec, err := SpecOf(New("life", v))
		require.NoError(t, err)
		cols := spec.Columns()
		require.Len(t, cols, 1)
		assert.Equal(t, "life", cols[0].Name)
		assert.Equal(t, v.Type(), cols[0].Type)
	}
}

func TestVectorFlattening(t *testing.T) {
	spec, err := SpecOf(New("gc", Vector64(0, 1, 2, 3, 4, 5)))
	require.NoError(t, err)
	assert.Equal(t, []string{"gc_1", "gc_2", "gc_3", "gc_4", "gc_5", "gc_6"}, columnNames(spec.Columns()))
	assert.Equal(t, 6, spec.Width())
}

func TestMatrixFlattening(t *testing.T) {
	const rows, cols = 3, 2
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i)
	}
	spec, err := SpecOf(New("F", Matrix64(rows, cols, data)))
	require.NoError(t, err)

	names := columnNames(spec.Columns())
	assert.Equal(t, []string{"F_1_1", "F_1_2", "F_2_1", "F_2_2", "F_3_1", "F_3_2"}, names)

	// Element (r, c) lands in column F_r_c.
	batch, err := columnar.NewBatch(spec.Columns(), 1)
	require.NoError(t, err)
	Matrix64(rows, cols, data).AppendTo(batch.Columns())
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			idx := (r-1)*cols + (c - 1)
			assert.Equal(t, "F_"+strconv.Itoa(r)+"_"+strconv.Itoa(c), names[idx])
			assert.Equal(t, data[idx], batch.Column(idx).(*columnar.Float64Column).Values[0])
		}
	}
}

func TestSpecOfRejects(t *testing.T) {
	tests := []struct {
		name  string
		field Field
	}{
		{"empty name", New("", Float64(1))},
		{"zero value", New("x", Value{})},
		{"empty vector", New("v", Vector64())},
		{"short matrix data", New("m", Matrix64(2, 2, []float64{1, 2, 3}))},
		{"zero row matrix", New("m", Matrix32(0, 3, nil))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SpecOf(tt.field)
			require.Error(t, err)
			assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeSchema))
		})
	}
}

func TestCheck(t *testing.T) {
	spec, err := SpecOf(New("v", Vector64(1, 2, 3)))
	require.NoError(t, err)

	assert.NoError(t, spec.Check(Vector64(4, 5, 6)))

	err = spec.Check(Vector64(4, 5, 6, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected vector<float64>[3], got vector<float64>[4]")

	err = spec.Check(Vector32(4, 5, 6))
	require.Error(t, err)
	assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeSchema))

	assert.Error(t, spec.Check(Float64(1)))

	mspec, err := SpecOf(New("m", Matrix64(2, 2, []float64{1, 2, 3, 4})))
	require.NoError(t, err)
	assert.Error(t, mspec.Check(Matrix64(2, 2, []float64{1, 2})))
	assert.Error(t, mspec.Check(Matrix64(4, 1, []float64{1, 2, 3, 4})))
}

func TestEncodedSize(t *testing.T) {
	assert.Equal(t, int64(8), Float64(1).EncodedSize())
	assert.Equal(t, int64(4), Float32(1).EncodedSize())
	assert.Equal(t, int64(1), Bool(true).EncodedSize())
	assert.Equal(t, int64(6), String("hello").EncodedSize())
	assert.Equal(t, int64(200*8), Matrix64(20, 10, make([]float64, 200)).EncodedSize())
	assert.Equal(t, int64(3*4), Vector32(1, 2, 3).EncodedSize())
}

type dense struct {
	r, c int
	data []float64
}

func (d dense) Dims() (int, int)    { return d.r, d.c }
func (d dense) At(i, j int) float64 { return d.data[i*d.c+j] }

type meters float64

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		sig  string
	}{
		{"float64", 1.5, "float64"},
		{"float32", float32(4.2), "float32"},
		{"int", 3, "int64"},
		{"uint8", uint8(7), "int64"},
		{"named float", meters(2), "float64"},
		{"bool", true, "bool"},
		{"string", "hello", "string"},
		{"slice", []float64{1, 2, 3}, "vector<float64>[3]"},
		{"array", [4]float32{1, 2, 3, 4}, "vector<float32>[4]"},
		{"2d array", [3][3]float64{}, "matrix<float64>[3x3]"},
		{"2d array float32", [2][5]float32{}, "matrix<float32>[2x5]"},
		{"rows", [][]float64{{1, 2}, {3, 4}, {5, 6}}, "matrix<float64>[3x2]"},
		{"dense", dense{r: 2, c: 3, data: []float64{1, 2, 3, 4, 5, 6}}, "matrix<float64>[2x3]"},
		{"value", Int64(9), "int64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.sig, v.Signature())
		})
	}

	v, err := Of(dense{r: 2, c: 3, data: []float64{1, 2, 3, 4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, Matrix64(2, 3, []float64{1, 2, 3, 4, 5, 6}), v)
}

func TestOfUnsupported(t *testing.T) {
	for _, in := range []any{nil, complex(1, 2), map[string]int{}, []int{1}, [2]string{}, uint64(1 << 63)} {
		_, err := Of(in)
		require.Error(t, err, "%T", in)
		assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeSchema))
	}

	_, err := Of([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestAppendToAllKinds(t *testing.T) {
	fields := []Field{
		New("life", Float64(1.5)),
		New("mana", Float32(4.2)),
		New("gc", Int64(-2)),
		New("ok", Bool(false)),
		New("name", String("hello")),
		New("rot", Matrix32(2, 2, []float32{1, 0, 0, 1})),
	}
	var specs []columnar.ColumnSpec
	for _, f := range fields {
		s, err := SpecOf(f)
		require.NoError(t, err)
		specs = append(specs, s.Columns()...)
	}
	batch, err := columnar.NewBatch(specs, 1)
	require.NoError(t, err)

	off := 0
	for _, f := range fields {
		f.Value.AppendTo(batch.Columns()[off:])
		off += f.Value.Len()
	}
	require.NoError(t, batch.Validate())

	got := make([]string, len(specs))
	for i := range specs {
		got[i] = batch.Column(i).Text(0)
	}
	assert.Equal(t, []string{"1.5", "4.2", "-2", "0", "hello", "1", "0", "0", "1"}, got)
}
