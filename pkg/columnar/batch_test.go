package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeNames(t *testing.T) {
	for _, typ := range []Type{TypeFloat64, TypeFloat32, TypeInt64, TypeBool, TypeString} {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	_, err := ParseType("invalid")
	assert.Error(t, err)
	_, err = ParseType("complex128")
	assert.Error(t, err)
}

func TestTextForm(t *testing.T) {
	assert.Equal(t, "1.5", FormatFloat64(1.5))
	assert.Equal(t, "4.2", FormatFloat32(4.2))
	assert.Equal(t, "1e+21", FormatFloat64(1e21))
	assert.Equal(t, "NaN", FormatFloat64(math.NaN()))
	assert.Equal(t, "1", FormatBool(true))
	assert.Equal(t, "0", FormatBool(false))
}

func TestBatchEncodeDecode(t *testing.T) {
	specs := []ColumnSpec{
		{Name: "life", Type: TypeFloat64},
		{Name: "mana", Type: TypeFloat32},
		{Name: "gc", Type: TypeInt64},
		{Name: "alive", Type: TypeBool},
		{Name: "name", Type: TypeString},
	}
	b, err := NewBatch(specs, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b.Column(0).(*Float64Column).Append(1.5 + float64(i))
		b.Column(1).(*Float32Column).Append(4.2)
		b.Column(2).(*Int64Column).Append(int64(-i))
		b.Column(3).(*BoolColumn).Append(i%2 == 0)
		b.Column(4).(*StringColumn).Append("hello, world")
	}
	require.NoError(t, b.Validate())
	assert.Equal(t, 3, b.Rows())

	payload := b.Encode(nil)

	out, err := NewBatch(specs, 0)
	require.NoError(t, err)
	require.NoError(t, out.Decode(payload, 3))

	assert.Equal(t, []string{"1.5", "2.5", "3.5"}, out.Text(0))
	assert.Equal(t, []string{"4.2", "4.2", "4.2"}, out.Text(1))
	assert.Equal(t, []string{"0", "-1", "-2"}, out.Text(2))
	assert.Equal(t, []string{"1", "0", "1"}, out.Text(3))
	assert.Equal(t, []string{"hello, world", "hello, world", "hello, world"}, out.Text(4))

	// Decoding appends, so a second payload extends the columns.
	require.NoError(t, out.Decode(payload, 3))
	assert.Equal(t, 6, out.Rows())

	b.Reset()
	assert.Equal(t, 0, b.Rows())
	assert.Empty(t, b.Encode(nil))
}

func TestBatchDecodeErrors(t *testing.T) {
	specs := []ColumnSpec{{Name: "x", Type: TypeFloat64}, {Name: "s", Type: TypeString}}
	b, err := NewBatch(specs, 1)
	require.NoError(t, err)
	b.Column(0).(*Float64Column).Append(2)
	b.Column(1).(*StringColumn).Append("abc")
	payload := b.Encode(nil)

	t.Run("truncated", func(t *testing.T) {
		out, _ := NewBatch(specs, 0)
		assert.Error(t, out.Decode(payload[:len(payload)-1], 1))
	})
	t.Run("trailing bytes", func(t *testing.T) {
		out, _ := NewBatch(specs, 0)
		assert.Error(t, out.Decode(append(payload, 0), 1))
	})
	t.Run("bad bool", func(t *testing.T) {
		out, _ := NewBatch([]ColumnSpec{{Name: "b", Type: TypeBool}}, 0)
		assert.Error(t, out.Decode([]byte{2}, 1))
	})
}

func TestBatchValidateMismatch(t *testing.T) {
	b, err := NewBatch([]ColumnSpec{{Name: "a", Type: TypeInt64}, {Name: "b", Type: TypeInt64}}, 1)
	require.NoError(t, err)
	b.Column(0).(*Int64Column).Append(1)
	assert.Error(t, b.Validate())
}

func TestNewBatchRejectsInvalidType(t *testing.T) {
	_, err := NewBatch([]ColumnSpec{{Name: "a"}}, 1)
	assert.Error(t, err)
}
