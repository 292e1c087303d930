package columnar

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Type represents the scalar type of a column
type Type uint8

const (
	TypeInvalid Type = iota
	TypeFloat64
	TypeFloat32
	TypeInt64
	TypeBool
	TypeString
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeFloat64: "float64",
	TypeFloat32: "float32",
	TypeInt64:   "int64",
	TypeBool:    "bool",
	TypeString:  "string",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s && Type(i) != TypeInvalid {
			return Type(i), nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown column type %q", s)
}

// MarshalText encodes the type by name so persisted headers stay readable.
func (t Type) MarshalText() ([]byte, error) {
	if t == TypeInvalid || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("cannot marshal column type %d", t)
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText decodes a type name.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Width returns the encoded size of one value, or 0 for variable width types.
func (t Type) Width() int {
	switch t {
	case TypeFloat64, TypeInt64:
		return 8
	case TypeFloat32:
		return 4
	case TypeBool:
		return 1
	default:
		return 0
	}
}

// ColumnSpec names a column and its scalar type
type ColumnSpec struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
}

// Column is the base interface for all column types
type Column interface {
	Type() Type
	Len() int
	// Text returns the canonical textual form of value i.
	Text(i int) string
	// Reset truncates the column, keeping its capacity.
	Reset()
	MemoryUsage() int64
	// Encode appends the binary form of all values to dst.
	Encode(dst []byte) []byte
	// Decode appends rows values read from src and returns the bytes consumed.
	Decode(src []byte, rows int) (int, error)
}

// NewColumn creates an empty column of the given type.
func NewColumn(t Type, capacity int) (Column, error) {
	switch t {
	case TypeFloat64:
		return &Float64Column{Values: make([]float64, 0, capacity)}, nil
	case TypeFloat32:
		return &Float32Column{Values: make([]float32, 0, capacity)}, nil
	case TypeInt64:
		return &Int64Column{Values: make([]int64, 0, capacity)}, nil
	case TypeBool:
		return &BoolColumn{Values: make([]bool, 0, capacity)}, nil
	case TypeString:
		return &StringColumn{Values: make([]string, 0, capacity)}, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", t)
	}
}

// FormatFloat64 renders v in the shortest form that parses back to v.
func FormatFloat64(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatFloat32 renders v in the shortest form that parses back to v as a
// float32, so 4.2f reads back as "4.2" rather than its widened expansion.
func FormatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// FormatBool renders booleans as 1/0 so they parse with any numeric parser.
func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func errShort(t Type, rows, have int) error {
	return fmt.Errorf("%s column: need %d rows, payload truncated at %d bytes", t, rows, have)
}

// Float64Column stores float64 values
type Float64Column struct {
	Values []float64
}

func (c *Float64Column) Type() Type         { return TypeFloat64 }
func (c *Float64Column) Len() int           { return len(c.Values) }
func (c *Float64Column) Text(i int) string  { return FormatFloat64(c.Values[i]) }
func (c *Float64Column) Reset()             { c.Values = c.Values[:0] }
func (c *Float64Column) MemoryUsage() int64 { return int64(cap(c.Values)) * 8 }
func (c *Float64Column) Append(v float64)   { c.Values = append(c.Values, v) }

func (c *Float64Column) Encode(dst []byte) []byte {
	for _, v := range c.Values {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

func (c *Float64Column) Decode(src []byte, rows int) (int, error) {
	n := rows * 8
	if len(src) < n {
		return 0, errShort(TypeFloat64, rows, len(src))
	}
	for i := 0; i < rows; i++ {
		c.Values = append(c.Values, math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:])))
	}
	return n, nil
}

// Float32Column stores float32 values
type Float32Column struct {
	Values []float32
}

func (c *Float32Column) Type() Type         { return TypeFloat32 }
func (c *Float32Column) Len() int           { return len(c.Values) }
func (c *Float32Column) Text(i int) string  { return FormatFloat32(c.Values[i]) }
func (c *Float32Column) Reset()             { c.Values = c.Values[:0] }
func (c *Float32Column) MemoryUsage() int64 { return int64(cap(c.Values)) * 4 }
func (c *Float32Column) Append(v float32)   { c.Values = append(c.Values, v) }

func (c *Float32Column) Encode(dst []byte) []byte {
	for _, v := range c.Values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func (c *Float32Column) Decode(src []byte, rows int) (int, error) {
	n := rows * 4
	if len(src) < n {
		return 0, errShort(TypeFloat32, rows, len(src))
	}
	for i := 0; i < rows; i++ {
		c.Values = append(c.Values, math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:])))
	}
	return n, nil
}

// Int64Column stores int64 values
type Int64Column struct {
	Values []int64
}

func (c *Int64Column) Type() Type         { return TypeInt64 }
func (c *Int64Column) Len() int           { return len(c.Values) }
func (c *Int64Column) Text(i int) string  { return strconv.FormatInt(c.Values[i], 10) }
func (c *Int64Column) Reset()             { c.Values = c.Values[:0] }
func (c *Int64Column) MemoryUsage() int64 { return int64(cap(c.Values)) * 8 }
func (c *Int64Column) Append(v int64)     { c.Values = append(c.Values, v) }

func (c *Int64Column) Encode(dst []byte) []byte {
	for _, v := range c.Values {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
	}
	return dst
}

func (c *Int64Column) Decode(src []byte, rows int) (int, error) {
	n := rows * 8
	if len(src) < n {
		return 0, errShort(TypeInt64, rows, len(src))
	}
	for i := 0; i < rows; i++ {
		c.Values = append(c.Values, int64(binary.LittleEndian.Uint64(src[i*8:])))
	}
	return n, nil
}

// BoolColumn stores booleans, one byte each on disk
type BoolColumn struct {
	Values []bool
}

func (c *BoolColumn) Type() Type         { return TypeBool }
func (c *BoolColumn) Len() int           { return len(c.Values) }
func (c *BoolColumn) Text(i int) string  { return FormatBool(c.Values[i]) }
func (c *BoolColumn) Reset()             { c.Values = c.Values[:0] }
func (c *BoolColumn) MemoryUsage() int64 { return int64(cap(c.Values)) }
func (c *BoolColumn) Append(v bool)      { c.Values = append(c.Values, v) }

func (c *BoolColumn) Encode(dst []byte) []byte {
	for _, v := range c.Values {
		if v {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

func (c *BoolColumn) Decode(src []byte, rows int) (int, error) {
	if len(src) < rows {
		return 0, errShort(TypeBool, rows, len(src))
	}
	for i := 0; i < rows; i++ {
		switch src[i] {
		case 0:
			c.Values = append(c.Values, false)
		case 1:
			c.Values = append(c.Values, true)
		default:
			return 0, fmt.Errorf("bool column: invalid byte 0x%02x at row %d", src[i], i)
		}
	}
	return rows, nil
}

// StringColumn stores strings, length-prefixed with a uvarint on disk
type StringColumn struct {
	Values []string
}

func (c *StringColumn) Type() Type        { return TypeString }
func (c *StringColumn) Len() int          { return len(c.Values) }
func (c *StringColumn) Text(i int) string { return c.Values[i] }
func (c *StringColumn) Reset() {
	clear(c.Values)
	c.Values = c.Values[:0]
}
func (c *StringColumn) Append(v string) { c.Values = append(c.Values, v) }

func (c *StringColumn) MemoryUsage() int64 {
	total := int64(cap(c.Values)) * 16 // string header overhead
	for _, v := range c.Values {
		total += int64(len(v))
	}
	return total
}

func (c *StringColumn) Encode(dst []byte) []byte {
	for _, v := range c.Values {
		dst = binary.AppendUvarint(dst, uint64(len(v)))
		dst = append(dst, v...)
	}
	return dst
}

func (c *StringColumn) Decode(src []byte, rows int) (int, error) {
	off := 0
	for i := 0; i < rows; i++ {
		l, n := binary.Uvarint(src[off:])
		if n <= 0 {
			return 0, fmt.Errorf("string column: bad length prefix at row %d", i)
		}
		off += n
		if uint64(len(src)-off) < l {
			return 0, errShort(TypeString, rows, len(src))
		}
		c.Values = append(c.Values, string(src[off:off+int(l)]))
		off += int(l)
	}
	return off, nil
}
