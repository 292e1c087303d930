package columnar

import (
	"fmt"
)

// Batch is a set of equal-length columns that share one schema
type Batch struct {
	specs   []ColumnSpec
	columns []Column
}

// NewBatch allocates one column per spec with the given row capacity.
func NewBatch(specs []ColumnSpec, capacity int) (*Batch, error) {
	b := &Batch{
		specs:   specs,
		columns: make([]Column, len(specs)),
	}
	for i, spec := range specs {
		col, err := NewColumn(spec.Type, capacity)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec.Name, err)
		}
		b.columns[i] = col
	}
	return b, nil
}

// Specs returns the batch schema.
func (b *Batch) Specs() []ColumnSpec { return b.specs }

// Columns returns the column buffers in schema order.
func (b *Batch) Columns() []Column { return b.columns }

// Column returns the i-th column.
func (b *Batch) Column(i int) Column { return b.columns[i] }

// Rows returns the number of complete rows in the batch.
func (b *Batch) Rows() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// Reset truncates every column so the batch can be reused.
func (b *Batch) Reset() {
	for _, col := range b.columns {
		col.Reset()
	}
}

// MemoryUsage sums the capacity held by all columns.
func (b *Batch) MemoryUsage() int64 {
	var total int64
	for _, col := range b.columns {
		total += col.MemoryUsage()
	}
	return total
}

// Validate checks that all columns hold the same number of rows.
func (b *Batch) Validate() error {
	rows := b.Rows()
	for i, col := range b.columns {
		if col.Len() != rows {
			return fmt.Errorf("column %q has %d rows, expected %d", b.specs[i].Name, col.Len(), rows)
		}
	}
	return nil
}

// Encode appends the payload of every column to dst in schema order.
func (b *Batch) Encode(dst []byte) []byte {
	for _, col := range b.columns {
		dst = col.Encode(dst)
	}
	return dst
}

// Decode appends rows rows read from a payload produced by Encode.
func (b *Batch) Decode(src []byte, rows int) error {
	off := 0
	for i, col := range b.columns {
		n, err := col.Decode(src[off:], rows)
		if err != nil {
			return fmt.Errorf("column %q: %w", b.specs[i].Name, err)
		}
		off += n
	}
	if off != len(src) {
		return fmt.Errorf("payload has %d trailing bytes", len(src)-off)
	}
	return nil
}

// Text returns the canonical text of every value in column i.
func (b *Batch) Text(i int) []string {
	col := b.columns[i]
	out := make([]string, col.Len())
	for r := range out {
		out[r] = col.Text(r)
	}
	return out
}
