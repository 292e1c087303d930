package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
)

// csvWriter writes the canonical text of every value
type csvWriter struct {
	cfg  *WriterConfig
	w    *csv.Writer
	row  []string
	rows int64
}

func newCSVWriter(w io.Writer, cfg *WriterConfig) (*csvWriter, error) {
	cw := &csvWriter{
		cfg: cfg,
		w:   csv.NewWriter(w),
		row: make([]string, len(cfg.Columns)),
	}
	for i, c := range cfg.Columns {
		cw.row[i] = c.Name
	}
	if err := cw.w.Write(cw.row); err != nil {
		return nil, err
	}
	return cw, nil
}

func (cw *csvWriter) WriteBatch(b *columnar.Batch) error {
	if err := checkColumns(cw.cfg, b); err != nil {
		return err
	}
	cols := b.Columns()
	for r := 0; r < b.Rows(); r++ {
		for i, col := range cols {
			cw.row[i] = col.Text(r)
		}
		if err := cw.w.Write(cw.row); err != nil {
			return err
		}
	}
	cw.rows += int64(b.Rows())
	return nil
}

func (cw *csvWriter) Close() error {
	cw.w.Flush()
	return cw.w.Error()
}

func (cw *csvWriter) Format() Format     { return CSV }
func (cw *csvWriter) RowsWritten() int64 { return cw.rows }

// jsonlWriter writes one object per sample with keys in column order.
// Non-finite floats become null.
type jsonlWriter struct {
	cfg  *WriterConfig
	w    *bufio.Writer
	keys [][]byte
	line []byte
	rows int64
}

func newJSONLWriter(w io.Writer, cfg *WriterConfig) *jsonlWriter {
	jw := &jsonlWriter{
		cfg:  cfg,
		w:    bufio.NewWriter(w),
		keys: make([][]byte, len(cfg.Columns)),
	}
	for i, c := range cfg.Columns {
		// marshaling a string cannot fail
		k, _ := json.Marshal(c.Name)
		jw.keys[i] = append(k, ':')
	}
	return jw
}

func (jw *jsonlWriter) WriteBatch(b *columnar.Batch) error {
	if err := checkColumns(jw.cfg, b); err != nil {
		return err
	}
	cols := b.Columns()
	for r := 0; r < b.Rows(); r++ {
		line := append(jw.line[:0], '{')
		for i, col := range cols {
			if i > 0 {
				line = append(line, ',')
			}
			line = append(line, jw.keys[i]...)
			var err error
			if line, err = appendJSONValue(line, col, r); err != nil {
				return err
			}
		}
		line = append(line, '}', '\n')
		if _, err := jw.w.Write(line); err != nil {
			return err
		}
		jw.line = line
	}
	jw.rows += int64(b.Rows())
	return nil
}

func appendJSONValue(dst []byte, col columnar.Column, r int) ([]byte, error) {
	switch c := col.(type) {
	case *columnar.Float64Column:
		return appendJSONFloat(dst, c.Values[r], 64), nil
	case *columnar.Float32Column:
		return appendJSONFloat(dst, float64(c.Values[r]), 32), nil
	case *columnar.Int64Column:
		return strconv.AppendInt(dst, c.Values[r], 10), nil
	case *columnar.BoolColumn:
		return strconv.AppendBool(dst, c.Values[r]), nil
	case *columnar.StringColumn:
		s, err := json.Marshal(c.Values[r])
		if err != nil {
			return dst, err
		}
		return append(dst, s...), nil
	}
	return append(dst, "null"...), nil
}

func appendJSONFloat(dst []byte, v float64, bits int) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(dst, "null"...)
	}
	return strconv.AppendFloat(dst, v, 'g', -1, bits)
}

func (jw *jsonlWriter) Close() error       { return jw.w.Flush() }
func (jw *jsonlWriter) Format() Format     { return JSONL }
func (jw *jsonlWriter) RowsWritten() int64 { return jw.rows }
