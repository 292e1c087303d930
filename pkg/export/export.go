// Package export converts decoded group artifacts into interchange formats:
// CSV, JSON lines, Apache Parquet, Apache Arrow IPC files and Avro object
// container files.
//
// Every format writes one file per group with one column (or record field)
// per persisted column, in persisted order, and one row per sample. A file
// can additionally be wrapped in a compressed stream, in which case its name
// carries the stream codec's suffix after the format's, as in pose.csv.zst.
package export

import (
	"errors"
	"io"
	"os"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// Format represents an export format
type Format string

const (
	// CSV is comma separated text with a header row
	CSV Format = "csv"
	// JSONL is one JSON object per line
	JSONL Format = "jsonl"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is an Avro object container file
	Avro Format = "avro"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSONL, Parquet, Arrow, Avro}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", dlerrors.Newf(dlerrors.ErrorTypeCapability, "unsupported export format %q", s).
		WithDetail("format", s)
}

// Extension returns the file suffix of the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Writer writes the rows of one group in a format.
type Writer interface {
	// WriteBatch appends every row of b. b must have the configured columns.
	WriteBatch(b *columnar.Batch) error
	// Close finishes the file. It does not close the underlying io.Writer.
	Close() error
	// Format returns the export format
	Format() Format
	// RowsWritten returns rows written
	RowsWritten() int64
}

// WriterConfig configures export writers
type WriterConfig struct {
	Format  Format
	Group   string
	Columns []columnar.ColumnSpec
	// Compression names the codec of formats with internal compression:
	// parquet (snappy, zstd, gzip, none) and avro (snappy, deflate, null).
	// Empty selects snappy.
	Compression string
	// Stream compresses the whole file. Nil or compression.None writes it
	// as is.
	Stream *compression.Config
}

// FileName returns the export file name of the configured group.
func (c *WriterConfig) FileName() string {
	name := c.Group + c.Format.Extension()
	if c.Stream != nil {
		name += c.Stream.Algorithm.Extension()
	}
	return name
}

// NewWriter creates a writer for cfg.Format.
func NewWriter(w io.Writer, cfg *WriterConfig) (Writer, error) {
	if cfg == nil || len(cfg.Columns) == 0 {
		return nil, dlerrors.New(dlerrors.ErrorTypeConfig, "export writer needs a column list")
	}

	switch cfg.Format {
	case CSV:
		return newCSVWriter(w, cfg)
	case JSONL:
		return newJSONLWriter(w, cfg), nil
	case Parquet:
		return newParquetWriter(w, cfg)
	case Arrow:
		return newArrowWriter(w, cfg)
	case Avro:
		return newAvroWriter(w, cfg)
	default:
		_, err := ParseFormat(string(cfg.Format))
		return nil, err
	}
}

// WriteFile writes b to a new file at path, through cfg.Stream when set.
func WriteFile(path string, cfg *WriterConfig, b *columnar.Batch) (err error) {
	var comp compression.Compressor
	if cfg != nil && cfg.Stream != nil && cfg.Stream.Algorithm != compression.None {
		comp, err = compression.NewCompressor(cfg.Stream)
		if err != nil {
			return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid export compression").
				WithDetail("algorithm", string(cfg.Stream.Algorithm))
		}
	}

	f, err := os.Create(path) //nolint:gosec // G304: export directory chosen by caller
	if err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create export file").
			WithDetail("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
			err = dlerrors.Wrap(cerr, dlerrors.ErrorTypeIO, "failed to close export file").
				WithDetail("path", path)
		}
	}()

	var sink io.Writer = f
	if comp != nil {
		var stream io.WriteCloser
		if stream, err = comp.CompressStream(f); err != nil {
			return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to start compressed export").
				WithDetail("path", path)
		}
		defer func() {
			if cerr := stream.Close(); cerr != nil && err == nil {
				err = dlerrors.Wrap(cerr, dlerrors.ErrorTypeIO, "failed to finish compressed export").
					WithDetail("path", path)
			}
		}()
		// Format writers that close their sink must not end the stream early.
		sink = struct{ io.Writer }{stream}
	}

	w, err := NewWriter(sink, cfg)
	if err != nil {
		return err
	}
	if err := w.WriteBatch(b); err != nil {
		_ = w.Close()
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write export").
			WithDetail("path", path)
	}
	if err := w.Close(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to finish export").
			WithDetail("path", path)
	}
	return nil
}

func checkColumns(cfg *WriterConfig, b *columnar.Batch) error {
	specs := b.Specs()
	if len(specs) != len(cfg.Columns) {
		return dlerrors.Newf(dlerrors.ErrorTypeInternal, "batch has %d columns, writer has %d",
			len(specs), len(cfg.Columns))
	}
	for i, s := range specs {
		if s != cfg.Columns[i] {
			return dlerrors.Newf(dlerrors.ErrorTypeInternal, "column %d is %s %s, writer expects %s %s",
				i, s.Name, s.Type, cfg.Columns[i].Name, cfg.Columns[i].Type)
		}
	}
	return b.Validate()
}
