package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// parquetWriter implements Writer for Parquet format. Each WriteBatch
// produces at least one row group.
type parquetWriter struct {
	cfg        *WriterConfig
	schema     *arrow.Schema
	pool       memory.Allocator
	fileWriter *pqarrow.FileWriter
	rows       int64
}

func newParquetWriter(w io.Writer, cfg *WriterConfig) (*parquetWriter, error) {
	codec, err := parquetCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	schema, err := arrowSchema(cfg.Group, cfg.Columns)
	if err != nil {
		return nil, err
	}
	pool := memory.NewGoAllocator()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(false),
		parquet.WithAllocator(pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create Parquet writer")
	}
	return &parquetWriter{cfg: cfg, schema: schema, pool: pool, fileWriter: fw}, nil
}

func (pw *parquetWriter) WriteBatch(b *columnar.Batch) error {
	if err := checkColumns(pw.cfg, b); err != nil {
		return err
	}
	if b.Rows() == 0 {
		return nil
	}
	record := buildRecord(pw.pool, pw.schema, b)
	defer record.Release()

	if err := pw.fileWriter.Write(record); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write Parquet row group")
	}
	pw.rows += record.NumRows()
	return nil
}

func (pw *parquetWriter) Close() error {
	if err := pw.fileWriter.Close(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to close Parquet writer")
	}
	return nil
}

func (pw *parquetWriter) Format() Format     { return Parquet }
func (pw *parquetWriter) RowsWritten() int64 { return pw.rows }

func parquetCompression(name string) (compress.Compression, error) {
	switch name {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, dlerrors.Newf(dlerrors.ErrorTypeCapability,
			"unsupported Parquet compression %q", name)
	}
}
