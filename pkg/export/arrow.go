package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// GroupMetadataKey carries the group name in Arrow and Parquet schema
// metadata.
const GroupMetadataKey = "datalogger.group"

// arrowSchema converts a column list. Columns are never null.
func arrowSchema(group string, cols []columnar.ColumnSpec) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(cols))
	for _, c := range cols {
		t, err := arrowType(c.Type)
		if err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeCapability, "failed to convert column").
				WithDetail("column", c.Name)
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: t})
	}
	md := arrow.NewMetadata([]string{GroupMetadataKey}, []string{group})
	return arrow.NewSchema(fields, &md), nil
}

func arrowType(t columnar.Type) (arrow.DataType, error) {
	switch t {
	case columnar.TypeFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case columnar.TypeFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case columnar.TypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case columnar.TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case columnar.TypeString:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, dlerrors.Newf(dlerrors.ErrorTypeCapability, "unsupported column type %s", t)
	}
}

// buildRecord copies a batch into an Arrow record. The caller releases it.
func buildRecord(mem memory.Allocator, schema *arrow.Schema, b *columnar.Batch) arrow.Record {
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, col := range b.Columns() {
		switch c := col.(type) {
		case *columnar.Float64Column:
			rb.Field(i).(*array.Float64Builder).AppendValues(c.Values, nil)
		case *columnar.Float32Column:
			rb.Field(i).(*array.Float32Builder).AppendValues(c.Values, nil)
		case *columnar.Int64Column:
			rb.Field(i).(*array.Int64Builder).AppendValues(c.Values, nil)
		case *columnar.BoolColumn:
			rb.Field(i).(*array.BooleanBuilder).AppendValues(c.Values, nil)
		case *columnar.StringColumn:
			rb.Field(i).(*array.StringBuilder).AppendValues(c.Values, nil)
		}
	}
	return rb.NewRecord()
}

// arrowWriter implements Writer for the Arrow IPC file format
type arrowWriter struct {
	cfg        *WriterConfig
	schema     *arrow.Schema
	pool       memory.Allocator
	fileWriter *ipc.FileWriter
	rows       int64
}

func newArrowWriter(w io.Writer, cfg *WriterConfig) (*arrowWriter, error) {
	schema, err := arrowSchema(cfg.Group, cfg.Columns)
	if err != nil {
		return nil, err
	}
	pool := memory.NewGoAllocator()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create Arrow writer")
	}
	return &arrowWriter{cfg: cfg, schema: schema, pool: pool, fileWriter: fw}, nil
}

func (aw *arrowWriter) WriteBatch(b *columnar.Batch) error {
	if err := checkColumns(aw.cfg, b); err != nil {
		return err
	}
	record := buildRecord(aw.pool, aw.schema, b)
	defer record.Release()

	if err := aw.fileWriter.Write(record); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write record batch")
	}
	aw.rows += record.NumRows()
	return nil
}

func (aw *arrowWriter) Close() error {
	if err := aw.fileWriter.Close(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter) Format() Format     { return Arrow }
func (aw *arrowWriter) RowsWritten() int64 { return aw.rows }
