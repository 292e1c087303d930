package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// avroBlockRows bounds the records handed to the OCF writer per Append.
const avroBlockRows = 4096

// avroWriter implements Writer for Avro object container files. Column
// names that are not valid Avro names are rewritten; the original name is
// kept in the field's doc.
type avroWriter struct {
	cfg       *WriterConfig
	names     []string
	ocfWriter *goavro.OCFWriter
	block     []interface{}
	rows      int64
}

func newAvroWriter(w io.Writer, cfg *WriterConfig) (*avroWriter, error) {
	compression, err := avroCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	names := AvroFieldNames(cfg.Columns)
	schema, err := avroSchema(cfg.Group, cfg.Columns, names)
	if err != nil {
		return nil, err
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to create Avro codec")
	}
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create Avro writer")
	}

	return &avroWriter{
		cfg:       cfg,
		names:     names,
		ocfWriter: ocfWriter,
		block:     make([]interface{}, 0, avroBlockRows),
	}, nil
}

func (aw *avroWriter) WriteBatch(b *columnar.Batch) error {
	if err := checkColumns(aw.cfg, b); err != nil {
		return err
	}
	cols := b.Columns()
	for r := 0; r < b.Rows(); r++ {
		native := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			native[aw.names[i]] = avroValue(col, r)
		}
		aw.block = append(aw.block, native)
		if len(aw.block) == avroBlockRows {
			if err := aw.flushBlock(); err != nil {
				return err
			}
		}
	}
	return aw.flushBlock()
}

func (aw *avroWriter) flushBlock() error {
	if len(aw.block) == 0 {
		return nil
	}
	if err := aw.ocfWriter.Append(aw.block); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write Avro block")
	}
	aw.rows += int64(len(aw.block))
	clear(aw.block)
	aw.block = aw.block[:0]
	return nil
}

// Close writes any pending block. The OCF writer has no trailer.
func (aw *avroWriter) Close() error       { return aw.flushBlock() }
func (aw *avroWriter) Format() Format     { return Avro }
func (aw *avroWriter) RowsWritten() int64 { return aw.rows }

func avroValue(col columnar.Column, r int) interface{} {
	switch c := col.(type) {
	case *columnar.Float64Column:
		return c.Values[r]
	case *columnar.Float32Column:
		return c.Values[r]
	case *columnar.Int64Column:
		return c.Values[r]
	case *columnar.BoolColumn:
		return c.Values[r]
	case *columnar.StringColumn:
		return c.Values[r]
	}
	return nil
}

func avroSchema(group string, cols []columnar.ColumnSpec, names []string) (string, error) {
	fields := make([]map[string]interface{}, 0, len(cols))
	for i, c := range cols {
		t, err := avroType(c.Type)
		if err != nil {
			return "", err
		}
		f := map[string]interface{}{"name": names[i], "type": t}
		if names[i] != c.Name {
			f["doc"] = c.Name
		}
		fields = append(fields, f)
	}
	schema := map[string]interface{}{
		"type":      "record",
		"name":      avroName(group),
		"namespace": "datalogger",
		"doc":       group,
		"fields":    fields,
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return "", dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to encode Avro schema")
	}
	return string(data), nil
}

func avroType(t columnar.Type) (string, error) {
	switch t {
	case columnar.TypeFloat64:
		return "double", nil
	case columnar.TypeFloat32:
		return "float", nil
	case columnar.TypeInt64:
		return "long", nil
	case columnar.TypeBool:
		return "boolean", nil
	case columnar.TypeString:
		return "string", nil
	}
	return "", dlerrors.Newf(dlerrors.ErrorTypeCapability, "unsupported column type %s", t)
}

func avroCompression(name string) (string, error) {
	switch name {
	case "", "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate":
		return goavro.CompressionDeflateLabel, nil
	case "none", "null":
		return goavro.CompressionNullLabel, nil
	}
	return "", dlerrors.Newf(dlerrors.ErrorTypeCapability, "unsupported Avro compression %q", name)
}

// AvroFieldNames returns the record field name of every column. Invalid
// characters become '_', a leading digit gets a '_' prefix and collisions
// get a numeric suffix.
func AvroFieldNames(cols []columnar.ColumnSpec) []string {
	names := make([]string, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		name := avroName(c.Name)
		candidate := name
		for n := 2; ; n++ {
			if _, dup := seen[candidate]; !dup {
				break
			}
			candidate = name + "_" + strconv.Itoa(n)
		}
		seen[candidate] = struct{}{}
		names[i] = candidate
	}
	return names
}

func avroName(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
