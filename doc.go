// Package datalogger records robotics telemetry. A control loop registers
// named groups of fields once and then appends one sample per group and
// tick; the logger flattens every sample into scalar columns, buffers
// them per group and persists the buffers as compressed, checksummed
// frames of one artifact per group. A reader turns a run back into text
// tables and exports them for analysis tools.
//
// # Quick Start
//
// Record two samples and read them back:
//
//	import (
//	    "github.com/ajitpratap0/datalogger/pkg/field"
//	    "github.com/ajitpratap0/datalogger/pkg/reader"
//	    "github.com/ajitpratap0/datalogger/pkg/session"
//	)
//
//	s := session.New(session.WithAllowedBufferSize(64 << 10))
//	run, _ := s.CreateRun("walk", "/tmp/runs")
//
//	g, _ := s.RegisterGroup("G",
//	    field.New("x", field.Float64(0)),
//	    field.New("v", field.Vector64(0, 0, 0)),
//	)
//	_ = s.Append(g, field.Float64(1.5), field.Vector64(1, 2, 3))
//	_ = s.Append(g, field.Float64(2.5), field.Vector64(4, 5, 6))
//	_ = s.Close()
//
//	r, _ := reader.Open(run.Directory)
//	ds, _ := r.DataSet("G")
//	// ds.Data["v_2"] == []string{"2", "5"}
//	_ = r.ExportCSV()
//
// # Flattening
//
// A scalar field F becomes the column F, an n-element sequence the columns
// F_1..F_n and an r×c matrix the columns F_1_1..F_r_c, row by row. Every
// value reads back as the shortest decimal text that parses to the same
// number; booleans read back as "1" and "0".
//
// # Key Packages
//
//	pkg/field         - Field values, shapes and column flattening
//	pkg/schema        - Group schemas and the group registry
//	pkg/session       - Runs, per-group buffers, budgets and flushing
//	pkg/storage       - Artifact frames, run manifest, salvage decoding
//	pkg/reader        - Text data sets and multi-format export
//	pkg/export        - CSV, JSON lines, Parquet, Arrow and Avro writers
//	pkg/columnar      - Typed column buffers and their binary encoding
//	pkg/compression   - Frame and export stream codecs (lz4, zstd, s2, snappy, gzip, deflate)
//	pkg/config        - Viper-backed configuration and parameter trees
//	pkg/dlerrors      - Structured error types
//	pkg/logger        - Structured logging with zap
//	pkg/metrics       - Prometheus metrics and latency tracking
//	pkg/observability - OpenTelemetry tracing
//
// The dlogctl command records, inspects and exports runs.
package datalogger
