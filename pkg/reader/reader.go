// Package reader reconstructs the per-column time series of a recorded run
// from its group artifacts alone, and exports them.
//
// Values are exposed in their canonical text form, the same strings a
// caller parses back with strconv: floats in shortest round-trip form,
// booleans as "1"/"0", strings verbatim.
package reader

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/storage"
)

// Option configures a Reader.
type Option func(*Reader)

// WithSalvage keeps the intact leading frames of damaged artifacts instead
// of failing the group.
func WithSalvage(salvage bool) Option {
	return func(r *Reader) { r.decode.Salvage = salvage }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithParallelism bounds the groups exported concurrently.
func WithParallelism(n int) Option {
	return func(r *Reader) { r.parallelism = n }
}

// WithExportCompression wraps every exported file in a compressed stream
// and appends the codec's suffix to its name. Nil or compression.None
// exports plain files.
func WithExportCompression(c *compression.Config) Option {
	return func(r *Reader) { r.stream = c }
}

// Reader reads the artifacts of one run directory. Decoded groups are
// cached; a Reader is safe for concurrent use.
type Reader struct {
	dir         string
	groups      []string
	paths       map[string]string
	decode      storage.DecodeOptions
	parallelism int
	stream      *compression.Config
	logger      *zap.Logger

	mu    sync.Mutex
	cache map[string]*storage.Artifact
}

// Open discovers every group artifact in dir.
func Open(dir string, opts ...Option) (*Reader, error) {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeNotFound, "run directory not found").
				WithDetail("dir", dir)
		}
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "failed to open run directory").
			WithDetail("dir", dir)
	}
	if !st.IsDir() {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeRead, "%s is not a directory", dir).
			WithDetail("dir", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "failed to list run directory").
			WithDetail("dir", dir)
	}

	r := &Reader{
		dir:    dir,
		paths:  make(map[string]string),
		logger: zap.NewNop(),
		cache:  make(map[string]*storage.Artifact),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("component", "reader"))

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, storage.FileExtension) {
			continue
		}
		group := strings.TrimSuffix(name, storage.FileExtension)
		r.groups = append(r.groups, group)
		r.paths[group] = filepath.Join(dir, name)
	}
	sort.Strings(r.groups)

	r.logger.Debug("run opened", zap.String("dir", dir), zap.Int("groups", len(r.groups)))
	return r, nil
}

// Dir returns the run directory.
func (r *Reader) Dir() string { return r.dir }

// Groups returns the discovered group names in lexical order.
func (r *Reader) Groups() []string {
	out := make([]string, len(r.groups))
	copy(out, r.groups)
	return out
}

// Manifest returns the run manifest, if the run has one.
func (r *Reader) Manifest() (*storage.Manifest, error) {
	return storage.ReadManifest(r.dir)
}

// Artifact decodes the artifact of group.
func (r *Reader) Artifact(group string) (*storage.Artifact, error) {
	path, ok := r.paths[group]
	if !ok {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeNotFound, "group %q not found in %s", group, r.dir).
			WithDetail("group", group)
	}

	r.mu.Lock()
	a, cached := r.cache[group]
	r.mu.Unlock()
	if cached {
		return a, nil
	}

	a, err := storage.ReadFile(path, r.decode)
	if err != nil {
		return nil, err
	}
	if a.Header.Group != group {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeRead, "artifact %s holds group %q", path, a.Header.Group).
			WithDetail("group", group)
	}
	if a.Damage != nil {
		r.logger.Warn("artifact damaged; intact frames kept",
			zap.String("group", group),
			zap.Int("rows", a.Rows()),
			zap.Error(a.Damage))
	}

	r.mu.Lock()
	r.cache[group] = a
	r.mu.Unlock()
	return a, nil
}

// DataSet is the column-oriented content of one group
type DataSet struct {
	Group string
	// Columns are the column names in persisted order.
	Columns []string
	// Data maps every column to its values in append order.
	Data map[string][]string
	// Rows is the number of samples; every column has this length.
	Rows int

	specs []columnar.ColumnSpec
	batch *columnar.Batch
}

// DataSet returns the text table of group. A group without samples yields
// empty sequences.
func (r *Reader) DataSet(group string) (*DataSet, error) {
	a, err := r.Artifact(group)
	if err != nil {
		return nil, err
	}

	specs := a.Batch.Specs()
	ds := &DataSet{
		Group:   group,
		Columns: make([]string, len(specs)),
		Data:    make(map[string][]string, len(specs)),
		Rows:    a.Rows(),
		specs:   specs,
		batch:   a.Batch,
	}
	for i, s := range specs {
		ds.Columns[i] = s.Name
		ds.Data[s.Name] = a.Batch.Text(i)
	}
	return ds, nil
}

// Specs returns the typed column list.
func (ds *DataSet) Specs() []columnar.ColumnSpec { return ds.specs }

func (ds *DataSet) column(name string) (columnar.Column, error) {
	for i, s := range ds.specs {
		if s.Name == name {
			return ds.batch.Column(i), nil
		}
	}
	return nil, dlerrors.Newf(dlerrors.ErrorTypeNotFound, "group %q has no column %q", ds.Group, name).
		WithDetail("group", ds.Group).
		WithDetail("column", name)
}

// Strings returns the text values of a column.
func (ds *DataSet) Strings(name string) ([]string, error) {
	if _, err := ds.column(name); err != nil {
		return nil, err
	}
	return ds.Data[name], nil
}

// Float64s returns a numeric or boolean column as float64 values.
func (ds *DataSet) Float64s(name string) ([]float64, error) {
	col, err := ds.column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, col.Len())
	switch c := col.(type) {
	case *columnar.Float64Column:
		copy(out, c.Values)
	case *columnar.Float32Column:
		for i, v := range c.Values {
			// through the shortest text form, so 4.2f reads as 4.2
			out[i], _ = strconv.ParseFloat(columnar.FormatFloat32(v), 64)
		}
	case *columnar.Int64Column:
		for i, v := range c.Values {
			out[i] = float64(v)
		}
	case *columnar.BoolColumn:
		for i, v := range c.Values {
			if v {
				out[i] = 1
			}
		}
	default:
		return nil, dlerrors.Newf(dlerrors.ErrorTypeSchema, "column %q of group %q is %s, not numeric",
			name, ds.Group, col.Type()).
			WithDetail("group", ds.Group).
			WithDetail("column", name)
	}
	return out, nil
}
