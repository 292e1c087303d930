// Package session implements the data logger's recording side: a Session
// owns one run directory, the schemas of its groups and one in-memory
// column buffer per group.
//
// Append encodes a sample into its group's buffer and accounts its encoded
// size. When a group's buffered bytes reach the allowed buffer size, the
// buffer is swapped for an empty one and the full one is handed to a single
// background worker that appends it to the group's artifact as one frame.
// The queue in front of the worker is bounded, so the memory held by
// in-flight buffers is bounded by the queue depth times the budget.
//
// Basic usage:
//
//	s := session.New(session.WithAllowedBufferSize(1 << 20))
//	defer s.Close()
//
//	if _, err := s.CreateRun("walk", "/var/log/robot"); err != nil {
//		return err
//	}
//	base, err := s.RegisterGroup("base",
//		field.New("x", field.Float64(0)),
//		field.New("q", field.Vector64(0, 0, 0)),
//	)
//	...
//	err = s.Append(base, field.Float64(1.5), field.Vector64(1, 2, 3))
package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/field"
	"github.com/ajitpratap0/datalogger/pkg/metrics"
	"github.com/ajitpratap0/datalogger/pkg/observability"
	"github.com/ajitpratap0/datalogger/pkg/pool"
	"github.com/ajitpratap0/datalogger/pkg/schema"
	"github.com/ajitpratap0/datalogger/pkg/storage"
)

const (
	defaultBatchRows = 1024
	maxBatchRows     = 1 << 16
	latencyWindow    = 4096
)

// GroupStats is a snapshot of one group's counters.
type GroupStats struct {
	Group   string
	Columns int
	// Appended counts accepted samples.
	Appended int64
	// Persisted counts samples written to the artifact.
	Persisted int64
	// BufferedRows and BufferedBytes describe the current buffer.
	BufferedRows  int
	BufferedBytes int64
	// BufferCapacity is the memory held by the buffer's columns,
	// including preallocated room.
	BufferCapacity int64
	Frames         int64
	ArtifactBytes  int64
}

type groupState struct {
	schema  *schema.Group
	writer  *storage.Writer
	batches *pool.Pool[*columnar.Batch]
	metrics *metrics.Group

	// guarded by Session.mu
	batch    *columnar.Batch
	buffered int64
	appended int64

	// updated by whoever writes frames
	persisted atomic.Int64
	frames    atomic.Int64
	bytes     atomic.Int64
}

type flushJob struct {
	group   *groupState
	batch   *columnar.Batch
	trigger string
	// done marks a barrier: the worker answers with the sticky error.
	done chan error
}

// Session records samples into one run. All methods are safe for
// concurrent use, though samples of one group are expected from a single
// control loop.
type Session struct {
	mu       sync.Mutex
	opts     Options
	logger   *zap.Logger
	registry *schema.Registry
	groups   []*groupState
	run      *Run
	host     storage.HostInfo
	budget   int64
	closed   bool

	jobs    chan flushJob
	barrier *pool.ChannelPool[error]
	wg      sync.WaitGroup

	errMu    sync.Mutex
	writeErr error

	latency *metrics.LatencyTracker
}

// New creates a session. No run exists until CreateRun.
func New(opts ...Option) *Session {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.QueueDepth < 1 {
		o.QueueDepth = 1
	}
	logger := o.Logger.With(zap.String("component", "session"))

	return &Session{
		opts:     o,
		logger:   logger,
		registry: schema.NewRegistry(logger),
		budget:   o.AllowedBufferSize,
		barrier:  pool.NewChannelPool[error](1),
		latency:  metrics.NewLatencyTracker(latencyWindow),
	}
}

// CreateRun creates the run directory <directory>/<baseName>_<timestamp>.
// Calling it again with the same arguments returns the existing run; other
// arguments fail with a conflict error.
func (s *Session) CreateRun(baseName, directory string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errClosed()
	}
	parent := filepath.Clean(directory)
	if s.run != nil {
		if s.run.BaseName == baseName && s.run.Parent == parent {
			run := *s.run
			return &run, nil
		}
		return nil, dlerrors.Newf(dlerrors.ErrorTypeConflict,
			"run %q already exists; cannot create %q in %s", s.run.Directory, baseName, parent).
			WithDetail("run", s.run.Directory)
	}
	if baseName == "" || strings.ContainsAny(baseName, `/\`) {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeConfig, "invalid run base name %q", baseName)
	}

	now := s.opts.Clock()
	dir, err := createRunDir(parent, baseName, now)
	if err != nil {
		return nil, err
	}
	s.run = &Run{
		ID:        newRunID(),
		BaseName:  baseName,
		Parent:    parent,
		Directory: dir,
		Created:   now,
	}
	s.host = hostInfo(s.logger)
	if err := s.writeManifest(context.Background()); err != nil {
		s.run = nil
		return nil, err
	}

	if s.opts.AsyncFlush {
		s.jobs = make(chan flushJob, s.opts.QueueDepth)
		s.wg.Add(1)
		go s.worker()
	}

	s.logger.Info("run created",
		zap.String("run_id", s.run.ID),
		zap.String("dir", dir),
		zap.String("codec", string(s.opts.Compression.Algorithm)),
		zap.Int64("allowed_buffer_size", s.budget))

	run := *s.run
	return &run, nil
}

// RegisterGroup registers a group and creates its artifact. The fields'
// values define the schema only; they are not recorded.
func (s *Session) RegisterGroup(name string, fields ...field.Field) (schema.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return -1, err
	}
	if _, _, exists := s.registry.Lookup(name); exists {
		return -1, dlerrors.Newf(dlerrors.ErrorTypeSchema, "group %q already registered", name).
			WithDetail("group", name)
	}
	g, err := schema.Build(name, fields...)
	if err != nil {
		return -1, err
	}

	rows := s.batchRows(g)
	first, err := columnar.NewBatch(g.Columns, rows)
	if err != nil {
		return -1, dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to allocate group buffer").
			WithDetail("group", name)
	}

	w, err := storage.Create(s.run.Directory, storage.Header{
		Group:       name,
		Created:     s.opts.Clock().UTC(),
		Fingerprint: g.Fingerprint,
		Columns:     g.Columns,
	}, storage.WriterOptions{
		Compression: &s.opts.Compression,
		SyncOnWrite: s.opts.SyncOnFlush,
	})
	if err != nil {
		return -1, err
	}

	h, err := s.registry.Add(g)
	if err != nil {
		_ = w.Close()
		return -1, err
	}

	gs := &groupState{
		schema: g,
		writer: w,
		batches: pool.New(
			func() *columnar.Batch {
				// specs were accepted by NewBatch above
				b, _ := columnar.NewBatch(g.Columns, rows)
				return b
			},
			func(b *columnar.Batch) { b.Reset() },
		),
		metrics: metrics.ForGroup(name),
		batch:   first,
	}
	gs.bytes.Store(w.Stats().Bytes)
	s.groups = append(s.groups, gs)
	return h, nil
}

// batchRows sizes new buffers from the budget and the fixed row width.
func (s *Session) batchRows(g *schema.Group) int {
	if s.budget <= 0 {
		return defaultBatchRows
	}
	var width int64
	for _, c := range g.Columns {
		w := int64(c.Type.Width())
		if w == 0 {
			w = 16
		}
		width += w
	}
	rows := s.budget/width + 1
	if rows > maxBatchRows {
		return maxBatchRows
	}
	return int(rows)
}

// SetAllowedBufferSize sets the per-group budget in bytes. Zero or negative
// disables automatic flushing.
func (s *Session) SetAllowedBufferSize(bytes int64) {
	s.mu.Lock()
	s.budget = bytes
	s.mu.Unlock()
}

// AllowedBufferSize returns the per-group budget.
func (s *Session) AllowedBufferSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

// Append records one sample of the group behind h. values must match the
// registered fields in number, order, type and shape. A schema error leaves
// the buffer untouched.
func (s *Session) Append(h schema.Handle, values ...field.Value) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if err := s.failure(); err != nil {
		return err
	}
	if h < 0 || int(h) >= len(s.groups) {
		return dlerrors.Newf(dlerrors.ErrorTypeNotFound, "unknown group handle %d", int(h))
	}
	gs := s.groups[h]
	if err := gs.schema.Validate(values); err != nil {
		return err
	}

	cols := gs.batch.Columns()
	var size int64
	for i, v := range values {
		off := gs.schema.Offset(i)
		v.AppendTo(cols[off : off+gs.schema.Fields[i].Width()])
		size += v.EncodedSize()
	}
	gs.buffered += size
	gs.appended++

	var err error
	if s.budget > 0 && gs.buffered >= s.budget {
		err = s.flushGroup(gs, metrics.TriggerBudget)
	}
	gs.metrics.SetBuffered(gs.buffered)

	d := time.Since(start)
	gs.metrics.ObserveAppend(d)
	s.latency.Record(d)
	return err
}

// flushGroup swaps out the group's buffer and persists it, inline or
// through the worker. Callers hold s.mu.
func (s *Session) flushGroup(gs *groupState, trigger string) error {
	if gs.batch.Rows() == 0 {
		return nil
	}
	job := flushJob{group: gs, batch: gs.batch, trigger: trigger}
	gs.batch = gs.batches.Get()
	gs.buffered = 0

	if s.jobs == nil {
		return s.persist(job)
	}
	s.jobs <- job
	metrics.FlushQueueDepth.Set(float64(len(s.jobs)))
	return nil
}

// Flush persists the buffers of all groups, waits until every frame is
// written and rewrites the run manifest. It returns the first write error
// of the session, if any.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(context.Background(), "datalogger.flush",
		attribute.String("run_id", s.run.ID))
	defer span.End()

	err := s.flushAll(metrics.TriggerExplicit)
	if merr := s.writeManifest(ctx); err == nil {
		err = merr
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// flushAll flushes every group and drains the worker. Callers hold s.mu.
func (s *Session) flushAll(trigger string) error {
	var first error
	for _, gs := range s.groups {
		if err := s.flushGroup(gs, trigger); err != nil && first == nil {
			first = err
		}
		gs.metrics.SetBuffered(0)
	}
	if s.jobs != nil {
		done := s.barrier.Get()
		s.jobs <- flushJob{done: done}
		err := <-done
		s.barrier.Put(done)
		if first == nil {
			first = err
		}
	}
	if first == nil {
		first = s.failure()
	}
	return first
}

// Close flushes all buffers, stops the worker, closes the artifacts and
// marks the manifest closed. Later calls return nil; every other operation
// fails once the session is closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.run == nil {
		return nil
	}

	errs := []error{s.flushAll(metrics.TriggerClose)}
	if s.jobs != nil {
		close(s.jobs)
		s.wg.Wait()
		s.jobs = nil
	}
	for _, gs := range s.groups {
		errs = append(errs, gs.writer.Close())
	}
	errs = append(errs, s.writeManifest(context.Background()))

	s.logger.Info("run closed",
		zap.String("run_id", s.run.ID),
		zap.Int("groups", len(s.groups)))

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("close failed", zap.Error(err))
	}
	return err
}

// RunDirectory returns the directory of the current run, or "" before
// CreateRun.
func (s *Session) RunDirectory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return ""
	}
	return s.run.Directory
}

// Run returns a copy of the current run, or nil before CreateRun.
func (s *Session) Run() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return nil
	}
	run := *s.run
	return &run
}

// Lookup returns the handle of a registered group.
func (s *Session) Lookup(name string) (schema.Handle, bool) {
	h, _, ok := s.registry.Lookup(name)
	return h, ok
}

// Schema returns the schema behind h.
func (s *Session) Schema(h schema.Handle) (*schema.Group, error) {
	return s.registry.Resolve(h)
}

// Stats returns a snapshot of every group in registration order.
func (s *Session) Stats() []GroupStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]GroupStats, 0, len(s.groups))
	for _, gs := range s.groups {
		out = append(out, GroupStats{
			Group:          gs.schema.Name,
			Columns:        len(gs.schema.Columns),
			Appended:       gs.appended,
			Persisted:      gs.persisted.Load(),
			BufferedRows:   gs.batch.Rows(),
			BufferedBytes:  gs.buffered,
			BufferCapacity: gs.batch.MemoryUsage(),
			Frames:         gs.frames.Load(),
			ArtifactBytes:  gs.bytes.Load(),
		})
	}
	return out
}

// AppendLatency returns the latency tracker of Append calls.
func (s *Session) AppendLatency() *metrics.LatencyTracker {
	return s.latency
}

// Err returns the sticky write error, if any.
func (s *Session) Err() error {
	return s.failure()
}

func (s *Session) usable() error {
	if s.closed {
		return errClosed()
	}
	if s.run == nil {
		return dlerrors.New(dlerrors.ErrorTypeState, "no run; call CreateRun first")
	}
	return nil
}

func (s *Session) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.writeErr
}

func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.writeErr == nil {
		s.writeErr = err
	}
	s.errMu.Unlock()
}

func (s *Session) writeManifest(ctx context.Context) error {
	m := &storage.Manifest{
		ID:                s.run.ID,
		BaseName:          s.run.BaseName,
		Created:           s.run.Created,
		Updated:           s.opts.Clock(),
		Closed:            s.closed,
		Host:              s.host,
		Codec:             string(s.opts.Compression.Algorithm),
		Level:             s.opts.Compression.Level.String(),
		AllowedBufferSize: s.budget,
		Groups:            make([]storage.ManifestGroup, 0, len(s.groups)),
	}
	for _, gs := range s.groups {
		m.Groups = append(m.Groups, storage.ManifestGroup{
			Name:        gs.schema.Name,
			File:        filepath.Base(gs.writer.Path()),
			Fingerprint: gs.schema.Fingerprint,
			Columns:     len(gs.schema.Columns),
			Rows:        gs.persisted.Load(),
			Frames:      int(gs.frames.Load()),
			Bytes:       gs.bytes.Load(),
		})
	}

	err := observability.Trace(ctx, "datalogger.manifest.write", func(context.Context) error {
		return storage.WriteManifest(s.run.Directory, m)
	}, attribute.String("run_id", s.run.ID), attribute.Int("groups", len(m.Groups)))
	if err != nil {
		s.logger.Error("manifest write failed", zap.String("dir", s.run.Directory), zap.Error(err))
	}
	return err
}

func errClosed() error {
	return dlerrors.New(dlerrors.ErrorTypeState, "session is closed")
}
