package storage

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/pool"
)

// WriterOptions configures artifact creation.
type WriterOptions struct {
	Compression *compression.Config
	// SyncOnWrite fsyncs the file after the header and after every frame.
	SyncOnWrite bool
}

// WriterStats are cumulative counters of one artifact.
type WriterStats struct {
	Frames int
	Rows   int64
	// Bytes is the current file size, header included.
	Bytes int64
	// RawBytes is the uncompressed size of all payloads.
	RawBytes int64
}

// Writer appends frames to one group artifact. It is not safe for
// concurrent use; the session serializes access through its flush worker.
type Writer struct {
	path       string
	file       *os.File
	header     Header
	compressor compression.Compressor
	sync       bool

	frame   []byte
	lastRaw int
	stats   WriterStats
	closed  bool
}

// Create creates the artifact for header.Group in dir and writes its header.
// An existing artifact is never overwritten.
func Create(dir string, header Header, opts WriterOptions) (*Writer, error) {
	cfg := opts.Compression
	if cfg == nil {
		cfg = compression.DefaultConfig()
	}
	comp, err := compression.NewCompressor(cfg)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeCapability, "invalid artifact codec")
	}

	header.Version = FormatVersion
	header.Codec = cfg.Algorithm
	header.Level = cfg.Level
	if header.Created.IsZero() {
		header.Created = time.Now().UTC()
	}
	hdr, err := encodeHeader(&header)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to encode artifact header")
	}

	path := ArtifactPath(dir, header.Group)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create artifact").
			WithDetail("path", path)
	}

	w := &Writer{
		path:       path,
		file:       file,
		header:     header,
		compressor: comp,
		sync:       opts.SyncOnWrite,
	}
	if err := w.writeAt(hdr, 0); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, err
	}
	w.stats.Bytes = int64(len(hdr))
	return w, nil
}

// Path returns the artifact path.
func (w *Writer) Path() string { return w.path }

// Header returns the header written at creation.
func (w *Writer) Header() Header { return w.header }

// Stats returns the cumulative counters.
func (w *Writer) Stats() WriterStats { return w.stats }

// WriteBatch appends b as one frame. An empty batch writes nothing. On
// failure the file is truncated back to its last complete frame so earlier
// rows stay readable.
func (w *Writer) WriteBatch(b *columnar.Batch) (FrameInfo, error) {
	if w.closed {
		return FrameInfo{}, dlerrors.New(dlerrors.ErrorTypeState, "artifact writer is closed").
			WithDetail("group", w.header.Group)
	}
	rows := b.Rows()
	if rows == 0 {
		return FrameInfo{}, nil
	}
	if len(b.Specs()) != len(w.header.Columns) {
		return FrameInfo{}, dlerrors.Newf(dlerrors.ErrorTypeInternal,
			"batch has %d columns, artifact has %d", len(b.Specs()), len(w.header.Columns)).
			WithDetail("group", w.header.Group)
	}
	if err := b.Validate(); err != nil {
		return FrameInfo{}, dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "inconsistent batch").
			WithDetail("group", w.header.Group)
	}

	raw := b.Encode(pool.GlobalBufferPool.Get(w.lastRaw))
	defer pool.GlobalBufferPool.Put(raw)
	if uint64(rows) > math.MaxUint32 || uint64(len(raw)) > math.MaxUint32 {
		return FrameInfo{}, dlerrors.Newf(dlerrors.ErrorTypeIO, "frame of %d rows, %d bytes exceeds format limits", rows, len(raw)).
			WithDetail("group", w.header.Group)
	}
	w.lastRaw = len(raw)

	frame := append(w.frame[:0], make([]byte, frameHeaderSize)...)
	frame, err := w.compressor.Compress(frame, raw)
	if err != nil {
		return FrameInfo{}, dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to compress frame").
			WithDetail("group", w.header.Group)
	}
	payload := frame[frameHeaderSize:]
	if uint64(len(payload)) > math.MaxUint32 {
		return FrameInfo{}, dlerrors.Newf(dlerrors.ErrorTypeIO, "compressed frame of %d bytes exceeds format limits", len(payload))
	}
	putFrameHeader(frame, rows, len(raw), payload)
	w.frame = frame

	info := FrameInfo{
		Offset:     w.stats.Bytes,
		Rows:       rows,
		RawSize:    len(raw),
		PayloadLen: len(payload),
	}
	if err := w.writeAt(frame, w.stats.Bytes); err != nil {
		if terr := w.file.Truncate(w.stats.Bytes); terr != nil {
			return info, dlerrors.Wrap(fmt.Errorf("%w (rollback failed: %v)", err, terr), dlerrors.ErrorTypeIO, "failed to write frame").
				WithDetail("group", w.header.Group)
		}
		return info, err
	}

	w.stats.Frames++
	w.stats.Rows += int64(rows)
	w.stats.Bytes += int64(len(frame))
	w.stats.RawBytes += int64(len(raw))
	return info, nil
}

func (w *Writer) writeAt(p []byte, off int64) error {
	if _, err := w.file.WriteAt(p, off); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write artifact").
			WithDetail("path", w.path)
	}
	if w.sync {
		return w.Sync()
	}
	return nil
}

// Sync commits the artifact to stable storage.
func (w *Writer) Sync() error {
	if err := w.file.Sync(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to sync artifact").
			WithDetail("path", w.path)
	}
	return nil
}

// Close syncs and closes the artifact. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.frame = nil

	syncErr := w.file.Sync()
	if err := w.file.Close(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to close artifact").
			WithDetail("path", w.path)
	}
	if syncErr != nil {
		return dlerrors.Wrap(syncErr, dlerrors.ErrorTypeIO, "failed to sync artifact").
			WithDetail("path", w.path)
	}
	return nil
}
