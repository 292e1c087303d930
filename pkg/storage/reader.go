package storage

import (
	"errors"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/mmap"
	"github.com/ajitpratap0/datalogger/pkg/pool"
)

// DecodeOptions controls artifact decoding.
type DecodeOptions struct {
	// Salvage keeps the rows of every intact frame before the first damaged
	// one instead of failing. The damage is reported in Artifact.Damage.
	Salvage bool
}

// Artifact is a decoded group artifact
type Artifact struct {
	Header *Header
	Batch  *columnar.Batch
	Frames []FrameInfo
	// Damage is the error that ended decoding early in salvage mode.
	Damage error
}

// Rows returns the number of decoded rows.
func (a *Artifact) Rows() int { return a.Batch.Rows() }

// Scan validates the header and every frame checksum without decompressing
// payloads.
func Scan(data []byte) (*Header, []FrameInfo, error) {
	h, off, err := DecodeHeader(data)
	if err != nil {
		return nil, nil, err
	}
	var frames []FrameInfo
	for off < len(data) {
		info, payload, err := nextFrame(data, off)
		if err != nil {
			return h, frames, err
		}
		frames = append(frames, info)
		off += frameHeaderSize + len(payload)
	}
	return h, frames, nil
}

// Decode parses a whole artifact held in memory.
func Decode(data []byte, opts DecodeOptions) (*Artifact, error) {
	h, off, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: h.Codec, Level: h.Level})
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "artifact uses an unknown codec").
			WithDetail("group", h.Group)
	}
	batch, err := columnar.NewBatch(h.Columns, 0)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "artifact has an invalid column list").
			WithDetail("group", h.Group)
	}

	a := &Artifact{Header: h, Batch: batch}
	for off < len(data) {
		info, err := decodeFrame(data, off, comp, batch)
		if err != nil {
			err = dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "damaged frame").
				WithDetail("group", h.Group).
				WithDetail("offset", off)
			if !opts.Salvage {
				return nil, err
			}
			a.Damage = err
			break
		}
		a.Frames = append(a.Frames, info)
		off += frameHeaderSize + info.PayloadLen
	}
	return a, nil
}

func decodeFrame(data []byte, off int, comp compression.Compressor, batch *columnar.Batch) (FrameInfo, error) {
	info, payload, err := nextFrame(data, off)
	if err != nil {
		return info, err
	}
	raw := pool.GlobalBufferPool.Get(info.RawSize)
	defer func() { pool.GlobalBufferPool.Put(raw) }()

	raw, err = comp.Decompress(raw, payload, info.RawSize)
	if err != nil {
		return info, err
	}

	// Decode appends; roll the columns back if the frame is inconsistent so
	// a salvaged batch holds only whole frames.
	before := batch.Rows()
	if err := batch.Decode(raw, info.Rows); err != nil {
		truncate(batch, before)
		return info, err
	}
	return info, nil
}

func truncate(b *columnar.Batch, rows int) {
	for _, col := range b.Columns() {
		switch c := col.(type) {
		case *columnar.Float64Column:
			c.Values = c.Values[:min(rows, len(c.Values))]
		case *columnar.Float32Column:
			c.Values = c.Values[:min(rows, len(c.Values))]
		case *columnar.Int64Column:
			c.Values = c.Values[:min(rows, len(c.Values))]
		case *columnar.BoolColumn:
			c.Values = c.Values[:min(rows, len(c.Values))]
		case *columnar.StringColumn:
			c.Values = c.Values[:min(rows, len(c.Values))]
		}
	}
}

// ReadFile maps the artifact at path and decodes it.
func ReadFile(path string, opts DecodeOptions) (*Artifact, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "failed to open artifact").
			WithDetail("path", path)
	}
	a, err := Decode(f.Bytes(), opts)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = dlerrors.Wrap(cerr, dlerrors.ErrorTypeRead, "failed to unmap artifact")
	}
	if err != nil {
		var de *dlerrors.Error
		if errors.As(err, &de) {
			de.WithDetail("path", path)
		}
		return nil, err
	}
	return a, nil
}

// ScanFile maps the artifact at path and scans it.
func ScanFile(path string) (*Header, []FrameInfo, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "failed to open artifact").
			WithDetail("path", path)
	}
	defer f.Close()
	return Scan(f.Bytes())
}
