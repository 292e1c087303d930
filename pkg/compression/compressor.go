// Package compression provides the block codecs used for data logger
// frames and for compressed exports.
//
// # Overview
//
// Every flushed frame is compressed as one block with the artifact's codec.
// The codec and level are recorded in the artifact header so a reader needs
// no configuration to decode it.
//
// # Algorithm Selection
//
//   - LZ4: extremely fast, decent compression; the default for live runs
//   - Snappy/S2: fast, moderate compression
//   - Zstd: best compression ratio, good speed
//   - Gzip/Deflate: wide compatibility
//   - None: raw payloads, useful when debugging the artifact layout
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.LZ4,
//	    Level:     compression.Fastest,
//	})
//
//	block, err := comp.Compress(nil, payload)
//	payload, err = comp.Decompress(payload[:0], block, rawSize)
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// ParseAlgorithm validates an algorithm name. The empty string selects LZ4.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return LZ4, nil
	}
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", s)
}

// Extension returns the conventional file suffix for streams written with
// the algorithm, including the leading dot, or "" for None.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	case Deflate:
		return ".deflate"
	default:
		return ""
	}
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	// Use for real-time scenarios where latency is critical.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel accepts a level name or its numeric value. The empty string
// selects Fastest.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "fastest", "1":
		return Fastest, nil
	case "default", "5":
		return Default, nil
	case "better", "7":
		return Better, nil
	case "best", "9":
		return Best, nil
	}
	return 0, fmt.Errorf("unsupported compression level: %s", s)
}

// Compressor provides block and stream compression.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress appends the compressed form of src to dst.
	Compress(dst, src []byte) ([]byte, error)

	// Decompress appends the decompressed form of src to dst. rawSize is
	// the expected decompressed length; any other length is an error.
	Decompress(dst, src []byte, rawSize int) ([]byte, error)

	// CompressStream returns a writer that compresses into dst. Closing it
	// flushes the stream but does not close dst.
	CompressStream(dst io.Writer) (io.WriteCloser, error)

	// DecompressStream returns a reader over the decompressed content of src.
	DecompressStream(src io.Reader) (io.ReadCloser, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
}

// DefaultConfig returns the configuration used for live runs: LZ4 at its
// fastest level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: LZ4,
		Level:     Fastest,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{algorithm: config.Algorithm, level: config.Level}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	case LZ4:
		return newLZ4Compressor(base), nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case Deflate:
		return &deflateCompressor{baseCompressor: base, flateLevel: mapDeflateLevel(config.Level)}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

var bufferPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	// Frames are bounded by the flush budget; drop outsized buffers anyway.
	if buf.Cap() > 64<<20 {
		return
	}
	bufferPool.Put(buf)
}

// readAllLimited decompresses r into dst, failing unless exactly rawSize
// bytes are produced.
func readAllLimited(dst []byte, r io.Reader, rawSize int) ([]byte, error) {
	start := len(dst)
	if cap(dst)-start < rawSize {
		grown := make([]byte, start, start+rawSize)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+rawSize]
	if _, err := io.ReadFull(r, dst[start:]); err != nil {
		return nil, fmt.Errorf("decompressed size below %d bytes: %w", rawSize, err)
	}
	var one [1]byte
	if n, _ := r.Read(one[:]); n != 0 {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", rawSize)
	}
	return dst, nil
}

func checkSize(out []byte, start, rawSize int) ([]byte, error) {
	if got := len(out) - start; got != rawSize {
		return nil, fmt.Errorf("decompressed %d bytes, expected %d", got, rawSize)
	}
	return out, nil
}

// nopWriteCloser adapts writers whose Close is a no-op.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Base compressor implementation
type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (nc *noneCompressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if len(src) != rawSize {
		return nil, fmt.Errorf("raw block has %d bytes, expected %d", len(src), rawSize)
	}
	return append(dst, src...), nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{dst}, nil
}

func (nc *noneCompressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(src), nil
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	gzipLevel  int
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	gc := &gzipCompressor{
		baseCompressor: base,
		gzipLevel:      mapGzipLevel(base.level),
	}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gc.gzipLevel)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (gc *gzipCompressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return readAllLimited(dst, r, rawSize)
}

func (gc *gzipCompressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(dst, gc.gzipLevel)
}

func (gc *gzipCompressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := make([]byte, snappy.MaxEncodedLen(len(src)))
	return append(dst, snappy.Encode(buf, src)...), nil
}

func (sc *snappyCompressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n != rawSize {
		return nil, fmt.Errorf("snappy block decodes to %d bytes, expected %d", n, rawSize)
	}
	out, err := snappy.Decode(make([]byte, n), src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}

func (sc *snappyCompressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(dst), nil
}

func (sc *snappyCompressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(src)), nil
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
	writerPool       sync.Pool
}

func newLZ4Compressor(base baseCompressor) *lz4Compressor {
	lc := &lz4Compressor{
		baseCompressor:   base,
		compressionLevel: mapLZ4Level(base.level),
	}
	lc.writerPool.New = func() interface{} {
		w := lz4.NewWriter(nil)
		// Apply compression level using the v4 API; Reset keeps options.
		_ = w.Apply(lz4.CompressionLevelOption(lc.compressionLevel))
		return w
	}
	return lc
}

func (lc *lz4Compressor) Compress(dst, src []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	w := lc.writerPool.Get().(*lz4.Writer)
	defer lc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (lc *lz4Compressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	return readAllLimited(dst, lz4.NewReader(bytes.NewReader(src)), rawSize)
}

func (lc *lz4Compressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}
	return w, nil
}

func (lc *lz4Compressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(src)), nil
}

// Zstd compressor. A single encoder and decoder are shared; their
// EncodeAll/DecodeAll methods are safe for concurrent use.
type zstdCompressor struct {
	baseCompressor
	encoderLevel zstd.EncoderLevel
	encoder      *zstd.Encoder
	decoder      *zstd.Decoder
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	level := mapZstdLevel(base.level)
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	// block decoding only; concurrency 1 keeps the decoder free of goroutines
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{
		baseCompressor: base,
		encoderLevel:   level,
		encoder:        enc,
		decoder:        dec,
	}, nil
}

func (zc *zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(src, dst), nil
}

func (zc *zstdCompressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	start := len(dst)
	out, err := zc.decoder.DecodeAll(src, dst)
	if err != nil {
		return nil, err
	}
	return checkSize(out, start, rawSize)
}

func (zc *zstdCompressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zc.encoderLevel))
}

func (zc *zstdCompressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, s2.Encode(nil, src)...), nil
}

func (sc *s2Compressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n != rawSize {
		return nil, fmt.Errorf("s2 block decodes to %d bytes, expected %d", n, rawSize)
	}
	out, err := s2.Decode(make([]byte, n), src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}

func (sc *s2Compressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(dst), nil
}

func (sc *s2Compressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(src)), nil
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	flateLevel int
}

func (dc *deflateCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	w, err := flate.NewWriter(buf, dc.flateLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (dc *deflateCompressor) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer func() { _ = r.Close() }()
	return readAllLimited(dst, r, rawSize)
}

func (dc *deflateCompressor) CompressStream(dst io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(dst, dc.flateLevel)
}

func (dc *deflateCompressor) DecompressStream(src io.Reader) (io.ReadCloser, error) {
	return flate.NewReader(src), nil
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
