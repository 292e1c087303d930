package session

import (
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/config"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// Options configures a Session.
type Options struct {
	// AllowedBufferSize is the per-group budget in bytes. Zero or negative
	// means buffers grow until Flush.
	AllowedBufferSize int64
	// Compression is the frame codec of new artifacts.
	Compression compression.Config
	// AsyncFlush hands full buffers to the background worker. When false
	// the frame is written by the appending goroutine.
	AsyncFlush bool
	// QueueDepth bounds the buffers waiting for the worker.
	QueueDepth int
	// SyncOnFlush fsyncs every frame.
	SyncOnFlush bool

	Logger *zap.Logger
	// Clock names run directories; tests replace it.
	Clock func() time.Time
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options of New() without arguments.
func DefaultOptions() Options {
	return Options{
		Compression: *compression.DefaultConfig(),
		AsyncFlush:  true,
		QueueDepth:  16,
		Logger:      zap.NewNop(),
		Clock:       time.Now,
	}
}

// WithAllowedBufferSize sets the per-group buffer budget.
func WithAllowedBufferSize(bytes int64) Option {
	return func(o *Options) { o.AllowedBufferSize = bytes }
}

// WithCompression sets the artifact codec.
func WithCompression(alg compression.Algorithm, level compression.Level) Option {
	return func(o *Options) { o.Compression = compression.Config{Algorithm: alg, Level: level} }
}

// WithAsyncFlush enables or disables the background flush worker.
func WithAsyncFlush(async bool) Option {
	return func(o *Options) { o.AsyncFlush = async }
}

// WithQueueDepth bounds the flush queue.
func WithQueueDepth(n int) Option {
	return func(o *Options) { o.QueueDepth = n }
}

// WithSyncOnFlush fsyncs every frame.
func WithSyncOnFlush(sync bool) Option {
	return func(o *Options) { o.SyncOnFlush = sync }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithClock sets the clock used for run directory names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Clock = now }
}

// FromConfig translates a loaded configuration into options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithAllowedBufferSize(cfg.AllowedBufferSize),
		WithCompression(codec.Algorithm, codec.Level),
		WithAsyncFlush(cfg.Flush.Async),
		WithQueueDepth(cfg.Flush.QueueDepth),
		WithSyncOnFlush(cfg.Flush.Sync),
	}, nil
}

var treeKeys = []string{
	"allowed_buffer_size",
	"compression.algorithm",
	"compression.level",
	"flush.async",
	"flush.queue_depth",
	"flush.sync",
}

// OptionsFromTree reads session options below prefix of a parameter tree.
// Recognized keys are allowed_buffer_size, compression.algorithm,
// compression.level, flush.async, flush.queue_depth and flush.sync; absent
// keys keep their defaults. Trees that can list their keys, such as
// config.Tree, must not hold any other key below prefix.
func OptionsFromTree(tree config.ParameterTree, prefix string) ([]Option, error) {
	key := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	if lister, ok := tree.(interface{ Keys() []string }); ok {
		if err := checkTreeKeys(lister.Keys(), prefix); err != nil {
			return nil, err
		}
	}
	var opts []Option

	if v, ok := tree.Get(key("allowed_buffer_size")); ok {
		n, err := toInt64(v)
		if err != nil {
			return nil, paramError(key("allowed_buffer_size"), v)
		}
		opts = append(opts, WithAllowedBufferSize(n))
	}

	codec := compression.DefaultConfig()
	if v, ok := tree.Get(key("compression.algorithm")); ok {
		s, _ := v.(string)
		alg, err := compression.ParseAlgorithm(s)
		if err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid parameter").
				WithDetail("path", key("compression.algorithm"))
		}
		codec.Algorithm = alg
	}
	if v, ok := tree.Get(key("compression.level")); ok {
		s, ok := v.(string)
		if !ok {
			n, err := toInt64(v)
			if err != nil {
				return nil, paramError(key("compression.level"), v)
			}
			s = compression.Level(n).String()
		}
		level, err := compression.ParseLevel(s)
		if err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid parameter").
				WithDetail("path", key("compression.level"))
		}
		codec.Level = level
	}
	opts = append(opts, WithCompression(codec.Algorithm, codec.Level))

	if v, ok := tree.Get(key("flush.async")); ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, paramError(key("flush.async"), v)
		}
		opts = append(opts, WithAsyncFlush(b))
	}
	if v, ok := tree.Get(key("flush.queue_depth")); ok {
		n, err := toInt64(v)
		if err != nil || n < 1 {
			return nil, paramError(key("flush.queue_depth"), v)
		}
		opts = append(opts, WithQueueDepth(int(n)))
	}
	if v, ok := tree.Get(key("flush.sync")); ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, paramError(key("flush.sync"), v)
		}
		opts = append(opts, WithSyncOnFlush(b))
	}
	return opts, nil
}

func checkTreeKeys(keys []string, prefix string) error {
	prefix = strings.ToLower(strings.Trim(prefix, "."))
	for _, k := range keys {
		name := k
		if prefix != "" {
			var below bool
			if name, below = strings.CutPrefix(k, prefix+"."); !below {
				continue
			}
		}
		if !slices.Contains(treeKeys, name) {
			return dlerrors.Newf(dlerrors.ErrorTypeConfig, "unknown parameter %s", k).
				WithDetail("path", k)
		}
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, dlerrors.New(dlerrors.ErrorTypeConfig, "not an integer")
		}
		return int64(n), nil
	}
	return 0, dlerrors.New(dlerrors.ErrorTypeConfig, "not an integer")
}

func paramError(path string, v any) error {
	return dlerrors.Newf(dlerrors.ErrorTypeConfig, "invalid parameter %s: %v", path, v).
		WithDetail("path", path)
}
