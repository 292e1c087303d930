// Package logger provides structured logging for the data logger
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
)

// contextKey is the type for context keys
type contextKey string

const (
	// RunIDKey is the context key for the run ID
	RunIDKey contextKey = "run_id"
	// GroupKey is the context key for a group name
	GroupKey contextKey = "group"
)

// Config represents logger configuration
type Config struct {
	Level       string   `yaml:"level" mapstructure:"level"`
	Development bool     `yaml:"development" mapstructure:"development"`
	Encoding    string   `yaml:"encoding" mapstructure:"encoding"` // json or console
	OutputPaths []string `yaml:"output_paths" mapstructure:"output_paths"`
	// File adds a size-rotated log file next to the other outputs.
	File *FileConfig `yaml:"file,omitempty" mapstructure:"file"`
}

// FileConfig configures the rotating file sink
type FileConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// DefaultConfig returns an info-level JSON logger on stdout.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Encoding: "json",
	}
}

// Init builds a logger from cfg and installs it as the global logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	old := globalLogger
	globalLogger = l
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if development {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

// New creates a zap logger from cfg without touching the global logger.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "json"
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	atom := zap.NewAtomicLevelAt(level)
	zapCfg := zap.Config{
		Level:            atom,
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig(cfg.Development),
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.File != nil && cfg.File.Path != "" {
		fileCore := zapcore.NewCore(
			// Files never get color codes.
			zapcore.NewJSONEncoder(encoderConfig(false)),
			zapcore.AddSync(NewRotatingWriter(*cfg.File)),
			atom,
		)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}
	if cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// NewRotatingWriter returns a size-rotated file writer.
func NewRotatingWriter(cfg FileConfig) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// Get returns the global logger, creating a default one on first use.
func Get() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l, _ = zap.NewProduction()
		}
		globalLogger = l
	}
	return globalLogger
}

// WithContext returns a logger with context values
func WithContext(ctx context.Context) *zap.Logger {
	logger := Get()

	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		logger = logger.With(zap.String("run_id", runID))
	}
	if group, ok := ctx.Value(GroupKey).(string); ok {
		logger = logger.With(zap.String("group", group))
	}
	return logger
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l.Sync()
	}
	return nil
}
