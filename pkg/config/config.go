package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/logger"
	"github.com/ajitpratap0/datalogger/pkg/observability"
)

// EnvPrefix is the prefix of environment variables overriding file settings,
// e.g. DATALOGGER_ALLOWED_BUFFER_SIZE or DATALOGGER_COMPRESSION_ALGORITHM.
const EnvPrefix = "DATALOGGER"

// Config is the complete configuration of a logging session and the tools
// around it.
type Config struct {
	// Directory is the parent directory of run directories.
	Directory string `yaml:"directory" mapstructure:"directory"`
	// BaseName prefixes every run directory name.
	BaseName string `yaml:"base_name" mapstructure:"base_name"`
	// AllowedBufferSize is the per-group buffer budget in bytes; zero or
	// negative disables automatic flushing.
	AllowedBufferSize int64 `yaml:"allowed_buffer_size" mapstructure:"allowed_buffer_size"`

	Compression CompressionConfig `yaml:"compression" mapstructure:"compression"`
	Flush       FlushConfig       `yaml:"flush" mapstructure:"flush"`

	Logging logger.Config        `yaml:"logging" mapstructure:"logging"`
	Tracing observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

// CompressionConfig selects the frame codec of new artifacts.
type CompressionConfig struct {
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"`
	Level     string `yaml:"level" mapstructure:"level"`
}

// FlushConfig controls how full buffers reach disk.
type FlushConfig struct {
	// Async hands full buffers to a background worker instead of writing
	// them on the appending goroutine.
	Async bool `yaml:"async" mapstructure:"async"`
	// QueueDepth bounds the number of buffers waiting for the worker.
	QueueDepth int `yaml:"queue_depth" mapstructure:"queue_depth"`
	// Sync fsyncs the artifact after every frame.
	Sync bool `yaml:"sync" mapstructure:"sync"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Directory:         os.TempDir(),
		BaseName:          "run",
		AllowedBufferSize: 0,
		Compression: CompressionConfig{
			Algorithm: string(compression.LZ4),
			Level:     compression.Fastest.String(),
		},
		Flush: FlushConfig{
			Async:      true,
			QueueDepth: 16,
		},
		Logging: logger.DefaultConfig(),
		Tracing: observability.DefaultConfig(),
	}
}

// Validate checks the configuration for values no session can run with.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return dlerrors.New(dlerrors.ErrorTypeConfig, "directory is required")
	}
	if c.BaseName == "" {
		return dlerrors.New(dlerrors.ErrorTypeConfig, "base_name is required")
	}
	if strings.ContainsAny(c.BaseName, `/\`) {
		return dlerrors.Newf(dlerrors.ErrorTypeConfig, "base_name %q must not contain path separators", c.BaseName)
	}
	if _, err := c.Codec(); err != nil {
		return err
	}
	if c.Flush.Async && c.Flush.QueueDepth < 1 {
		return dlerrors.New(dlerrors.ErrorTypeConfig, "flush.queue_depth must be positive")
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid logging.level")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return dlerrors.New(dlerrors.ErrorTypeConfig, "tracing.sampling_rate must be between 0 and 1")
	}
	return nil
}

// Codec returns the parsed compression settings.
func (c *Config) Codec() (*compression.Config, error) {
	algo, err := compression.ParseAlgorithm(c.Compression.Algorithm)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid compression.algorithm")
	}
	level, err := compression.ParseLevel(c.Compression.Level)
	if err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid compression.level")
	}
	return &compression.Config{Algorithm: algo, Level: level}, nil
}

// Load reads the configuration file at path, applies DATALOGGER_*
// environment overrides and validates the result. An empty path loads the
// defaults plus the environment. ${VAR} references inside the file are
// substituted before parsing.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
		if err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
		v.SetConfigType(configType(path))
		if err := v.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "failed to parse config file").
				WithDetail("path", path)
		}
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

// setDefaults registers every key so that AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("directory", d.Directory)
	v.SetDefault("base_name", d.BaseName)
	v.SetDefault("allowed_buffer_size", d.AllowedBufferSize)
	v.SetDefault("compression.algorithm", d.Compression.Algorithm)
	v.SetDefault("compression.level", d.Compression.Level)
	v.SetDefault("flush.async", d.Flush.Async)
	v.SetDefault("flush.queue_depth", d.Flush.QueueDepth)
	v.SetDefault("flush.sync", d.Flush.Sync)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.service_version", d.Tracing.ServiceVersion)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)
	v.SetDefault("tracing.batch_timeout", d.Tracing.BatchTimeout)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configType(path string) string {
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "json", "toml", "yaml", "yml":
		return ext
	default:
		return "yaml"
	}
}

