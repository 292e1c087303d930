package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/config"
	"github.com/ajitpratap0/datalogger/pkg/logger"
	"github.com/ajitpratap0/datalogger/pkg/observability"
)

var version = "0.1.0"

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	logLevel   string
	trace      bool
}

// app carries what the root command prepared for its subcommands
type app struct {
	flags    globalFlags
	cfg      *config.Config
	log      *zap.Logger
	shutdown observability.ShutdownFunc
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dlogctl",
		Short: "dlogctl - record, inspect and export telemetry runs",
		Long: `dlogctl drives the data logger from the command line. It records a
simulated robot into a run directory, prints what a run holds and exports
its groups as CSV, JSON lines, Parquet, Arrow or Avro.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&a.flags.configFile, "config", "c", "", "Path to a YAML, JSON or TOML configuration file")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.flags.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dlogctl v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newRecordCommand(a))
	root.AddCommand(newInspectCommand(a))
	root.AddCommand(newExportCommand(a))

	return root
}

// setup loads the configuration and starts logging and tracing. Without a
// configuration file logs go to stderr so they do not mix with output.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if a.flags.configFile == "" {
		cfg.Logging.OutputPaths = []string{"stderr"}
		cfg.Logging.Encoding = "console"
	}
	if a.flags.configFile == "" || cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.trace {
		cfg.Tracing.Enabled = true
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	shutdown, err := observability.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.cfg = cfg
	a.shutdown = shutdown
	a.log = logger.With(zap.String("component", "dlogctl"))
	return nil
}

func (a *app) teardown() error {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}
