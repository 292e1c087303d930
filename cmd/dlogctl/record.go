package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/config"
	"github.com/ajitpratap0/datalogger/pkg/session"
)

type recordFlags struct {
	dir        string
	name       string
	samples    int
	budget     int64
	codec      string
	sync       bool
	imuEvery   int
	saveConfig string
	profile    profiler
}

func newRecordCommand(a *app) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a simulated robot into a new run",
		Long: `Record a simulated legged robot into a new run directory. The "control"
group is appended every step and the "imu" group every --imu-every steps.

Example:
  dlogctl record --dir /tmp/runs --name walk --samples 20000 --budget 65536`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.record(cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", "", "Parent directory of the run (default from configuration)")
	cmd.Flags().StringVar(&f.name, "name", "", "Base name of the run directory (default from configuration)")
	cmd.Flags().IntVar(&f.samples, "samples", 10000, "Number of control steps to record")
	cmd.Flags().Int64Var(&f.budget, "budget", 0, "Per-group buffer budget in bytes, 0 keeps everything until close")
	cmd.Flags().StringVar(&f.codec, "codec", "", "Frame compression (none, gzip, snappy, lz4, zstd, s2, deflate)")
	cmd.Flags().BoolVar(&f.sync, "sync", false, "Write frames on the appending goroutine instead of a background worker")
	cmd.Flags().IntVar(&f.imuEvery, "imu-every", 2, "Control steps per imu sample")
	cmd.Flags().StringVar(&f.saveConfig, "save-config", "", "Write the effective configuration to this file")
	cmd.Flags().StringVar(&f.profile.cpuFile, "cpuprofile", "", "Write a CPU profile of the recording to this file")
	cmd.Flags().StringVar(&f.profile.memFile, "memprofile", "", "Write a heap profile after the recording to this file")

	return cmd
}

func (a *app) record(cmd *cobra.Command, f *recordFlags) error {
	cfg := a.cfg
	if cmd.Flags().Changed("dir") {
		cfg.Directory = f.dir
	}
	if cmd.Flags().Changed("name") {
		cfg.BaseName = f.name
	}
	if cmd.Flags().Changed("budget") {
		cfg.AllowedBufferSize = f.budget
	}
	if cmd.Flags().Changed("codec") {
		cfg.Compression.Algorithm = f.codec
	}
	if cmd.Flags().Changed("sync") {
		cfg.Flush.Async = !f.sync
	}
	if f.samples <= 0 || f.imuEvery <= 0 {
		return fmt.Errorf("--samples and --imu-every must be positive")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := session.FromConfig(cfg)
	if err != nil {
		return err
	}
	s := session.New(append(opts, session.WithLogger(a.log))...)
	defer s.Close()

	run, err := s.CreateRun(cfg.BaseName, cfg.Directory)
	if err != nil {
		return err
	}

	bot := newRobot(0.0025)
	control, err := s.RegisterGroup("control", bot.controlFields()...)
	if err != nil {
		return err
	}
	imu, err := s.RegisterGroup("imu", bot.imuFields()...)
	if err != nil {
		return err
	}

	a.log.Info("recording",
		zap.String("run", run.Directory),
		zap.Int("samples", f.samples),
		zap.Int64("allowed_buffer_size", cfg.AllowedBufferSize))

	if err := f.profile.start(); err != nil {
		return err
	}
	defer f.profile.abort()
	start := time.Now()
	for i := 0; i < f.samples; i++ {
		bot.step()
		if err := s.Append(control, bot.control()...); err != nil {
			return err
		}
		if i%f.imuEvery == 0 {
			if err := s.Append(imu, bot.imu()...); err != nil {
				return err
			}
		}
	}
	if err := s.Close(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	if err := f.profile.stop(); err != nil {
		return err
	}

	if f.saveConfig != "" {
		if err := config.Save(f.saveConfig, cfg); err != nil {
			return err
		}
	}

	count, mean, peak := s.AppendLatency().Summary()
	fmt.Printf("Run: %s\n", run.Directory)
	fmt.Printf("ID: %s\n", run.ID)
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Appends: %d (mean %v, p99 %v, max %v)\n",
		count, mean, s.AppendLatency().Percentile(99), peak)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOLUMNS\tSAMPLES\tFRAMES\tBYTES")
	for _, st := range s.Stats() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", st.Group, st.Columns, st.Persisted, st.Frames, formatBytes(st.ArtifactBytes))
	}
	return tw.Flush()
}
