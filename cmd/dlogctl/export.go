package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/export"
	"github.com/ajitpratap0/datalogger/pkg/reader"
)

func newExportCommand(a *app) *cobra.Command {
	var (
		format   string
		out      string
		parallel int
		salvage  bool
		codec    string
		level    string
	)

	cmd := &cobra.Command{
		Use:   "export <run-dir>",
		Short: "Export every group of a run",
		Long: `Export every group of a run to <out>/<group>.<format>. A group that
cannot be read is reported and the other groups are still exported.

With --compress every file is written through a compressed stream and named
<group>.<format><suffix>, for example pose.csv.zst.

Examples:
  dlogctl export /tmp/runs/walk_2024-03-09_14-05-06 --format parquet --out /tmp/walk
  dlogctl export /tmp/runs/walk_2024-03-09_14-05-06 --compress zstd --compress-level best`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			alg, err := compression.ParseAlgorithm(codec)
			if err != nil {
				return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid --compress")
			}
			lvl, err := compression.ParseLevel(level)
			if err != nil {
				return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "invalid --compress-level")
			}
			r, err := reader.Open(args[0],
				reader.WithSalvage(salvage),
				reader.WithExportCompression(&compression.Config{Algorithm: alg, Level: lvl}),
				reader.WithParallelism(parallel),
				reader.WithLogger(a.log))
			if err != nil {
				return err
			}
			if out == "" {
				out = r.Dir()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a.log.Info("exporting", zap.String("run", r.Dir()), zap.String("format", format), zap.String("compress", string(alg)), zap.String("out", out))
			if err := r.Export(ctx, f, out); err != nil {
				return err
			}
			fmt.Printf("Exported %d groups to %s\n", len(r.Groups()), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.CSV), "Output format (csv, jsonl, parquet, arrow, avro)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: the run directory)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Groups exported at a time (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&salvage, "salvage", false, "Export the intact frames of damaged artifacts")
	cmd.Flags().StringVar(&codec, "compress", string(compression.None), "Stream codec for exported files (none, gzip, snappy, lz4, zstd, s2, deflate)")
	cmd.Flags().StringVar(&level, "compress-level", "default", "Stream compression level (fastest, default, better, best)")
	return cmd
}
