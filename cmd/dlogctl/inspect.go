package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/reader"
)

func newInspectCommand(a *app) *cobra.Command {
	var salvage, columns bool

	cmd := &cobra.Command{
		Use:   "inspect <run-dir>",
		Short: "Show the manifest and groups of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reader.Open(args[0], reader.WithSalvage(salvage), reader.WithLogger(a.log))
			if err != nil {
				return err
			}
			return a.inspect(r, columns)
		},
	}
	cmd.Flags().BoolVar(&salvage, "salvage", false, "Keep the intact frames of damaged artifacts")
	cmd.Flags().BoolVar(&columns, "columns", false, "List the columns of every group")
	return cmd
}

func (a *app) inspect(r *reader.Reader, columns bool) error {
	m, err := r.Manifest()
	switch {
	case err == nil:
		fmt.Printf("Run: %s (%s)\n", r.Dir(), m.ID)
		fmt.Printf("Created: %s\n", m.Created.Format(time.RFC3339))
		fmt.Printf("Closed: %t\n", m.Closed)
		fmt.Printf("Host: %s %s/%s, %d CPUs\n", m.Host.Hostname, m.Host.OS, m.Host.Arch, m.Host.CPUs)
		fmt.Printf("Codec: %s (%s)\n", m.Codec, m.Level)
		fmt.Printf("Allowed buffer size: %s\n", formatBytes(m.AllowedBufferSize))
	case dlerrors.IsType(err, dlerrors.ErrorTypeNotFound):
		fmt.Printf("Run: %s (no manifest)\n", r.Dir())
	default:
		a.log.Warn("manifest unreadable", zap.Error(err))
		fmt.Printf("Run: %s (manifest unreadable)\n", r.Dir())
	}
	fmt.Println()

	var failed int
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOLUMNS\tSAMPLES\tFRAMES\tCODEC\tSTATUS")
	for _, group := range r.Groups() {
		art, err := r.Artifact(group)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%v\n", group, err)
			continue
		}
		status := "ok"
		if art.Damage != nil {
			status = "salvaged"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			group, len(art.Header.Columns), art.Rows(), len(art.Frames), art.Header.Codec, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if columns {
		for _, group := range r.Groups() {
			ds, err := r.DataSet(group)
			if err != nil {
				continue
			}
			fmt.Printf("\n%s:\n", group)
			for _, spec := range ds.Specs() {
				fmt.Printf("  %-24s %s\n", spec.Name, spec.Type)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d groups unreadable", failed, len(r.Groups()))
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
