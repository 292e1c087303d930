package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/export"
	"github.com/ajitpratap0/datalogger/pkg/observability"
)

// ExportCSV writes <run>/<group>.csv for every group.
func (r *Reader) ExportCSV() error {
	return r.ExportCSVTo(r.dir)
}

// ExportCSVTo writes <dir>/<group>.csv for every group. The header row holds
// the column names in persisted order and every further row one sample.
func (r *Reader) ExportCSVTo(dir string) error {
	return r.Export(context.Background(), export.CSV, dir)
}

// Export writes every group in format to <dir>/<group>.<format>, several
// groups at a time. The name gains the stream codec's suffix when export
// compression is configured. A group that cannot be read does not stop the
// others, while a fatal failure, such as an unwritable export file, cancels
// the groups not yet started. All failures are joined into the returned
// error.
func (r *Reader) Export(ctx context.Context, format export.Format, dir string) error {
	if _, err := export.ParseFormat(string(format)); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create export directory").
			WithDetail("dir", dir)
	}

	limit := r.parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	errs := make([]error, len(r.groups))
	for i, group := range r.groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = r.exportGroup(ctx, format, dir, group)
			if dlerrors.IsFatal(errs[i]) {
				return errs[i]
			}
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("export incomplete", zap.String("format", string(format)), zap.Error(err))
	}
	return err
}

func (r *Reader) exportGroup(ctx context.Context, format export.Format, dir, group string) error {
	cfg := &export.WriterConfig{Format: format, Group: group, Stream: r.stream}
	path := filepath.Join(dir, cfg.FileName())
	err := observability.Trace(ctx, "datalogger.export", func(ctx context.Context) error {
		a, err := r.Artifact(group)
		if err != nil {
			return err
		}
		cfg.Columns = a.Header.Columns
		err = export.WriteFile(path, cfg, a.Batch)
		if err != nil {
			return err
		}
		observability.RecordExportedRows(ctx, string(format), group, a.Rows())
		r.logger.Debug("group exported",
			zap.String("group", group),
			zap.String("format", string(format)),
			zap.String("path", path),
			zap.Int("rows", a.Rows()))
		return nil
	},
		attribute.String("group", group),
		attribute.String("format", string(format)),
	)
	if err == nil {
		return nil
	}
	kind := dlerrors.TypeOf(err)
	if kind == "" {
		kind = dlerrors.ErrorTypeIO
	}
	return dlerrors.Wrap(err, kind, "export of group \""+group+"\" failed").
		WithDetail("group", group).
		WithDetail("path", path)
}
