package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/metrics"
	"github.com/ajitpratap0/datalogger/pkg/observability"
	"github.com/ajitpratap0/datalogger/pkg/storage"
)

// worker writes queued buffers in FIFO order, so frames of a group land in
// the order their samples were appended.
func (s *Session) worker() {
	defer s.wg.Done()

	for job := range s.jobs {
		metrics.FlushQueueDepth.Set(float64(len(s.jobs)))
		if job.done != nil {
			job.done <- s.failure()
			continue
		}
		_ = s.persist(job)
	}
}

// persist writes one buffer as a frame and recycles it. A failure becomes
// the session's sticky error; the artifact keeps every earlier frame.
func (s *Session) persist(job flushJob) error {
	gs := job.group
	rows := job.batch.Rows()
	timer := metrics.NewTimer("frame.write")

	var info storage.FrameInfo
	err := observability.Trace(context.Background(), "datalogger.frame.write", func(context.Context) error {
		var err error
		info, err = gs.writer.WriteBatch(job.batch)
		return err
	},
		attribute.String("group", gs.schema.Name),
		attribute.String("trigger", job.trigger),
		attribute.Int("rows", rows),
	)
	gs.batches.Put(job.batch)

	if err != nil {
		gs.metrics.ObserveWriteError()
		s.fail(err)
		s.logger.Error("frame write failed",
			zap.String("group", gs.schema.Name),
			zap.String("trigger", job.trigger),
			zap.Int("rows", rows),
			zap.Error(err))
		return err
	}

	stats := gs.writer.Stats()
	gs.persisted.Store(stats.Rows)
	gs.frames.Store(int64(stats.Frames))
	gs.bytes.Store(stats.Bytes)

	d := timer.Stop()
	gs.metrics.ObserveFlush(job.trigger, info.Rows, info.PayloadLen, d)
	s.logger.Debug("frame written",
		zap.String("group", gs.schema.Name),
		zap.String("trigger", job.trigger),
		zap.Int("rows", info.Rows),
		zap.Int("raw_bytes", info.RawSize),
		zap.Int("payload_bytes", info.PayloadLen),
		zap.Duration("took", d))
	return nil
}
