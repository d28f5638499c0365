package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/pris-scanner/internal/progress"
)

// LogSink writes each progress event as a debug-level structured log entry.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.Store != "" {
			fields = append(fields, zap.String("store", evt.Store))
		}
		if evt.File != "" {
			fields = append(fields, zap.String("file", evt.File), zap.String("result", string(evt.Result)))
		}
		if evt.Term != "" {
			fields = append(fields, zap.String("term", evt.Term))
		}
		if evt.Stage == progress.StageStoreDone {
			fields = append(fields, zap.Int("images", evt.Images))
		}
		if evt.Bytes > 0 {
			fields = append(fields, zap.Int64("bytes", evt.Bytes))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
