package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress"
)

// LogSink writes each progress event as one structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink on the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs every event in the batch at info level.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("job_id", evt.JobID),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.SourceID != "" {
			fields = append(fields, zap.String("source_id", evt.SourceID))
		}
		if evt.URL != "" {
			fields = append(fields, zap.String("url", evt.URL))
		}
		if evt.Bytes > 0 {
			fields = append(fields, zap.Int64("bytes", evt.Bytes))
		}
		if evt.Items > 0 {
			fields = append(fields, zap.Int64("items", evt.Items))
		}
		if evt.StatusClass != "" {
			fields = append(fields, zap.String("status", string(evt.StatusClass)))
		}
		if evt.Mode != "" {
			fields = append(fields, zap.String("mode", string(evt.Mode)))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("duration", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("pipeline progress", fields...)
	}
	return nil
}

// Close is a no-op; the logger outlives the sink.
func (s *LogSink) Close(context.Context) error { return nil }
