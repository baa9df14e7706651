// Package worker runs the async task loop for search indexing and
// attachment reanalysis.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/metrics"
)

// Indexer rebuilds the search chunks for one source text.
type Indexer interface {
	Reindex(ctx context.Context, sourceType, sourceID, text string) error
}

// Reanalyzer re-parses one stored attachment.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, attachmentID string, force bool) error
}

// Worker consumes queue tasks and dispatches them by kind.
type Worker struct {
	queue      catalog.TaskQueue
	indexer    Indexer
	reanalyzer Reanalyzer
	logger     *zap.Logger
}

// New constructs a Worker.
func New(queue catalog.TaskQueue, indexer Indexer, reanalyzer Reanalyzer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		indexer:    indexer,
		reanalyzer: reanalyzer,
		logger:     logger,
	}
}

// Run blocks, consuming tasks until the context finishes. A failed task
// is logged and dropped; the loop never stops on task errors.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("task dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task catalog.Task) {
	switch task.Kind {
	case catalog.TaskIndex:
		if w.indexer == nil {
			w.logger.Error("no indexer configured", zap.String("source_id", task.SourceID))
			return
		}
		if err := w.indexer.Reindex(ctx, task.SourceType, task.SourceID, task.Text); err != nil {
			metrics.ObserveTask(string(task.Kind), "error")
			w.logger.Error("reindex failed",
				zap.String("source_type", task.SourceType),
				zap.String("source_id", task.SourceID),
				zap.Error(err))
			return
		}
		metrics.ObserveTask(string(task.Kind), "ok")
		w.logger.Debug("source indexed",
			zap.String("source_type", task.SourceType),
			zap.String("source_id", task.SourceID))
	case catalog.TaskReanalyze:
		if w.reanalyzer == nil {
			w.logger.Error("no reanalyzer configured", zap.String("attachment_id", task.AttachmentID))
			return
		}
		if err := w.reanalyzer.Reanalyze(ctx, task.AttachmentID, task.Force); err != nil {
			metrics.ObserveTask(string(task.Kind), "error")
			w.logger.Error("reanalysis failed",
				zap.String("attachment_id", task.AttachmentID),
				zap.Error(err))
			return
		}
		metrics.ObserveTask(string(task.Kind), "ok")
		w.logger.Info("attachment reanalyzed", zap.String("attachment_id", task.AttachmentID))
	default:
		w.logger.Warn("unknown task kind dropped", zap.String("kind", string(task.Kind)))
	}
}
