package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/queue"
)

type recordingIndexer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingIndexer) Reindex(_ context.Context, _, sourceID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sourceID)
	return r.err
}

func (r *recordingIndexer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingReanalyzer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReanalyzer) Reanalyze(_ context.Context, attachmentID string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, attachmentID)
	return nil
}

func (r *recordingReanalyzer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestWorker_DispatchesByKind(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(8)
	indexer := &recordingIndexer{}
	reanalyzer := &recordingReanalyzer{}
	w := New(q, indexer, reanalyzer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, q.Enqueue(ctx, catalog.Task{
		Kind: catalog.TaskIndex, SourceType: "announcement", SourceID: "a-1", Text: "청년 창업 지원",
	}))
	require.NoError(t, q.Enqueue(ctx, catalog.Task{
		Kind: catalog.TaskReanalyze, AttachmentID: "f-1",
	}))

	require.Eventually(t, func() bool {
		return indexer.count() == 1 && reanalyzer.count() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_TaskErrorDoesNotStopLoop(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(8)
	indexer := &recordingIndexer{err: errors.New("embedding service down")}
	w := New(q, indexer, &recordingReanalyzer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for _, id := range []string{"a-1", "a-2"} {
		require.NoError(t, q.Enqueue(ctx, catalog.Task{
			Kind: catalog.TaskIndex, SourceType: "announcement", SourceID: id, Text: "본문",
		}))
	}

	require.Eventually(t, func() bool { return indexer.count() == 2 }, time.Second, 5*time.Millisecond)
}
