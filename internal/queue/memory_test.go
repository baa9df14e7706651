package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

func TestEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewMemory(2)
	task := catalog.Task{Kind: catalog.TaskIndex, SourceType: "announcement", SourceID: "ann-1", Text: "청년창업 지원"}
	require.NoError(t, q.Enqueue(context.Background(), task))
	assert.Equal(t, 1, q.Len())

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task, got)
	assert.Equal(t, 0, q.Len())
}

func TestEnqueueFullQueue(t *testing.T) {
	t.Parallel()

	q := NewMemory(1)
	require.NoError(t, q.Enqueue(context.Background(), catalog.Task{Kind: catalog.TaskIndex}))
	err := q.Enqueue(context.Background(), catalog.Task{Kind: catalog.TaskIndex})
	assert.ErrorIs(t, err, ErrFull)
}

func TestDequeueHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewMemory(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
