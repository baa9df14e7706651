package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// ChunkStore implements catalog.ChunkStore over process memory.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string][]catalog.Chunk // keyed by sourceType + "\x00" + sourceID
}

// NewChunkStore constructs a ChunkStore.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string][]catalog.Chunk)}
}

func chunkKey(sourceType, sourceID string) string {
	return sourceType + "\x00" + sourceID
}

// ReplaceChunks deletes all chunks for the source and inserts the new
// set. Partial updates are not supported.
func (s *ChunkStore) ReplaceChunks(_ context.Context, sourceType, sourceID string, chunks []catalog.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chunkKey(sourceType, sourceID)
	if len(chunks) == 0 {
		delete(s.chunks, key)
		return nil
	}
	copied := make([]catalog.Chunk, len(chunks))
	copy(copied, chunks)
	sort.Slice(copied, func(i, j int) bool { return copied[i].Index < copied[j].Index })
	s.chunks[key] = copied
	return nil
}

// ListAll returns every stored chunk.
func (s *ChunkStore) ListAll(_ context.Context) ([]catalog.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Chunk
	keys := make([]string, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, s.chunks[k]...)
	}
	return out, nil
}
