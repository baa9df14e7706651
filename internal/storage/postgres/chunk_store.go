package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// ChunkStore implements catalog.ChunkStore over Postgres.
type ChunkStore struct {
	pool Querier
}

// NewChunkStore constructs a ChunkStore on an existing pool.
func NewChunkStore(pool Querier) (*ChunkStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ChunkStore{pool: pool}, nil
}

// ReplaceChunks swaps all chunks for (sourceType, sourceID) inside one
// transaction so a reindex never exposes a partially written set.
func (s *ChunkStore) ReplaceChunks(ctx context.Context, sourceType, sourceID string, chunks []catalog.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace chunks: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM search_chunks WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	insert := `
INSERT INTO search_chunks (source_type, source_id, chunk_index, text, keywords, vector)
VALUES ($1,$2,$3,$4,$5,$6)`
	for _, chunk := range chunks {
		vectorJSON, err := json.Marshal(chunk.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector: %w", err)
		}
		if _, err := tx.Exec(ctx, insert,
			sourceType, sourceID, chunk.Index, chunk.Text, chunk.Keywords, vectorJSON,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace chunks: %w", err)
	}
	return nil
}

// ListAll returns every indexed chunk in deterministic order.
func (s *ChunkStore) ListAll(ctx context.Context) ([]catalog.Chunk, error) {
	query := `
SELECT source_type, source_id, chunk_index, text, keywords, vector
FROM search_chunks
ORDER BY source_type, source_id, chunk_index`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []catalog.Chunk
	for rows.Next() {
		var (
			chunk      catalog.Chunk
			vectorJSON []byte
		)
		if err := rows.Scan(
			&chunk.SourceType, &chunk.SourceID, &chunk.Index,
			&chunk.Text, &chunk.Keywords, &vectorJSON,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(vectorJSON) > 0 {
			if err := json.Unmarshal(vectorJSON, &chunk.Vector); err != nil {
				return nil, fmt.Errorf("unmarshal vector: %w", err)
			}
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
