package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// Options tunes one hybrid search call. Zero values fall back to the
// index defaults.
type Options struct {
	SourceType     string
	MatchThreshold float64
	MatchCount     int
	SemanticWeight float64
}

// Config holds the index defaults.
type Config struct {
	ChunkSizeWords int
	OverlapWords   int
	MatchThreshold float64
	MatchCount     int
	SemanticWeight float64
}

func (c *Config) defaults() {
	if c.ChunkSizeWords <= 0 {
		c.ChunkSizeWords = DefaultChunkSizeWords
	}
	if c.OverlapWords <= 0 {
		c.OverlapWords = DefaultOverlapWords
	}
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = 0.3
	}
	if c.MatchCount <= 0 {
		c.MatchCount = 20
	}
	if c.SemanticWeight <= 0 || c.SemanticWeight > 1 {
		c.SemanticWeight = 0.7
	}
}

// Index stores chunked text with keyword and vector representations and
// serves hybrid queries over them.
type Index struct {
	chunks   catalog.ChunkStore
	embedder catalog.Embedder
	cfg      Config
	logger   *zap.Logger
}

// NewIndex constructs an Index.
func NewIndex(chunks catalog.ChunkStore, embedder catalog.Embedder, cfg Config, logger *zap.Logger) *Index {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{chunks: chunks, embedder: embedder, cfg: cfg, logger: logger}
}

// Reindex replaces all chunks for (sourceType, sourceID) with chunks of
// the new text. Delete-then-reinsert: partial chunk updates would leak
// stale text into results.
func (i *Index) Reindex(ctx context.Context, sourceType, sourceID, text string) error {
	pieces := ChunkText(text, i.cfg.ChunkSizeWords, i.cfg.OverlapWords)
	chunks := make([]catalog.Chunk, 0, len(pieces))
	for idx, piece := range pieces {
		vec, err := i.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", idx, err)
		}
		chunks = append(chunks, catalog.Chunk{
			SourceType: sourceType,
			SourceID:   sourceID,
			Index:      idx,
			Text:       piece,
			Keywords:   ExtractKeywords(piece),
			Vector:     vec,
		})
	}
	if err := catalog.WithRetry(ctx, func(ctx context.Context) error {
		return i.chunks.ReplaceChunks(ctx, sourceType, sourceID, chunks)
	}); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}
	i.logger.Debug("reindexed source",
		zap.String("source_type", sourceType),
		zap.String("source_id", sourceID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// HybridSearch combines semantic similarity and keyword overlap:
// combined = w*semantic + (1-w)*keyword. Results below the threshold
// are discarded; the rest are sorted descending and capped.
func (i *Index) HybridSearch(ctx context.Context, query string, opts Options) ([]catalog.SearchResult, error) {
	threshold := opts.MatchThreshold
	if threshold <= 0 {
		threshold = i.cfg.MatchThreshold
	}
	count := opts.MatchCount
	if count <= 0 {
		count = i.cfg.MatchCount
	}
	weight := opts.SemanticWeight
	if weight <= 0 || weight > 1 {
		weight = i.cfg.SemanticWeight
	}

	queryVec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryKeywords := ExtractKeywords(query)

	all, err := i.chunks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	var results []catalog.SearchResult
	for _, c := range all {
		if opts.SourceType != "" && c.SourceType != opts.SourceType {
			continue
		}
		semantic := CosineSimilarity(queryVec, c.Vector)
		keyword := keywordOverlap(queryKeywords, c.Keywords)
		combined := weight*semantic + (1-weight)*keyword
		if combined < threshold {
			continue
		}
		results = append(results, catalog.SearchResult{
			SourceType:    c.SourceType,
			SourceID:      c.SourceID,
			ChunkIndex:    c.Index,
			Text:          c.Text,
			SemanticScore: semantic,
			KeywordScore:  keyword,
			Combined:      combined,
		})
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Combined != results[b].Combined {
			return results[a].Combined > results[b].Combined
		}
		if results[a].SourceID != results[b].SourceID {
			return results[a].SourceID < results[b].SourceID
		}
		return results[a].ChunkIndex < results[b].ChunkIndex
	})
	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
