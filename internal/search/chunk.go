// Package search implements the hybrid semantic+keyword retrieval layer
// over analyzed announcement text.
package search

import "strings"

// Default chunking geometry, chosen empirically for announcement bodies.
const (
	DefaultChunkSizeWords = 300
	DefaultOverlapWords   = 30
)

// ChunkText splits text into word-count windows of chunkSizeWords with
// overlapWords shared between consecutive chunks. Empty input yields an
// empty sequence; input shorter than one window yields exactly one
// chunk equal to the input.
func ChunkText(text string, chunkSizeWords, overlapWords int) []string {
	if chunkSizeWords <= 0 {
		chunkSizeWords = DefaultChunkSizeWords
	}
	if overlapWords < 0 || overlapWords >= chunkSizeWords {
		overlapWords = 0
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkSizeWords {
		return []string{strings.Join(words, " ")}
	}

	step := chunkSizeWords - overlapWords
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSizeWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
