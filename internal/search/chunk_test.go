package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	t.Parallel()
	require.Empty(t, ChunkText("", 300, 30))
	require.Empty(t, ChunkText("   \n\t  ", 300, 30))
}

func TestChunkText_SingleWord(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"word"}, ChunkText("word", 300, 30))
}

func TestChunkText_ShorterThanWindowIsOneChunk(t *testing.T) {
	t.Parallel()
	text := "지원대상 소상공인 및 중소기업 대표자"
	chunks := ChunkText(text, 300, 30)
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0])
}

func TestChunkText_CountFormula(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n, c, o int
	}{
		{10, 5, 2},
		{12, 5, 2},
		{100, 30, 5},
		{300, 300, 30},
		{301, 300, 30},
		{1000, 300, 30},
	}
	for _, tc := range cases {
		words := make([]string, tc.n)
		for i := range words {
			words[i] = "w" + itoa(i)
		}
		text := strings.Join(words, " ")
		chunks := ChunkText(text, tc.c, tc.o)

		want := 1
		if tc.n > tc.c {
			want = ceilDiv(tc.n-tc.o, tc.c-tc.o)
		}
		require.Len(t, chunks, want, "n=%d c=%d o=%d", tc.n, tc.c, tc.o)

		// First chunk contains the first C words (or all N when N<=C).
		firstLen := tc.c
		if tc.n < tc.c {
			firstLen = tc.n
		}
		require.Equal(t, strings.Join(words[:firstLen], " "), chunks[0])
	}
}

func TestChunkText_OverlapSharedBetweenConsecutiveChunks(t *testing.T) {
	t.Parallel()

	words := make([]string, 20)
	for i := range words {
		words[i] = "w" + itoa(i)
	}
	chunks := ChunkText(strings.Join(words, " "), 8, 3)
	require.GreaterOrEqual(t, len(chunks), 2)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	require.Equal(t, first[len(first)-3:], second[:3])
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return string(out)
}
