package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractKeywords_Empty(t *testing.T) {
	t.Parallel()
	require.Empty(t, ExtractKeywords(""))
	require.Empty(t, ExtractKeywords("   "))
}

func TestExtractKeywords_RemovesStopWordsAnyCase(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("The Startup and THE founder")
	require.NotContains(t, got, "the")
	require.NotContains(t, got, "and")
	require.Contains(t, got, "startup")
	require.Contains(t, got, "founder")
}

func TestExtractKeywords_KoreanStopWords(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("청년창업 지원사업 및 소상공인 등")
	require.NotContains(t, got, "및")
	require.NotContains(t, got, "등")
	require.Contains(t, got, "청년창업")
	require.Contains(t, got, "지원사업")
}

func TestExtractKeywords_Distinct(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("수출 수출 수출 바우처")
	count := 0
	for _, k := range got {
		if k == "수출" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestExtractKeywords_TokenizesOnPunctuation(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("[모집공고] 스마트공장·자동화 (2026)")
	require.Contains(t, got, "모집공고")
	require.Contains(t, got, "스마트공장")
	require.Contains(t, got, "자동화")
	require.Contains(t, got, "2026")
}

func TestKeywordOverlap(t *testing.T) {
	t.Parallel()

	query := []string{"청년", "창업", "지원"}
	require.Equal(t, 1.0, keywordOverlap(query, []string{"청년", "창업", "지원", "기타"}))
	require.InDelta(t, 2.0/3.0, keywordOverlap(query, []string{"청년", "창업"}), 1e-9)
	require.Zero(t, keywordOverlap(query, []string{"무관"}))
	require.Zero(t, keywordOverlap(nil, []string{"청년"}))
}
