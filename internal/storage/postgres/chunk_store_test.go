package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

func TestChunkStoreReplaceChunks(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewChunkStore(mock)
	require.NoError(t, err)

	chunks := []catalog.Chunk{
		{SourceType: "announcement", SourceID: "ann-1", Index: 0, Text: "첫 번째 조각", Keywords: []string{"지원", "창업"}, Vector: []float32{0.1, 0.2}},
		{SourceType: "announcement", SourceID: "ann-1", Index: 1, Text: "두 번째 조각", Keywords: []string{"모집"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM search_chunks").
		WithArgs("announcement", "ann-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO search_chunks").
		WithArgs("announcement", "ann-1", 0, "첫 번째 조각", []string{"지원", "창업"}, []byte("[0.1,0.2]")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO search_chunks").
		WithArgs("announcement", "ann-1", 1, "두 번째 조각", []string{"모집"}, []byte("null")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = store.ReplaceChunks(context.Background(), "announcement", "ann-1", chunks)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChunkStoreReplaceChunksRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewChunkStore(mock)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM search_chunks").
		WithArgs("announcement", "ann-1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err = store.ReplaceChunks(context.Background(), "announcement", "ann-1", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChunkStoreListAll(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewChunkStore(mock)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"source_type", "source_id", "chunk_index", "text", "keywords", "vector"}).
		AddRow("announcement", "ann-1", 0, "본문 조각", []string{"지원"}, []byte("[0.5]")).
		AddRow("attachment", "att-1", 0, "첨부 조각", []string{}, []byte(nil))

	mock.ExpectQuery("SELECT (.+) FROM search_chunks").
		WillReturnRows(rows)

	got, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []float32{0.5}, got[0].Vector)
	require.Nil(t, got[1].Vector)
	require.NoError(t, mock.ExpectationsWereMet())
}
