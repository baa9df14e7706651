package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

func TestGroupStoreCreateGroup(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewGroupStore(mock, stubIDGen{id: "grp-1"}, fixedClock{at: now})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO project_groups").
		WithArgs("grp-1", catalog.GroupAutoGrouped, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.CreateGroup(context.Background(), catalog.ProjectGroup{})
	require.NoError(t, err)
	require.Equal(t, "grp-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupStoreSetReviewStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewGroupStore(mock, stubIDGen{id: "x"}, fixedClock{})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE project_groups").
		WithArgs("grp-1", catalog.GroupConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SetReviewStatus(context.Background(), "grp-1", catalog.GroupConfirmed))

	mock.ExpectExec("UPDATE project_groups").
		WithArgs("missing", catalog.GroupConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.SetReviewStatus(context.Background(), "missing", catalog.GroupConfirmed)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
