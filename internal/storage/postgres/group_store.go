package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// GroupStore implements catalog.GroupStore over Postgres.
type GroupStore struct {
	pool  Querier
	idGen catalog.IDGenerator
	clock catalog.Clock
}

// NewGroupStore constructs a GroupStore on an existing pool.
func NewGroupStore(pool Querier, idGen catalog.IDGenerator, clock catalog.Clock) (*GroupStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &GroupStore{pool: pool, idGen: idGen, clock: clock}, nil
}

func (s *GroupStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

// CreateGroup inserts a dedup cluster row and returns its id.
func (s *GroupStore) CreateGroup(ctx context.Context, g catalog.ProjectGroup) (string, error) {
	if g.ID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		g.ID = id
	}
	if g.ReviewStatus == "" {
		g.ReviewStatus = catalog.GroupAutoGrouped
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	query := `INSERT INTO project_groups (id, review_status, created_at) VALUES ($1,$2,$3)`
	if _, err := s.pool.Exec(ctx, query, g.ID, g.ReviewStatus, g.CreatedAt); err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}
	return g.ID, nil
}

// GetGroup loads one cluster row.
func (s *GroupStore) GetGroup(ctx context.Context, id string) (catalog.ProjectGroup, error) {
	query := `SELECT id, review_status, created_at FROM project_groups WHERE id = $1`
	var g catalog.ProjectGroup
	err := s.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.ReviewStatus, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ProjectGroup{}, catalog.ErrNotFound
		}
		return catalog.ProjectGroup{}, fmt.Errorf("select group: %w", err)
	}
	return g, nil
}

// SetReviewStatus records how a cluster was (or will be) reviewed.
func (s *GroupStore) SetReviewStatus(ctx context.Context, id string, status catalog.GroupReviewStatus) error {
	query := `UPDATE project_groups SET review_status = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
