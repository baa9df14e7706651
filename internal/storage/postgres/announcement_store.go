package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

const announcementColumns = `
	id, source_id, external_id, name, organization, category, region,
	amount_min, amount_max, start_date, end_date, deadline, is_permanent,
	summary, detail_url, normalized_name, normalized_org,
	COALESCE(group_id, ''), is_canonical, status, view_count, bookmark_count,
	created_at, updated_at, deleted_at`

// AnnouncementStore implements catalog.AnnouncementStore over Postgres.
type AnnouncementStore struct {
	pool  Querier
	idGen catalog.IDGenerator
	clock catalog.Clock
}

// NewAnnouncementStore constructs an AnnouncementStore on an existing pool.
func NewAnnouncementStore(pool Querier, idGen catalog.IDGenerator, clock catalog.Clock) (*AnnouncementStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &AnnouncementStore{pool: pool, idGen: idGen, clock: clock}, nil
}

func (s *AnnouncementStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

// Upsert inserts or updates by (source_id, external_id). Grouping state
// and engagement counters survive updates; xmax = 0 distinguishes a
// fresh insert from a conflict update.
func (s *AnnouncementStore) Upsert(ctx context.Context, a catalog.Announcement) (string, bool, error) {
	if a.ID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			return "", false, fmt.Errorf("generate id: %w", err)
		}
		a.ID = id
	}
	ts := s.now()
	query := `
INSERT INTO announcements (
	id, source_id, external_id, name, organization, category, region,
	amount_min, amount_max, start_date, end_date, deadline, is_permanent,
	summary, detail_url, normalized_name, normalized_org, status,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)
ON CONFLICT (source_id, external_id) DO UPDATE SET
	name = EXCLUDED.name,
	organization = EXCLUDED.organization,
	category = EXCLUDED.category,
	region = EXCLUDED.region,
	amount_min = EXCLUDED.amount_min,
	amount_max = EXCLUDED.amount_max,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	deadline = EXCLUDED.deadline,
	is_permanent = EXCLUDED.is_permanent,
	summary = EXCLUDED.summary,
	detail_url = EXCLUDED.detail_url,
	normalized_name = EXCLUDED.normalized_name,
	normalized_org = EXCLUDED.normalized_org,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0)`
	status := a.Status
	if status == "" {
		status = catalog.AnnouncementActive
	}
	var (
		id      string
		created bool
	)
	err := s.pool.QueryRow(ctx, query,
		a.ID, a.SourceID, a.ExternalID, a.Name, a.Organization, a.Category, a.Region,
		a.AmountMin, a.AmountMax, a.StartDate, a.EndDate, a.Deadline, a.IsPermanent,
		a.Summary, a.DetailURL, a.NormalizedName, a.NormalizedOrg, status,
		ts, ts,
	).Scan(&id, &created)
	if err != nil {
		return "", false, fmt.Errorf("upsert announcement: %w", err)
	}
	return id, created, nil
}

// Get loads one announcement; soft-deleted rows stay hidden.
func (s *AnnouncementStore) Get(ctx context.Context, id string) (catalog.Announcement, error) {
	query := `SELECT` + announcementColumns + `
FROM announcements WHERE id = $1 AND deleted_at IS NULL`
	row := s.pool.QueryRow(ctx, query, id)
	a, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Announcement{}, catalog.ErrNotFound
		}
		return catalog.Announcement{}, fmt.Errorf("select announcement: %w", err)
	}
	return a, nil
}

// ListUngrouped returns live announcements without a group whose ID
// sorts after afterID, in ID order. UUIDv7 IDs make that oldest first.
func (s *AnnouncementStore) ListUngrouped(ctx context.Context, afterID string, limit int) ([]catalog.Announcement, error) {
	query := `SELECT` + announcementColumns + `
FROM announcements
WHERE deleted_at IS NULL AND (group_id IS NULL OR group_id = '') AND id > $1
ORDER BY id ASC
LIMIT $2`
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ungrouped: %w", err)
	}
	return collectAnnouncements(rows)
}

// FindByFingerprint returns live announcements matching the normalized pair.
func (s *AnnouncementStore) FindByFingerprint(ctx context.Context, normalizedName, normalizedOrg string) ([]catalog.Announcement, error) {
	query := `SELECT` + announcementColumns + `
FROM announcements
WHERE deleted_at IS NULL AND normalized_name = $1 AND normalized_org = $2
ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, query, normalizedName, normalizedOrg)
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return collectAnnouncements(rows)
}

// ListByGroup returns a group's live members.
func (s *AnnouncementStore) ListByGroup(ctx context.Context, groupID string) ([]catalog.Announcement, error) {
	query := `SELECT` + announcementColumns + `
FROM announcements
WHERE deleted_at IS NULL AND group_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list by group: %w", err)
	}
	return collectAnnouncements(rows)
}

// SetGroup assigns (or clears, with an empty id) group membership.
func (s *AnnouncementStore) SetGroup(ctx context.Context, announcementID, groupID string) error {
	query := `UPDATE announcements SET group_id = NULLIF($2, ''), updated_at = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, announcementID, groupID, s.now())
	if err != nil {
		return fmt.Errorf("set group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetCanonical flags the representative member of a group.
func (s *AnnouncementStore) SetCanonical(ctx context.Context, announcementID string, canonical bool) error {
	query := `UPDATE announcements SET is_canonical = $2, updated_at = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, announcementID, canonical, s.now())
	if err != nil {
		return fmt.Errorf("set canonical: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanAnnouncement(row pgx.Row) (catalog.Announcement, error) {
	var a catalog.Announcement
	err := row.Scan(
		&a.ID, &a.SourceID, &a.ExternalID, &a.Name, &a.Organization, &a.Category, &a.Region,
		&a.AmountMin, &a.AmountMax, &a.StartDate, &a.EndDate, &a.Deadline, &a.IsPermanent,
		&a.Summary, &a.DetailURL, &a.NormalizedName, &a.NormalizedOrg,
		&a.GroupID, &a.IsCanonical, &a.Status, &a.ViewCount, &a.BookmarkCount,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	return a, err
}

func collectAnnouncements(rows pgx.Rows) ([]catalog.Announcement, error) {
	defer rows.Close()
	var out []catalog.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return out, nil
}
