package postgres

import (
	"context"
	"fmt"
)

// Schema is the complete catalog schema. Idempotent so startup can
// apply it unconditionally.
const Schema = `
CREATE TABLE IF NOT EXISTS crawl_jobs (
    id               TEXT PRIMARY KEY,
    source_id        TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    projects_found   INTEGER NOT NULL DEFAULT 0,
    projects_new     INTEGER NOT NULL DEFAULT 0,
    projects_updated INTEGER NOT NULL DEFAULT 0,
    files_processed  INTEGER NOT NULL DEFAULT 0,
    error_text       TEXT NOT NULL DEFAULT '',
    submitted_at     TIMESTAMPTZ NOT NULL,
    started_at       TIMESTAMPTZ,
    finished_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_crawl_jobs_source ON crawl_jobs(source_id, submitted_at DESC);

CREATE TABLE IF NOT EXISTS project_groups (
    id            TEXT PRIMARY KEY,
    review_status TEXT NOT NULL DEFAULT 'auto_grouped',
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS announcements (
    id              TEXT PRIMARY KEY,
    source_id       TEXT NOT NULL,
    external_id     TEXT NOT NULL,
    name            TEXT NOT NULL,
    organization    TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL DEFAULT '',
    region          TEXT NOT NULL DEFAULT '',
    amount_min      BIGINT NOT NULL DEFAULT 0,
    amount_max      BIGINT NOT NULL DEFAULT 0,
    start_date      TIMESTAMPTZ,
    end_date        TIMESTAMPTZ,
    deadline        TIMESTAMPTZ,
    is_permanent    BOOLEAN NOT NULL DEFAULT FALSE,
    summary         TEXT NOT NULL DEFAULT '',
    detail_url      TEXT NOT NULL DEFAULT '',
    normalized_name TEXT NOT NULL DEFAULT '',
    normalized_org  TEXT NOT NULL DEFAULT '',
    group_id        TEXT REFERENCES project_groups(id),
    is_canonical    BOOLEAN NOT NULL DEFAULT FALSE,
    status          TEXT NOT NULL DEFAULT 'active',
    view_count      INTEGER NOT NULL DEFAULT 0,
    bookmark_count  INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    deleted_at      TIMESTAMPTZ,
    UNIQUE (source_id, external_id)
);
CREATE INDEX IF NOT EXISTS idx_announcements_fingerprint ON announcements(normalized_name, normalized_org) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_announcements_group ON announcements(group_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_announcements_ungrouped ON announcements(created_at) WHERE deleted_at IS NULL AND group_id IS NULL;

CREATE TABLE IF NOT EXISTS attachments (
    id              TEXT PRIMARY KEY,
    announcement_id TEXT NOT NULL REFERENCES announcements(id) ON DELETE CASCADE,
    file_name       TEXT NOT NULL,
    type            TEXT NOT NULL DEFAULT 'other',
    mime_type       TEXT NOT NULL DEFAULT '',
    size_bytes      BIGINT NOT NULL DEFAULT 0,
    source_url      TEXT NOT NULL DEFAULT '',
    storage_path    TEXT NOT NULL DEFAULT '',
    content_hash    TEXT NOT NULL DEFAULT '',
    should_parse    BOOLEAN NOT NULL DEFAULT FALSE,
    parse_state     TEXT NOT NULL DEFAULT 'uploaded',
    parsed_content  TEXT NOT NULL DEFAULT '',
    parse_error     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attachments_announcement ON attachments(announcement_id, created_at);

CREATE TABLE IF NOT EXISTS search_chunks (
    source_type TEXT NOT NULL,
    source_id   TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text        TEXT NOT NULL,
    keywords    TEXT[] NOT NULL DEFAULT '{}',
    vector      JSONB,
    PRIMARY KEY (source_type, source_id, chunk_index)
);
`

// ApplySchema creates all tables and indexes.
func ApplySchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
