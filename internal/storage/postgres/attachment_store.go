package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

const attachmentColumns = `
	id, announcement_id, file_name, type, mime_type, size_bytes,
	source_url, storage_path, content_hash, should_parse,
	parse_state, parsed_content, parse_error, created_at`

// AttachmentStore implements catalog.AttachmentStore over Postgres.
type AttachmentStore struct {
	pool  Querier
	idGen catalog.IDGenerator
	clock catalog.Clock
}

// NewAttachmentStore constructs an AttachmentStore on an existing pool.
func NewAttachmentStore(pool Querier, idGen catalog.IDGenerator, clock catalog.Clock) (*AttachmentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &AttachmentStore{pool: pool, idGen: idGen, clock: clock}, nil
}

func (s *AttachmentStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

// Save inserts an attachment, or rewrites its metadata when the id
// already exists (a second Save after the bytes landed in blob storage).
func (s *AttachmentStore) Save(ctx context.Context, att catalog.Attachment) (string, error) {
	if att.ID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		att.ID = id
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = s.now()
	}
	if att.ParseState == "" {
		att.ParseState = catalog.ParseStateUploaded
	}
	query := `
INSERT INTO attachments (
	id, announcement_id, file_name, type, mime_type, size_bytes,
	source_url, storage_path, content_hash, should_parse,
	parse_state, parsed_content, parse_error, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
	file_name = EXCLUDED.file_name,
	type = EXCLUDED.type,
	mime_type = EXCLUDED.mime_type,
	size_bytes = EXCLUDED.size_bytes,
	source_url = EXCLUDED.source_url,
	storage_path = EXCLUDED.storage_path,
	content_hash = EXCLUDED.content_hash,
	should_parse = EXCLUDED.should_parse,
	parse_state = EXCLUDED.parse_state,
	parsed_content = EXCLUDED.parsed_content,
	parse_error = EXCLUDED.parse_error
RETURNING id`
	var id string
	err := s.pool.QueryRow(ctx, query,
		att.ID, att.AnnouncementID, att.FileName, att.Type, att.MimeType, att.SizeBytes,
		att.SourceURL, att.StoragePath, att.ContentHash, att.ShouldParse,
		att.ParseState, att.ParsedContent, att.ParseError, att.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save attachment: %w", err)
	}
	return id, nil
}

// Get loads one attachment row.
func (s *AttachmentStore) Get(ctx context.Context, id string) (catalog.Attachment, error) {
	query := `SELECT` + attachmentColumns + `
FROM attachments WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	att, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Attachment{}, catalog.ErrNotFound
		}
		return catalog.Attachment{}, fmt.Errorf("select attachment: %w", err)
	}
	return att, nil
}

// ListByAnnouncement returns the announcement's attachments, oldest first.
func (s *AttachmentStore) ListByAnnouncement(ctx context.Context, announcementID string) ([]catalog.Attachment, error) {
	query := `SELECT` + attachmentColumns + `
FROM attachments WHERE announcement_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, query, announcementID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()
	var out []catalog.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return out, nil
}

// UpdateParseState advances one attachment through the parse lifecycle.
func (s *AttachmentStore) UpdateParseState(ctx context.Context, id string, state catalog.ParseState, content, parseErr string) error {
	query := `UPDATE attachments SET parse_state = $2, parsed_content = $3, parse_error = $4 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, state, content, parseErr)
	if err != nil {
		return fmt.Errorf("update parse state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CleanupDuplicates keeps the newest attachment per (announcement,
// source URL) pair and deletes the rest, returning the removal count.
func (s *AttachmentStore) CleanupDuplicates(ctx context.Context, announcementID string) (int, error) {
	query := `
DELETE FROM attachments
WHERE announcement_id = $1
AND id NOT IN (
	SELECT DISTINCT ON (source_url) id
	FROM attachments
	WHERE announcement_id = $1
	ORDER BY source_url, created_at DESC, id DESC
)`
	tag, err := s.pool.Exec(ctx, query, announcementID)
	if err != nil {
		return 0, fmt.Errorf("cleanup duplicates: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanAttachment(row pgx.Row) (catalog.Attachment, error) {
	var att catalog.Attachment
	err := row.Scan(
		&att.ID, &att.AnnouncementID, &att.FileName, &att.Type, &att.MimeType, &att.SizeBytes,
		&att.SourceURL, &att.StoragePath, &att.ContentHash, &att.ShouldParse,
		&att.ParseState, &att.ParsedContent, &att.ParseError, &att.CreatedAt,
	)
	return att, err
}
