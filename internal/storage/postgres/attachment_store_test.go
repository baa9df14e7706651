package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

func TestAttachmentSaveMintsID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewAttachmentStore(mock, stubIDGen{id: "att-1"}, fixedClock{at: now})
	require.NoError(t, err)

	att := catalog.Attachment{
		AnnouncementID: "ann-1",
		FileName:       "사업공고문.pdf",
		Type:           catalog.AttachmentPDF,
		MimeType:       "application/pdf",
		SizeBytes:      2048,
		SourceURL:      "https://www.bizinfo.go.kr/file/1",
		ShouldParse:    true,
	}

	mock.ExpectQuery("INSERT INTO attachments").
		WithArgs(
			"att-1", att.AnnouncementID, att.FileName, att.Type, att.MimeType, att.SizeBytes,
			att.SourceURL, "", "", true,
			catalog.ParseStateUploaded, "", "", now,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("att-1"))

	id, err := store.Save(context.Background(), att)
	require.NoError(t, err)
	require.Equal(t, "att-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentUpdateParseState(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttachmentStore(mock, stubIDGen{id: "x"}, fixedClock{})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE attachments SET parse_state").
		WithArgs("att-1", catalog.ParseStateAnalyzed, "요약 내용", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateParseState(context.Background(), "att-1", catalog.ParseStateAnalyzed, "요약 내용", "")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE attachments SET parse_state").
		WithArgs("missing", catalog.ParseStateFailed, "", "boom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateParseState(context.Background(), "missing", catalog.ParseStateFailed, "", "boom")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentCleanupDuplicates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttachmentStore(mock, stubIDGen{id: "x"}, fixedClock{})
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM attachments").
		WithArgs("ann-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	removed, err := store.CleanupDuplicates(context.Background(), "ann-1")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	// Once the duplicates are gone a second pass deletes nothing.
	mock.ExpectExec("DELETE FROM attachments").
		WithArgs("ann-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	removed, err = store.CleanupDuplicates(context.Background(), "ann-1")
	require.NoError(t, err)
	require.Zero(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentListByAnnouncement(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewAttachmentStore(mock, stubIDGen{id: "x"}, fixedClock{at: now})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{
		"id", "announcement_id", "file_name", "type", "mime_type", "size_bytes",
		"source_url", "storage_path", "content_hash", "should_parse",
		"parse_state", "parsed_content", "parse_error", "created_at",
	}).AddRow(
		"att-1", "ann-1", "공고문.pdf", catalog.AttachmentPDF, "application/pdf", int64(100),
		"https://x.test/f/1", "attachments/ann-1/공고문.pdf", "hash", true,
		catalog.ParseStateAnalyzed, "본문", "", now,
	).AddRow(
		"att-2", "ann-1", "신청서.hwp", catalog.AttachmentHWP, "application/x-hwp", int64(200),
		"https://x.test/f/2", "", "", true,
		catalog.ParseStateUploaded, "", "", now,
	)

	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("ann-1").
		WillReturnRows(rows)

	got, err := store.ListByAnnouncement(context.Background(), "ann-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, catalog.ParseStateAnalyzed, got[0].ParseState)
	require.Equal(t, "신청서.hwp", got[1].FileName)
	require.NoError(t, mock.ExpectationsWereMet())
}
