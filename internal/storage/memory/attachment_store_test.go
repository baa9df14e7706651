package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

type frozenClock struct{ at time.Time }

func (c frozenClock) Now() time.Time { return c.at }

func TestAttachmentCleanupDuplicatesKeepsLatestOnCreatedAtTie(t *testing.T) {
	t.Parallel()

	store := NewAttachmentStore(frozenClock{at: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)})
	ctx := context.Background()

	// Enough rows that the minted IDs cross a digit width; the survivor
	// must be the last insert, not whichever ID happens to sort higher
	// as a string.
	var last string
	for i := 0; i < 12; i++ {
		id, err := store.Save(ctx, catalog.Attachment{
			AnnouncementID: "ann-1",
			FileName:       "공고문.pdf",
			SourceURL:      "https://x.test/f/1",
		})
		require.NoError(t, err)
		last = id
	}

	removed, err := store.CleanupDuplicates(ctx, "ann-1")
	require.NoError(t, err)
	require.Equal(t, 11, removed)

	kept, err := store.ListByAnnouncement(ctx, "ann-1")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Equal(t, last, kept[0].ID)
}

func TestAttachmentCleanupDuplicatesSecondPassRemovesNothing(t *testing.T) {
	t.Parallel()

	clock := frozenClock{at: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)}
	store := NewAttachmentStore(clock)
	ctx := context.Background()

	for _, url := range []string{
		"https://x.test/f/1",
		"https://x.test/f/1",
		"https://x.test/f/2",
	} {
		_, err := store.Save(ctx, catalog.Attachment{
			AnnouncementID: "ann-1",
			FileName:       "붙임.hwp",
			SourceURL:      url,
		})
		require.NoError(t, err)
	}

	removed, err := store.CleanupDuplicates(ctx, "ann-1")
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	again, err := store.CleanupDuplicates(ctx, "ann-1")
	require.NoError(t, err)
	require.Zero(t, again)

	kept, err := store.ListByAnnouncement(ctx, "ann-1")
	require.NoError(t, err)
	require.Len(t, kept, 2)
}
