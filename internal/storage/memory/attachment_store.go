package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// AttachmentStore implements catalog.AttachmentStore over process memory.
type AttachmentStore struct {
	mu    sync.RWMutex
	rows  map[string]catalog.Attachment
	clock catalog.Clock
}

// NewAttachmentStore constructs an AttachmentStore.
func NewAttachmentStore(clock catalog.Clock) *AttachmentStore {
	return &AttachmentStore{
		rows:  make(map[string]catalog.Attachment),
		clock: clock,
	}
}

// Save inserts or replaces an attachment row.
func (s *AttachmentStore) Save(_ context.Context, att catalog.Attachment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if att.ID == "" {
		att.ID = nextID()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = now(s.clock)
	}
	if att.ParseState == "" {
		att.ParseState = catalog.ParseStateUploaded
	}
	s.rows[att.ID] = att
	return att.ID, nil
}

// Get fetches an attachment by ID.
func (s *AttachmentStore) Get(_ context.Context, id string) (catalog.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	att, ok := s.rows[id]
	if !ok {
		return catalog.Attachment{}, ErrNotFound
	}
	return att, nil
}

// ListByAnnouncement returns an announcement's attachments, oldest first.
func (s *AttachmentStore) ListByAnnouncement(_ context.Context, announcementID string) ([]catalog.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Attachment
	for _, att := range s.rows {
		if att.AnnouncementID == announcementID {
			out = append(out, att)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateParseState mutates the analysis state machine fields.
func (s *AttachmentStore) UpdateParseState(_ context.Context, id string, state catalog.ParseState, content, parseErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	att.ParseState = state
	if content != "" {
		att.ParsedContent = content
	}
	att.ParseError = parseErr
	s.rows[id] = att
	return nil
}

// CleanupDuplicates keeps the most recently created attachment per
// (announcement, source URL) pair and removes the rest.
func (s *AttachmentStore) CleanupDuplicates(_ context.Context, announcementID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newest := map[string]catalog.Attachment{}
	for _, att := range s.rows {
		if att.AnnouncementID != announcementID {
			continue
		}
		prev, ok := newest[att.SourceURL]
		if !ok || att.CreatedAt.After(prev.CreatedAt) ||
			(att.CreatedAt.Equal(prev.CreatedAt) && att.ID > prev.ID) {
			newest[att.SourceURL] = att
		}
	}
	removed := 0
	for id, att := range s.rows {
		if att.AnnouncementID != announcementID {
			continue
		}
		if newest[att.SourceURL].ID != id {
			delete(s.rows, id)
			removed++
		}
	}
	return removed, nil
}
