// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = catalog.ErrNotFound

var idCounter atomic.Int64

// nextID produces IDs whose lexicographic order matches insertion
// order, mirroring the time-ordered UUIDs the real stores use.
func nextID() string {
	return fmt.Sprintf("mem-%012d", idCounter.Add(1))
}

// AnnouncementStore implements catalog.AnnouncementStore over process memory.
type AnnouncementStore struct {
	mu    sync.RWMutex
	rows  map[string]catalog.Announcement
	clock catalog.Clock
}

// NewAnnouncementStore constructs an AnnouncementStore.
func NewAnnouncementStore(clock catalog.Clock) *AnnouncementStore {
	return &AnnouncementStore{
		rows:  make(map[string]catalog.Announcement),
		clock: clock,
	}
}

func now(clock catalog.Clock) time.Time {
	if clock != nil {
		return clock.Now()
	}
	return time.Now().UTC()
}

// Upsert inserts or updates by (SourceID, ExternalID). Grouping state
// and counters survive updates.
func (s *AnnouncementStore) Upsert(_ context.Context, a catalog.Announcement) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now(s.clock)
	for id, existing := range s.rows {
		if existing.SourceID == a.SourceID && existing.ExternalID == a.ExternalID {
			a.ID = id
			a.GroupID = existing.GroupID
			a.IsCanonical = existing.IsCanonical
			a.CreatedAt = existing.CreatedAt
			a.ViewCount = existing.ViewCount
			a.BookmarkCount = existing.BookmarkCount
			a.UpdatedAt = ts
			s.rows[id] = a
			return id, false, nil
		}
	}
	if a.ID == "" {
		a.ID = nextID()
	}
	a.CreatedAt = ts
	a.UpdatedAt = ts
	s.rows[a.ID] = a
	return a.ID, true, nil
}

// Get fetches an announcement by ID.
func (s *AnnouncementStore) Get(_ context.Context, id string) (catalog.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rows[id]
	if !ok {
		return catalog.Announcement{}, ErrNotFound
	}
	return a, nil
}

// All returns every stored announcement in ID order (test helper).
func (s *AnnouncementStore) All() []catalog.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Announcement, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListUngrouped returns announcements without a group whose ID sorts
// after afterID, in ID order.
func (s *AnnouncementStore) ListUngrouped(_ context.Context, afterID string, limit int) ([]catalog.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Announcement
	for _, a := range s.rows {
		if a.GroupID == "" && a.DeletedAt == nil && a.ID > afterID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByFingerprint matches on the normalized pair.
func (s *AnnouncementStore) FindByFingerprint(_ context.Context, name, org string) ([]catalog.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Announcement
	for _, a := range s.rows {
		if a.DeletedAt == nil && a.NormalizedName == name && a.NormalizedOrg == org {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListByGroup returns all members of a group.
func (s *AnnouncementStore) ListByGroup(_ context.Context, groupID string) ([]catalog.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Announcement
	for _, a := range s.rows {
		if a.GroupID == groupID && a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetGroup assigns an announcement to a group.
func (s *AnnouncementStore) SetGroup(_ context.Context, announcementID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[announcementID]
	if !ok {
		return ErrNotFound
	}
	a.GroupID = groupID
	s.rows[announcementID] = a
	return nil
}

// SetCanonical flips the canonical flag.
func (s *AnnouncementStore) SetCanonical(_ context.Context, announcementID string, canonical bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[announcementID]
	if !ok {
		return ErrNotFound
	}
	a.IsCanonical = canonical
	s.rows[announcementID] = a
	return nil
}

// GroupStore implements catalog.GroupStore over process memory.
type GroupStore struct {
	mu    sync.RWMutex
	rows  map[string]catalog.ProjectGroup
	clock catalog.Clock
}

// NewGroupStore constructs a GroupStore.
func NewGroupStore(clock catalog.Clock) *GroupStore {
	return &GroupStore{
		rows:  make(map[string]catalog.ProjectGroup),
		clock: clock,
	}
}

// CreateGroup stores a new project group.
func (s *GroupStore) CreateGroup(_ context.Context, g catalog.ProjectGroup) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = nextID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now(s.clock)
	}
	s.rows[g.ID] = g
	return g.ID, nil
}

// GetGroup fetches a group by ID.
func (s *GroupStore) GetGroup(_ context.Context, id string) (catalog.ProjectGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.rows[id]
	if !ok {
		return catalog.ProjectGroup{}, ErrNotFound
	}
	return g, nil
}

// SetReviewStatus updates a group's review flag.
func (s *GroupStore) SetReviewStatus(_ context.Context, id string, status catalog.GroupReviewStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	g.ReviewStatus = status
	s.rows[id] = g
	return nil
}
