package dedup

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// Config tunes the grouping engine.
type Config struct {
	// BatchSize bounds how many ungrouped announcements one GroupBatch
	// call examines.
	BatchSize int
	// AmountTolerance is the allowed relative difference between group
	// members' amount ranges before the group is flagged for review.
	AmountTolerance float64
}

// BatchResult reports one GroupBatch call.
type BatchResult struct {
	Processed       int `json:"processed"`
	GroupsCreated   int `json:"groups_created"`
	ProjectsGrouped int `json:"projects_grouped"`
}

// Engine clusters announcements by exact fingerprint equality. Matching
// is deliberately exact (no fuzzy distance): under-merging is preferred
// over false-positive merges.
type Engine struct {
	announcements catalog.AnnouncementStore
	groups        catalog.GroupStore
	idGen         catalog.IDGenerator
	clock         catalog.Clock
	cfg           Config
	logger        *zap.Logger

	// cursor is the last announcement ID examined in the current sweep.
	// It guarantees each row is visited at most once per sweep, so a
	// sweep over nothing but singletons still reaches Processed == 0.
	mu     sync.Mutex
	cursor string
}

// NewEngine constructs an Engine.
func NewEngine(
	announcements catalog.AnnouncementStore,
	groups catalog.GroupStore,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = 0.2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		announcements: announcements,
		groups:        groups,
		idGen:         idGen,
		clock:         clock,
		cfg:           cfg,
		logger:        logger,
	}
}

// Fingerprint returns the normalized (name, organization) pair.
func Fingerprint(a catalog.Announcement) (string, string) {
	return NormalizeName(a.Name), NormalizeOrg(a.Organization)
}

// GroupBatch processes up to BatchSize ungrouped announcements past the
// sweep cursor. Callers keep invoking it until Processed is zero; an
// empty page resets the cursor so the next sweep starts over. Rows that
// stay singletons are not revisited within a sweep, so the loop always
// terminates. Idempotent: re-running on an unchanged catalog creates no
// groups and changes no canonical flags.
func (e *Engine) GroupBatch(ctx context.Context) (BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var res BatchResult

	batch, err := e.announcements.ListUngrouped(ctx, e.cursor, e.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("list ungrouped: %w", err)
	}
	if len(batch) == 0 {
		e.cursor = ""
		return res, nil
	}
	e.cursor = batch[len(batch)-1].ID

	for _, a := range batch {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		res.Processed++

		// An earlier iteration may have pulled this row into a group
		// already (peers are assigned eagerly).
		fresh, err := e.announcements.Get(ctx, a.ID)
		if err != nil {
			return res, fmt.Errorf("reload announcement: %w", err)
		}
		if fresh.GroupID != "" {
			continue
		}

		name, org := Fingerprint(a)
		if name == "" {
			continue // nothing to match on; stays a singleton
		}
		matches, err := e.announcements.FindByFingerprint(ctx, name, org)
		if err != nil {
			return res, fmt.Errorf("find fingerprint: %w", err)
		}

		var groupID string
		var peers []catalog.Announcement
		for _, m := range matches {
			if m.ID == a.ID {
				continue
			}
			if m.GroupID != "" {
				groupID = m.GroupID
				break
			}
			peers = append(peers, m)
		}

		switch {
		case groupID != "":
			// Join the existing group.
			if err := e.assign(ctx, a.ID, groupID); err != nil {
				return res, err
			}
			res.ProjectsGrouped++
		case len(peers) > 0:
			// New group containing this announcement and its peers.
			id, err := e.createGroup(ctx)
			if err != nil {
				return res, err
			}
			groupID = id
			res.GroupsCreated++
			if err := e.assign(ctx, a.ID, groupID); err != nil {
				return res, err
			}
			res.ProjectsGrouped++
			for _, p := range peers {
				if err := e.assign(ctx, p.ID, groupID); err != nil {
					return res, err
				}
				res.ProjectsGrouped++
			}
		default:
			// Singleton: implicitly its own canonical.
			continue
		}

		if err := e.refreshGroup(ctx, groupID); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) createGroup(ctx context.Context) (string, error) {
	id, err := e.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("group id: %w", err)
	}
	created, err := e.groups.CreateGroup(ctx, catalog.ProjectGroup{
		ID:           id,
		ReviewStatus: catalog.GroupAutoGrouped,
		CreatedAt:    e.clock.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

func (e *Engine) assign(ctx context.Context, announcementID, groupID string) error {
	if err := catalog.WithRetry(ctx, func(ctx context.Context) error {
		return e.announcements.SetGroup(ctx, announcementID, groupID)
	}); err != nil {
		return fmt.Errorf("assign group: %w", err)
	}
	return nil
}

// refreshGroup re-runs canonical selection and the review check on one
// group. Idempotent on unchanged membership.
func (e *Engine) refreshGroup(ctx context.Context, groupID string) error {
	members, err := e.announcements.ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group members: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	canonicalID := selectCanonical(members)
	for _, m := range members {
		want := m.ID == canonicalID
		if m.IsCanonical == want {
			continue
		}
		if err := e.announcements.SetCanonical(ctx, m.ID, want); err != nil {
			return fmt.Errorf("set canonical: %w", err)
		}
	}

	if e.disagrees(members) {
		group, err := e.groups.GetGroup(ctx, groupID)
		if err != nil {
			return fmt.Errorf("get group: %w", err)
		}
		// Never auto-resolve a review flag once raised.
		if group.ReviewStatus == catalog.GroupAutoGrouped {
			if err := e.groups.SetReviewStatus(ctx, groupID, catalog.GroupPendingReview); err != nil {
				return fmt.Errorf("flag review: %w", err)
			}
			e.logger.Info("group flagged for review",
				zap.String("group_id", groupID),
				zap.Int("members", len(members)),
			)
		}
	}
	return nil
}

// selectCanonical picks the member with the most recently updated
// deadline, falling back to creation time. Ties break on ID so repeated
// runs are stable.
func selectCanonical(members []catalog.Announcement) string {
	best := members[0]
	for _, m := range members[1:] {
		if laterThan(m, best) {
			best = m
		}
	}
	return best.ID
}

func laterThan(a, b catalog.Announcement) bool {
	at, bt := effectiveTime(a), effectiveTime(b)
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.ID < b.ID
}

func effectiveTime(a catalog.Announcement) time.Time {
	if a.Deadline != nil {
		return *a.Deadline
	}
	return a.CreatedAt
}

// disagrees reports whether members differ on category or on amount
// beyond the configured tolerance.
func (e *Engine) disagrees(members []catalog.Announcement) bool {
	category := ""
	var minAmt, maxAmt int64 = math.MaxInt64, 0
	haveAmt := false
	for _, m := range members {
		if m.Category != "" {
			if category == "" {
				category = m.Category
			} else if m.Category != category {
				return true
			}
		}
		if m.AmountMax > 0 {
			haveAmt = true
			if m.AmountMax < minAmt {
				minAmt = m.AmountMax
			}
			if m.AmountMax > maxAmt {
				maxAmt = m.AmountMax
			}
		}
	}
	if haveAmt && minAmt > 0 {
		diff := float64(maxAmt-minAmt) / float64(maxAmt)
		if diff > e.cfg.AmountTolerance {
			return true
		}
	}
	return false
}
