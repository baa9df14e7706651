package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return "grp-" + string(rune('a'+g.n-1)), nil
}

func newTestEngine(t *testing.T) (*Engine, *memory.AnnouncementStore, *memory.GroupStore) {
	t.Helper()
	clock := fixedClock{t: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)}
	announcements := memory.NewAnnouncementStore(clock)
	groups := memory.NewGroupStore(clock)
	engine := NewEngine(announcements, groups, &seqIDGen{}, clock, Config{BatchSize: 50}, zap.NewNop())
	return engine, announcements, groups
}

func seed(t *testing.T, store *memory.AnnouncementStore, a catalog.Announcement) string {
	t.Helper()
	a.NormalizedName = NormalizeName(a.Name)
	a.NormalizedOrg = NormalizeOrg(a.Organization)
	id, _, err := store.Upsert(context.Background(), a)
	require.NoError(t, err)
	return id
}

func deadline(d time.Time) *time.Time { return &d }

func TestGroupBatch_GroupsMatchingFingerprints(t *testing.T) {
	t.Parallel()

	engine, announcements, groups := newTestEngine(t)
	ctx := context.Background()

	id1 := seed(t, announcements, catalog.Announcement{
		SourceID: "bizinfo", ExternalID: "1",
		Name: "2026년 청년창업 지원사업 공고", Organization: "중기부",
		Deadline: deadline(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)),
	})
	id2 := seed(t, announcements, catalog.Announcement{
		SourceID: "kstartup", ExternalID: "77",
		Name: "청년창업 지원사업 공고", Organization: "중소벤처기업부",
		Deadline: deadline(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)),
	})
	seed(t, announcements, catalog.Announcement{
		SourceID: "bizinfo", ExternalID: "2",
		Name: "전혀 다른 수출바우처 사업", Organization: "산업부",
	})

	res, err := engine.GroupBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, res.Processed)
	require.Equal(t, 1, res.GroupsCreated)
	require.Equal(t, 2, res.ProjectsGrouped)

	a1, err := announcements.Get(ctx, id1)
	require.NoError(t, err)
	a2, err := announcements.Get(ctx, id2)
	require.NoError(t, err)
	require.NotEmpty(t, a1.GroupID)
	require.Equal(t, a1.GroupID, a2.GroupID)

	// Later deadline wins the canonical flag.
	require.False(t, a1.IsCanonical)
	require.True(t, a2.IsCanonical)

	g, err := groups.GetGroup(ctx, a1.GroupID)
	require.NoError(t, err)
	require.Equal(t, catalog.GroupAutoGrouped, g.ReviewStatus)
}

func TestGroupBatch_Idempotent(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "스마트공장 구축 지원", Organization: "중기부",
	})
	seed(t, announcements, catalog.Announcement{
		SourceID: "b", ExternalID: "1", Name: "스마트공장 구축 지원", Organization: "중소벤처기업부",
	})

	first, err := engine.GroupBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.GroupsCreated)

	canonicalBefore := canonicalSet(t, announcements)

	second, err := engine.GroupBatch(ctx)
	require.NoError(t, err)
	require.Zero(t, second.Processed)
	require.Zero(t, second.GroupsCreated)
	require.Equal(t, canonicalBefore, canonicalSet(t, announcements))
}

func TestGroupBatch_JoinsExistingGroup(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "수출바우처 참여기업 모집", Organization: "산업부",
	})
	seed(t, announcements, catalog.Announcement{
		SourceID: "b", ExternalID: "2", Name: "수출바우처 참여기업 모집", Organization: "산업통상자원부",
	})
	_, err := engine.GroupBatch(ctx)
	require.NoError(t, err)

	// A third portal republishes the same program later.
	id3 := seed(t, announcements, catalog.Announcement{
		SourceID: "c", ExternalID: "9", Name: "수출바우처 참여기업 모집", Organization: "산업부",
	})
	res, err := engine.GroupBatch(ctx)
	require.NoError(t, err)
	require.Zero(t, res.GroupsCreated)
	require.Equal(t, 1, res.ProjectsGrouped)

	a3, err := announcements.Get(ctx, id3)
	require.NoError(t, err)
	require.NotEmpty(t, a3.GroupID)
}

func TestGroupBatch_ExactlyOneCanonicalPerGroup(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	for i, src := range []string{"a", "b", "c", "d"} {
		seed(t, announcements, catalog.Announcement{
			SourceID: src, ExternalID: "1",
			Name: "지역특화 창업패키지", Organization: "창진원",
			Deadline: deadline(time.Date(2026, 9, 1+i, 0, 0, 0, 0, time.UTC)),
		})
	}
	_, err := engine.GroupBatch(ctx)
	require.NoError(t, err)

	var groupID string
	for _, a := range allAnnouncements(t, announcements) {
		require.NotEmpty(t, a.GroupID)
		groupID = a.GroupID
	}
	members, err := announcements.ListByGroup(ctx, groupID)
	require.NoError(t, err)
	canonical := 0
	for _, m := range members {
		if m.IsCanonical {
			canonical++
		}
	}
	require.Equal(t, 1, canonical)
}

func TestGroupBatch_FlagsCategoryDisagreementForReview(t *testing.T) {
	t.Parallel()

	engine, announcements, groups := newTestEngine(t)
	ctx := context.Background()

	id1 := seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "관광벤처 육성사업", Organization: "문체부", Category: "창업",
	})
	seed(t, announcements, catalog.Announcement{
		SourceID: "b", ExternalID: "2", Name: "관광벤처 육성사업", Organization: "문체부", Category: "관광",
	})
	_, err := engine.GroupBatch(ctx)
	require.NoError(t, err)

	a1, err := announcements.Get(ctx, id1)
	require.NoError(t, err)
	g, err := groups.GetGroup(ctx, a1.GroupID)
	require.NoError(t, err)
	require.Equal(t, catalog.GroupPendingReview, g.ReviewStatus)
}

func TestGroupBatch_SingletonStaysUngrouped(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	id := seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "단독으로만 올라온 공고", Organization: "테스트기관",
	})
	res, err := engine.GroupBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Processed)
	require.Zero(t, res.GroupsCreated)

	a, err := announcements.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, a.GroupID)
}

func TestGroupBatch_SingletonSweepReachesZero(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "단독 공고 하나", Organization: "기관",
	})

	// A drive-to-zero loop over a catalog of singletons must terminate:
	// each row is examined once per sweep, not once per call.
	calls := 0
	for {
		res, err := engine.GroupBatch(ctx)
		require.NoError(t, err)
		calls++
		require.LessOrEqual(t, calls, 5, "sweep did not converge")
		if res.Processed == 0 {
			break
		}
		require.Zero(t, res.GroupsCreated)
	}
	require.Equal(t, 2, calls)
}

func TestGroupBatch_LatePeerJoinsEarlierSingleton(t *testing.T) {
	t.Parallel()

	engine, announcements, _ := newTestEngine(t)
	ctx := context.Background()

	id1 := seed(t, announcements, catalog.Announcement{
		SourceID: "a", ExternalID: "1", Name: "글로벌 강소기업 육성", Organization: "중기부",
	})

	// Drain one full sweep; the row stays a singleton.
	for {
		res, err := engine.GroupBatch(ctx)
		require.NoError(t, err)
		if res.Processed == 0 {
			break
		}
	}

	// Another portal publishes the same program afterwards. The next
	// sweep must pull the earlier singleton into the new group.
	id2 := seed(t, announcements, catalog.Announcement{
		SourceID: "b", ExternalID: "7", Name: "글로벌 강소기업 육성", Organization: "중소벤처기업부",
	})
	for {
		res, err := engine.GroupBatch(ctx)
		require.NoError(t, err)
		if res.Processed == 0 {
			break
		}
	}

	a1, err := announcements.Get(ctx, id1)
	require.NoError(t, err)
	a2, err := announcements.Get(ctx, id2)
	require.NoError(t, err)
	require.NotEmpty(t, a1.GroupID)
	require.Equal(t, a1.GroupID, a2.GroupID)
}

func canonicalSet(t *testing.T, store *memory.AnnouncementStore) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	for _, a := range allAnnouncements(t, store) {
		out[a.ID] = a.IsCanonical
	}
	return out
}

func allAnnouncements(t *testing.T, store *memory.AnnouncementStore) []catalog.Announcement {
	t.Helper()
	grouped := map[string]catalog.Announcement{}
	ungrouped, err := store.ListUngrouped(context.Background(), "", 0)
	require.NoError(t, err)
	for _, a := range ungrouped {
		grouped[a.ID] = a
	}
	for _, gid := range []string{"grp-a", "grp-b", "grp-c"} {
		members, err := store.ListByGroup(context.Background(), gid)
		require.NoError(t, err)
		for _, m := range members {
			grouped[m.ID] = m
		}
	}
	out := make([]catalog.Announcement, 0, len(grouped))
	for _, a := range grouped {
		out = append(out, a)
	}
	return out
}
