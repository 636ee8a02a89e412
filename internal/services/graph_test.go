package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/campuslink/campuslink-backend/internal/data/repos/testutil"
	types "github.com/campuslink/campuslink-backend/internal/domain"
	graphdomain "github.com/campuslink/campuslink-backend/internal/domain/graph"
	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
)

func seedUser(name, department string, year int) *types.User {
	return &types.User{
		ID:         uuid.New(),
		Email:      name + "@campus.edu",
		Name:       name,
		Department: department,
		Year:       year,
		College:    "Engineering",
		IsActive:   true,
	}
}

func newTestGraph(t *testing.T, edges *fakeEdgeRepo, users *fakeUserRepo, cache AdjacencyCache) GraphService {
	t.Helper()
	return NewGraphService(nil, testutil.Logger(t), edges, users, cache, GraphConfig{})
}

func TestFollowUserIdempotent(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 2)
	users := newFakeUserRepo(alice, bob)
	svc := newTestGraph(t, newFakeEdgeRepo(), users, nil)

	res, err := svc.FollowUser(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("first follow: %v", err)
	}
	if !res.IsFollowing {
		t.Fatalf("expected is_following after follow")
	}
	if !res.Changed {
		t.Fatalf("first follow did not report a change")
	}
	if res.FollowerCount != 1 || res.FollowingCount != 1 {
		t.Fatalf("counts after first follow = %d/%d, want 1/1", res.FollowerCount, res.FollowingCount)
	}

	res, err = svc.FollowUser(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("repeat follow: %v", err)
	}
	if res.Changed {
		t.Fatalf("repeat follow reported a change")
	}
	if res.FollowerCount != 1 || res.FollowingCount != 1 {
		t.Fatalf("repeat follow moved counts to %d/%d", res.FollowerCount, res.FollowingCount)
	}
}

func TestFollowValidation(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice), nil)

	if _, err := svc.FollowUser(ctx, alice.ID, alice.ID); !apierr.IsInvalidArgument(err) {
		t.Fatalf("self follow: got %v, want invalid_argument", err)
	}
	if _, err := svc.FollowUser(ctx, uuid.Nil, alice.ID); !apierr.IsInvalidArgument(err) {
		t.Fatalf("nil source: got %v, want invalid_argument", err)
	}
	if _, err := svc.FollowUser(ctx, alice.ID, uuid.New()); !apierr.IsNotFound(err) {
		t.Fatalf("missing target: got %v, want not_found", err)
	}
}

func TestUnfollowRestoresCounts(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "Math", 3)
	users := newFakeUserRepo(alice, bob)
	svc := newTestGraph(t, newFakeEdgeRepo(), users, nil)

	if _, err := svc.FollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	res, err := svc.UnfollowUser(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if res.IsFollowing {
		t.Fatalf("still following after unfollow")
	}
	if !res.Changed {
		t.Fatalf("unfollow did not report the edge removal")
	}
	if res.FollowerCount != 0 || res.FollowingCount != 0 {
		t.Fatalf("counts after unfollow = %d/%d, want 0/0", res.FollowerCount, res.FollowingCount)
	}

	// Repeat unfollow must not push counters negative.
	res, err = svc.UnfollowUser(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("repeat unfollow: %v", err)
	}
	if res.Changed {
		t.Fatalf("repeat unfollow reported a removal")
	}
	if res.FollowerCount != 0 || res.FollowingCount != 0 {
		t.Fatalf("repeat unfollow moved counts to %d/%d", res.FollowerCount, res.FollowingCount)
	}
}

func TestRecordInteraction(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 2)
	edges := newFakeEdgeRepo()
	svc := newTestGraph(t, edges, newFakeUserRepo(alice, bob), nil)

	if _, err := svc.FollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}

	if err := svc.RecordInteraction(ctx, alice.ID, bob.ID, types.InteractionComment); err != nil {
		t.Fatalf("comment: %v", err)
	}
	edge, _ := edges.Find(ctx, nil, alice.ID, bob.ID)
	wantWeight := graphdomain.InitialWeight + 0.05
	if edge.Weight < wantWeight-1e-9 || edge.Weight > wantWeight+1e-9 {
		t.Fatalf("weight after comment = %v, want %v", edge.Weight, wantWeight)
	}
	if edge.CommentCount != 1 {
		t.Fatalf("comment_count = %d, want 1", edge.CommentCount)
	}
	if edge.LastInteractionAt == nil {
		t.Fatalf("last_interaction_at not set")
	}

	// Repeated messages saturate at the maximum weight.
	for i := 0; i < 20; i++ {
		if err := svc.RecordInteraction(ctx, alice.ID, bob.ID, types.InteractionMessage); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	edge, _ = edges.Find(ctx, nil, alice.ID, bob.ID)
	if edge.Weight > graphdomain.MaxWeight {
		t.Fatalf("weight %v exceeds max %v", edge.Weight, graphdomain.MaxWeight)
	}
	if edge.Weight < graphdomain.MaxWeight-1e-9 {
		t.Fatalf("weight %v did not saturate at %v", edge.Weight, graphdomain.MaxWeight)
	}

	if err := svc.RecordInteraction(ctx, alice.ID, bob.ID, types.InteractionType("poke")); !apierr.IsInvalidArgument(err) {
		t.Fatalf("unknown type: got %v, want invalid_argument", err)
	}

	// An interaction without an edge is a silent no-op, not an edge create.
	if err := svc.RecordInteraction(ctx, bob.ID, alice.ID, types.InteractionLike); err != nil {
		t.Fatalf("interaction without edge: %v", err)
	}
	if following, _ := svc.IsFollowing(ctx, bob.ID, alice.ID); following {
		t.Fatalf("interaction created an edge")
	}
}

func TestApplyWeightDecay(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 2)
	carol := seedUser("carol", "Math", 1)
	edges := newFakeEdgeRepo()
	svc := newTestGraph(t, edges, newFakeUserRepo(alice, bob, carol), nil)

	mustFollow(t, svc, alice.ID, bob.ID)
	mustFollow(t, svc, alice.ID, carol.ID)
	mustFollow(t, svc, bob.ID, carol.ID)
	edges.edges[pairKey{alice.ID, bob.ID}].Weight = 0.5
	edges.edges[pairKey{alice.ID, carol.ID}].Weight = 0.08
	edges.edges[pairKey{bob.ID, carol.ID}].Weight = graphdomain.WeightFloor

	affected, err := svc.ApplyWeightDecay(ctx, 0.5, graphdomain.WeightFloor)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want 2 (edges at the floor are untouched)", affected)
	}
	if w := edges.edges[pairKey{alice.ID, bob.ID}].Weight; w != 0.25 {
		t.Fatalf("decayed weight = %v, want 0.25", w)
	}
	if w := edges.edges[pairKey{alice.ID, carol.ID}].Weight; w != graphdomain.WeightFloor {
		t.Fatalf("weight below floor = %v, want clamp to %v", w, graphdomain.WeightFloor)
	}
	if w := edges.edges[pairKey{bob.ID, carol.ID}].Weight; w != graphdomain.WeightFloor {
		t.Fatalf("floor edge changed to %v", w)
	}
}

func TestRelationshipStrengthScenarios(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 2)
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice, bob), nil)

	rel, err := svc.GetRelationshipStrength(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("no edges: %v", err)
	}
	if rel.Category != types.StrengthNone || rel.Weight != 0 {
		t.Fatalf("no edges: category=%s weight=%v", rel.Category, rel.Weight)
	}

	// One fresh follow is a weak tie.
	mustFollow(t, svc, alice.ID, bob.ID)
	rel, _ = svc.GetRelationshipStrength(ctx, alice.ID, bob.ID)
	if rel.Category != types.StrengthWeak || !rel.IsFollowing || rel.IsMutual {
		t.Fatalf("one-way follow: category=%s following=%v mutual=%v", rel.Category, rel.IsFollowing, rel.IsMutual)
	}

	// A follow back makes it moderate even with no interactions.
	mustFollow(t, svc, bob.ID, alice.ID)
	rel, _ = svc.GetRelationshipStrength(ctx, alice.ID, bob.ID)
	if rel.Category != types.StrengthModerate || !rel.IsMutual {
		t.Fatalf("mutual follow: category=%s mutual=%v", rel.Category, rel.IsMutual)
	}

	// Heavy two-way messaging crosses the strong threshold.
	for i := 0; i < 10; i++ {
		if err := svc.RecordInteraction(ctx, alice.ID, bob.ID, types.InteractionMessage); err != nil {
			t.Fatalf("message a->b: %v", err)
		}
		if err := svc.RecordInteraction(ctx, bob.ID, alice.ID, types.InteractionMessage); err != nil {
			t.Fatalf("message b->a: %v", err)
		}
	}
	rel, _ = svc.GetRelationshipStrength(ctx, alice.ID, bob.ID)
	if rel.Category != types.StrengthStrong {
		t.Fatalf("after messaging: category=%s weight=%v", rel.Category, rel.Weight)
	}
	if rel.LastInteractionAt == nil {
		t.Fatalf("after messaging: last_interaction_at not set")
	}
	if rel.Weight > graphdomain.MaxWeight {
		t.Fatalf("combined weight %v exceeds max", rel.Weight)
	}
}

func TestMutualConnectionsSymmetric(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "Math", 3)
	carol := seedUser("carol", "CS", 2)
	dave := seedUser("dave", "Physics", 1)
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice, bob, carol, dave), nil)

	mustFollow(t, svc, alice.ID, carol.ID)
	mustFollow(t, svc, alice.ID, dave.ID)
	mustFollow(t, svc, bob.ID, carol.ID)
	mustFollow(t, svc, bob.ID, dave.ID)

	ab, err := svc.GetMutualConnections(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("mutual a,b: %v", err)
	}
	ba, err := svc.GetMutualConnections(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("mutual b,a: %v", err)
	}
	if len(ab) != 2 || len(ba) != 2 {
		t.Fatalf("mutual sizes = %d/%d, want 2/2", len(ab), len(ba))
	}
	for i := range ab {
		if ab[i].ID != ba[i].ID {
			t.Fatalf("mutual result not symmetric at %d: %s vs %s", i, ab[i].ID, ba[i].ID)
		}
	}
}

func TestMutualFollowers(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "Math", 3)
	carol := seedUser("carol", "CS", 2)
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice, bob, carol), nil)

	mustFollow(t, svc, carol.ID, alice.ID)
	mustFollow(t, svc, carol.ID, bob.ID)

	got, err := svc.GetMutualFollowers(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("mutual followers: %v", err)
	}
	if len(got) != 1 || got[0].ID != carol.ID {
		t.Fatalf("mutual followers = %v, want just carol", got)
	}
}

func TestBulkCheckFollowingBypassesCache(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 3)
	carol := seedUser("carol", "Math", 2)
	cache := newRecordingCache()
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice, bob, carol), cache)

	mustFollow(t, svc, alice.ID, bob.ID)
	// Poison the cache with a stale set claiming alice follows carol.
	cache.StoreFollowing(ctx, alice.ID, []uuid.UUID{carol.ID})

	got, err := svc.BulkCheckFollowing(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	if err != nil {
		t.Fatalf("bulk check: %v", err)
	}
	if !got[bob.ID] || got[carol.ID] {
		t.Fatalf("bulk check = %v, want store truth bob=true carol=false", got)
	}

	empty, err := svc.BulkCheckFollowing(ctx, alice.ID, nil)
	if err != nil {
		t.Fatalf("empty bulk check: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty bulk check returned %v", empty)
	}
}

func TestFollowListPagination(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	others := make([]*types.User, 5)
	all := []*types.User{alice}
	for i := range others {
		others[i] = seedUser(string(rune('b'+i))+"user", "CS", 2)
		all = append(all, others[i])
	}
	edges := newFakeEdgeRepo()
	svc := newTestGraph(t, edges, newFakeUserRepo(all...), nil)

	for i, u := range others {
		mustFollow(t, svc, alice.ID, u.ID)
		edges.edges[pairKey{alice.ID, u.ID}].Weight = 0.1 + float64(i)*0.1
	}

	seen := make(map[uuid.UUID]int)
	var total int
	for offset := 0; offset < len(others); offset += 2 {
		page, err := svc.GetFollowing(ctx, alice.ID, 2, offset)
		if err != nil {
			t.Fatalf("page at offset %d: %v", offset, err)
		}
		for _, e := range page {
			seen[e.User.ID]++
			total++
		}
	}
	if total != len(others) {
		t.Fatalf("paged through %d entries, want %d", total, len(others))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("user %s appeared %d times across pages", id, n)
		}
	}

	if _, err := svc.GetFollowing(ctx, alice.ID, 0, 0); !apierr.IsInvalidArgument(err) {
		t.Fatalf("zero limit: got %v, want invalid_argument", err)
	}
	if _, err := svc.GetFollowing(ctx, alice.ID, 10, -1); !apierr.IsInvalidArgument(err) {
		t.Fatalf("negative offset: got %v, want invalid_argument", err)
	}
	if _, err := svc.GetFollowing(ctx, alice.ID, 101, 0); !apierr.IsInvalidArgument(err) {
		t.Fatalf("oversize limit: got %v, want invalid_argument", err)
	}
}

func TestFollowingIDsCacheLifecycle(t *testing.T) {
	ctx := context.Background()
	alice := seedUser("alice", "CS", 2)
	bob := seedUser("bob", "CS", 2)
	carol := seedUser("carol", "Math", 1)
	cache := newRecordingCache()
	svc := newTestGraph(t, newFakeEdgeRepo(), newFakeUserRepo(alice, bob, carol), cache)

	mustFollow(t, svc, alice.ID, bob.ID)

	ids, err := svc.FollowingIDs(ctx, alice.ID, 0)
	if err != nil {
		t.Fatalf("following ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != bob.ID {
		t.Fatalf("following ids = %v, want [bob]", ids)
	}
	if _, ok := cache.GetFollowing(ctx, alice.ID); !ok {
		t.Fatalf("lookup did not populate the cache")
	}

	// A mutation drops the cached set for both endpoints.
	mustFollow(t, svc, alice.ID, carol.ID)
	if _, ok := cache.GetFollowing(ctx, alice.ID); ok {
		t.Fatalf("follow did not invalidate the cached adjacency set")
	}
	ids, err = svc.FollowingIDs(ctx, alice.ID, 0)
	if err != nil {
		t.Fatalf("following ids after follow: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("following ids after follow = %v, want two entries", ids)
	}
}

func mustFollow(t *testing.T, svc GraphService, source, target uuid.UUID) {
	t.Helper()
	if _, err := svc.FollowUser(context.Background(), source, target); err != nil {
		t.Fatalf("follow %s -> %s: %v", source, target, err)
	}
}
