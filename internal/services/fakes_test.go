package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/campuslink/campuslink-backend/internal/domain"
	graphdomain "github.com/campuslink/campuslink-backend/internal/domain/graph"
	repograph "github.com/campuslink/campuslink-backend/internal/data/repos/graph"
)

type pairKey struct {
	source uuid.UUID
	target uuid.UUID
}

// fakeEdgeRepo mirrors the store contract in memory, including ordering by
// weight desc / created_at desc and the clamp/floor arithmetic.
type fakeEdgeRepo struct {
	mu    sync.Mutex
	edges map[pairKey]*types.Edge
	clock time.Time
}

func newFakeEdgeRepo() *fakeEdgeRepo {
	return &fakeEdgeRepo{
		edges: make(map[pairKey]*types.Edge),
		clock: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeEdgeRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeEdgeRepo) Upsert(ctx context.Context, _ *gorm.DB, source, target uuid.UUID) (*types.Edge, bool, error) {
	if source == target {
		return nil, false, repograph.ErrSelfEdge
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{source, target}
	if existing, ok := f.edges[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	now := f.tick()
	e := &types.Edge{
		ID:        uuid.New(),
		SourceID:  source,
		TargetID:  target,
		Weight:    graphdomain.InitialWeight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.edges[key] = e
	cp := *e
	return &cp, true, nil
}

func (f *fakeEdgeRepo) Delete(ctx context.Context, _ *gorm.DB, source, target uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{source, target}
	if _, ok := f.edges[key]; !ok {
		return false, nil
	}
	delete(f.edges, key)
	return true, nil
}

func (f *fakeEdgeRepo) Find(ctx context.Context, _ *gorm.DB, source, target uuid.UUID) (*types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.edges[pairKey{source, target}]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeEdgeRepo) sortedBy(filter func(*types.Edge) bool) []*types.Edge {
	var out []*types.Edge
	for _, e := range f.edges {
		if filter(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func page(edges []*types.Edge, limit, offset int) []*types.Edge {
	if offset >= len(edges) {
		return nil
	}
	edges = edges[offset:]
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	return edges
}

func (f *fakeEdgeRepo) ListBySource(ctx context.Context, _ *gorm.DB, source uuid.UUID, limit, offset int) ([]*types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.sortedBy(func(e *types.Edge) bool { return e.SourceID == source }), limit, offset), nil
}

func (f *fakeEdgeRepo) ListByTarget(ctx context.Context, _ *gorm.DB, target uuid.UUID, limit, offset int) ([]*types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.sortedBy(func(e *types.Edge) bool { return e.TargetID == target }), limit, offset), nil
}

func (f *fakeEdgeRepo) CountBySource(ctx context.Context, _ *gorm.DB, source uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.edges {
		if e.SourceID == source {
			n++
		}
	}
	return n, nil
}

func (f *fakeEdgeRepo) CountByTarget(ctx context.Context, _ *gorm.DB, target uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.edges {
		if e.TargetID == target {
			n++
		}
	}
	return n, nil
}

func (f *fakeEdgeRepo) ListTargetIDs(ctx context.Context, _ *gorm.DB, source uuid.UUID, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edges := page(f.sortedBy(func(e *types.Edge) bool { return e.SourceID == source }), limit, 0)
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.TargetID)
	}
	return ids, nil
}

func (f *fakeEdgeRepo) ListSourceIDs(ctx context.Context, _ *gorm.DB, target uuid.UUID, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edges := page(f.sortedBy(func(e *types.Edge) bool { return e.TargetID == target }), limit, 0)
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.SourceID)
	}
	return ids, nil
}

func (f *fakeEdgeRepo) FilterFollowing(ctx context.Context, _ *gorm.DB, source uuid.UUID, targets []uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, t := range targets {
		if _, ok := f.edges[pairKey{source, t}]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) IncrementWeight(ctx context.Context, _ *gorm.DB, source, target uuid.UUID, delta float64, interaction types.InteractionType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.edges[pairKey{source, target}]
	if !ok {
		return nil
	}
	e.Weight += delta
	if e.Weight > graphdomain.MaxWeight {
		e.Weight = graphdomain.MaxWeight
	}
	switch interaction {
	case types.InteractionLike:
		e.LikeCount++
	case types.InteractionComment:
		e.CommentCount++
	case types.InteractionMessage:
		e.MessageCount++
	case types.InteractionShare:
		e.ShareCount++
	case types.InteractionMention:
		e.MentionCount++
	}
	now := f.tick()
	e.LastInteractionAt = &now
	e.UpdatedAt = now
	return nil
}

func (f *fakeEdgeRepo) DecayAll(ctx context.Context, _ *gorm.DB, factor, floor float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, e := range f.edges {
		if e.Weight <= floor {
			continue
		}
		e.Weight *= factor
		if e.Weight < floor {
			e.Weight = floor
		}
		affected++
	}
	return affected, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*types.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, _ *gorm.DB, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUserRepo) ListByDepartment(ctx context.Context, _ *gorm.DB, department string, year int, exclude []uuid.UUID, limit int) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	var out []*types.User
	for _, u := range f.users {
		if u.Department != department || !u.IsActive {
			continue
		}
		if year > 0 && u.Year != year {
			continue
		}
		if _, skip := excluded[u.ID]; skip {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FollowersCount != out[j].FollowersCount {
			return out[i].FollowersCount > out[j].FollowersCount
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) AdjustFollowCounts(ctx context.Context, _ *gorm.DB, id uuid.UUID, followersDelta, followingDelta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	u.FollowersCount += followersDelta
	if u.FollowersCount < 0 {
		u.FollowersCount = 0
	}
	u.FollowingCount += followingDelta
	if u.FollowingCount < 0 {
		u.FollowingCount = 0
	}
	return nil
}

// recordingCache counts invalidations so tests can assert cache hygiene.
type recordingCache struct {
	mu          sync.Mutex
	store       map[uuid.UUID][]uuid.UUID
	invalidated []uuid.UUID
}

func newRecordingCache() *recordingCache {
	return &recordingCache{store: make(map[uuid.UUID][]uuid.UUID)}
}

func (c *recordingCache) GetFollowing(ctx context.Context, id uuid.UUID) ([]uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.store[id]
	return ids, ok
}

func (c *recordingCache) StoreFollowing(ctx context.Context, id uuid.UUID, following []uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[id] = following
}

func (c *recordingCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.store, id)
		c.invalidated = append(c.invalidated, id)
	}
}
