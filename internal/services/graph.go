package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/campuslink/campuslink-backend/internal/domain"
	graphdomain "github.com/campuslink/campuslink-backend/internal/domain/graph"
	"github.com/campuslink/campuslink-backend/internal/data/repos"
	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// GraphConfig bounds the engine's queries and parameterizes decay.
type GraphConfig struct {
	MaxPageSize     int
	MutualScanLimit int
	DecayFactor     float64
	DecayFloor      float64
}

func (c GraphConfig) withDefaults() GraphConfig {
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.MutualScanLimit <= 0 {
		c.MutualScanLimit = 1000
	}
	if c.DecayFactor <= 0 || c.DecayFactor > 1 {
		c.DecayFactor = graphdomain.DefaultDecayFactor
	}
	if c.DecayFloor <= 0 {
		c.DecayFloor = graphdomain.WeightFloor
	}
	return c
}

// FollowResult reports the state after a follow or unfollow. Changed is false
// when the call was a no-op (edge already present, or already absent).
type FollowResult struct {
	IsFollowing    bool `json:"is_following"`
	Changed        bool `json:"changed"`
	FollowerCount  int  `json:"follower_count"`
	FollowingCount int  `json:"following_count"`
}

type RelationshipStrength struct {
	IsFollowing       bool                   `json:"is_following"`
	IsFollowedBy      bool                   `json:"is_followed_by"`
	IsMutual          bool                   `json:"is_mutual"`
	Weight            float64                `json:"weight"`
	Category          types.StrengthCategory `json:"category"`
	LastInteractionAt *time.Time             `json:"last_interaction_at,omitempty"`
	Description       string                 `json:"description"`
}

type FollowListEntry struct {
	User              types.UserNode `json:"user"`
	Weight            float64        `json:"weight"`
	FollowedAt        time.Time      `json:"followed_at"`
	LastInteractionAt *time.Time     `json:"last_interaction_at,omitempty"`
}

// GraphService is the public API over the follow graph: edge lifecycle,
// interaction weighting, decay, listings and relationship queries. All
// operations are stateless; the store is authoritative.
type GraphService interface {
	FollowUser(ctx context.Context, source, target uuid.UUID) (*FollowResult, error)
	UnfollowUser(ctx context.Context, source, target uuid.UUID) (*FollowResult, error)
	RecordInteraction(ctx context.Context, source, target uuid.UUID, interaction types.InteractionType) error
	ApplyWeightDecay(ctx context.Context, factor, floor float64) (int64, error)
	GetFollowers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FollowListEntry, error)
	GetFollowing(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FollowListEntry, error)
	IsFollowing(ctx context.Context, source, target uuid.UUID) (bool, error)
	BulkCheckFollowing(ctx context.Context, source uuid.UUID, targets []uuid.UUID) (map[uuid.UUID]bool, error)
	GetRelationshipStrength(ctx context.Context, a, b uuid.UUID) (*RelationshipStrength, error)
	GetMutualConnections(ctx context.Context, a, b uuid.UUID) ([]types.UserNode, error)
	GetMutualFollowers(ctx context.Context, a, b uuid.UUID) ([]types.UserNode, error)
	FollowingIDs(ctx context.Context, id uuid.UUID, limit int) ([]uuid.UUID, error)
}

type graphService struct {
	db       *gorm.DB
	log      *logger.Logger
	edgeRepo repos.EdgeRepo
	userRepo repos.UserRepo
	cache    AdjacencyCache
	cfg      GraphConfig
}

func NewGraphService(
	db *gorm.DB,
	log *logger.Logger,
	edgeRepo repos.EdgeRepo,
	userRepo repos.UserRepo,
	cache AdjacencyCache,
	cfg GraphConfig,
) GraphService {
	if cache == nil {
		cache = NoopAdjacencyCache()
	}
	return &graphService{
		db:       db,
		log:      log.With("service", "GraphService"),
		edgeRepo: edgeRepo,
		userRepo: userRepo,
		cache:    cache,
		cfg:      cfg.withDefaults(),
	}
}

func (gs *graphService) FollowUser(ctx context.Context, source, target uuid.UUID) (*FollowResult, error) {
	if err := validatePair(source, target); err != nil {
		return nil, err
	}

	var exists bool
	err := retryStore(ctx, gs.log, "check target", func() error {
		var eerr error
		exists, eerr = gs.userRepo.Exists(ctx, nil, target)
		return eerr
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound(fmt.Errorf("target user %s does not exist", target))
	}

	var created bool
	err = retryStore(ctx, gs.log, "upsert edge", func() error {
		_, c, uerr := gs.edgeRepo.Upsert(ctx, nil, source, target)
		created = c
		return uerr
	})
	if err != nil {
		return nil, err
	}

	// Counters move only on a genuinely new edge so repeat follows stay
	// idempotent.
	if created {
		if cerr := gs.userRepo.AdjustFollowCounts(ctx, nil, source, 0, 1); cerr != nil {
			gs.log.Warn("following_count adjust failed", "source_id", source, "error", cerr)
		}
		if cerr := gs.userRepo.AdjustFollowCounts(ctx, nil, target, 1, 0); cerr != nil {
			gs.log.Warn("followers_count adjust failed", "target_id", target, "error", cerr)
		}
	}

	gs.cache.Invalidate(ctx, source, target)

	return gs.followResult(ctx, source, target, true, created)
}

func (gs *graphService) UnfollowUser(ctx context.Context, source, target uuid.UUID) (*FollowResult, error) {
	if err := validatePair(source, target); err != nil {
		return nil, err
	}

	var removed bool
	err := retryStore(ctx, gs.log, "delete edge", func() error {
		r, derr := gs.edgeRepo.Delete(ctx, nil, source, target)
		removed = r
		return derr
	})
	if err != nil {
		return nil, err
	}

	if removed {
		if cerr := gs.userRepo.AdjustFollowCounts(ctx, nil, source, 0, -1); cerr != nil {
			gs.log.Warn("following_count adjust failed", "source_id", source, "error", cerr)
		}
		if cerr := gs.userRepo.AdjustFollowCounts(ctx, nil, target, -1, 0); cerr != nil {
			gs.log.Warn("followers_count adjust failed", "target_id", target, "error", cerr)
		}
	}

	gs.cache.Invalidate(ctx, source, target)

	return gs.followResult(ctx, source, target, false, removed)
}

// RecordInteraction strengthens an existing edge. It never creates one: an
// interaction does not imply a follow relationship.
func (gs *graphService) RecordInteraction(ctx context.Context, source, target uuid.UUID, interaction types.InteractionType) error {
	if err := validatePair(source, target); err != nil {
		return err
	}
	delta, ok := interaction.WeightDelta()
	if !ok {
		return apierr.InvalidArgument(fmt.Errorf("unknown interaction type %q", interaction))
	}

	err := retryStore(ctx, gs.log, "increment weight", func() error {
		return gs.edgeRepo.IncrementWeight(ctx, nil, source, target, delta, interaction)
	})
	if err != nil {
		return err
	}

	gs.cache.Invalidate(ctx, source, target)
	return nil
}

// ApplyWeightDecay runs the periodic sweep. Passing non-positive values uses
// the configured defaults. Decay never changes set membership, so cached
// adjacency stays valid.
func (gs *graphService) ApplyWeightDecay(ctx context.Context, factor, floor float64) (int64, error) {
	if factor <= 0 || factor > 1 {
		factor = gs.cfg.DecayFactor
	}
	if floor <= 0 {
		floor = gs.cfg.DecayFloor
	}

	var affected int64
	err := retryStore(ctx, gs.log, "decay sweep", func() error {
		n, derr := gs.edgeRepo.DecayAll(ctx, nil, factor, floor)
		affected = n
		return derr
	})
	if err != nil {
		return 0, err
	}
	gs.log.Info("weight decay applied", "factor", factor, "floor", floor, "edges", affected)
	return affected, nil
}

func (gs *graphService) GetFollowers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FollowListEntry, error) {
	return gs.listEdgesWithUsers(ctx, userID, limit, offset, false)
}

func (gs *graphService) GetFollowing(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FollowListEntry, error) {
	return gs.listEdgesWithUsers(ctx, userID, limit, offset, true)
}

func (gs *graphService) listEdgesWithUsers(ctx context.Context, userID uuid.UUID, limit, offset int, outgoing bool) ([]*FollowListEntry, error) {
	if userID == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("user id required"))
	}
	if err := gs.validatePage(limit, offset); err != nil {
		return nil, err
	}

	var edges []*types.Edge
	err := retryStore(ctx, gs.log, "list edges", func() error {
		var lerr error
		if outgoing {
			edges, lerr = gs.edgeRepo.ListBySource(ctx, nil, userID, limit, offset)
		} else {
			edges, lerr = gs.edgeRepo.ListByTarget(ctx, nil, userID, limit, offset)
		}
		return lerr
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		if outgoing {
			ids = append(ids, e.TargetID)
		} else {
			ids = append(ids, e.SourceID)
		}
	}
	users, err := gs.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]*FollowListEntry, 0, len(edges))
	for _, e := range edges {
		id := e.SourceID
		if outgoing {
			id = e.TargetID
		}
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, &FollowListEntry{
			User:              u.AsNode(),
			Weight:            e.Weight,
			FollowedAt:        e.CreatedAt,
			LastInteractionAt: e.LastInteractionAt,
		})
	}
	return out, nil
}

func (gs *graphService) IsFollowing(ctx context.Context, source, target uuid.UUID) (bool, error) {
	if source == uuid.Nil || target == uuid.Nil {
		return false, apierr.InvalidArgument(fmt.Errorf("both ids required"))
	}
	var edge *types.Edge
	err := retryStore(ctx, gs.log, "find edge", func() error {
		var ferr error
		edge, ferr = gs.edgeRepo.Find(ctx, nil, source, target)
		return ferr
	})
	if err != nil {
		return false, err
	}
	return edge != nil, nil
}

// BulkCheckFollowing answers membership for every requested target in one
// query. It deliberately bypasses the adjacency cache: the answer feeds UI
// state that must match the store exactly.
func (gs *graphService) BulkCheckFollowing(ctx context.Context, source uuid.UUID, targets []uuid.UUID) (map[uuid.UUID]bool, error) {
	if source == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("source id required"))
	}
	if len(targets) > gs.cfg.MaxPageSize {
		return nil, apierr.InvalidArgument(fmt.Errorf("at most %d targets per check", gs.cfg.MaxPageSize))
	}

	result := make(map[uuid.UUID]bool, len(targets))
	for _, t := range targets {
		result[t] = false
	}
	if len(targets) == 0 {
		return result, nil
	}

	var following []uuid.UUID
	err := retryStore(ctx, gs.log, "filter following", func() error {
		var ferr error
		following, ferr = gs.edgeRepo.FilterFollowing(ctx, nil, source, targets)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	for _, id := range following {
		result[id] = true
	}
	return result, nil
}

func (gs *graphService) GetRelationshipStrength(ctx context.Context, a, b uuid.UUID) (*RelationshipStrength, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	var ab, ba *types.Edge
	err := retryStore(ctx, gs.log, "find edge pair", func() error {
		var ferr error
		if ab, ferr = gs.edgeRepo.Find(ctx, nil, a, b); ferr != nil {
			return ferr
		}
		ba, ferr = gs.edgeRepo.Find(ctx, nil, b, a)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	rel := &RelationshipStrength{
		IsFollowing:  ab != nil,
		IsFollowedBy: ba != nil,
	}
	rel.IsMutual = rel.IsFollowing && rel.IsFollowedBy

	var wab, wba float64
	if ab != nil {
		wab = ab.Weight
	}
	if ba != nil {
		wba = ba.Weight
	}
	combined := (wab + wba) / 2
	if combined > graphdomain.MaxWeight {
		combined = graphdomain.MaxWeight
	}
	rel.Weight = combined
	rel.Category = graphdomain.ClassifyStrength(ab != nil || ba != nil, rel.IsMutual, combined)
	rel.LastInteractionAt = latestInteraction(ab, ba)
	rel.Description = describeRelationship(rel)
	return rel, nil
}

// GetMutualConnections returns users both a and b follow, ordered by id so
// the result is symmetric in its arguments.
func (gs *graphService) GetMutualConnections(ctx context.Context, a, b uuid.UUID) ([]types.UserNode, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	aIDs, err := gs.edgeRepo.ListTargetIDs(ctx, nil, a, gs.cfg.MutualScanLimit)
	if err != nil {
		return nil, err
	}
	bIDs, err := gs.edgeRepo.ListTargetIDs(ctx, nil, b, gs.cfg.MutualScanLimit)
	if err != nil {
		return nil, err
	}
	return gs.resolveNodes(ctx, intersect(aIDs, bIDs))
}

// GetMutualFollowers returns users who follow both a and b.
func (gs *graphService) GetMutualFollowers(ctx context.Context, a, b uuid.UUID) ([]types.UserNode, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	aIDs, err := gs.edgeRepo.ListSourceIDs(ctx, nil, a, gs.cfg.MutualScanLimit)
	if err != nil {
		return nil, err
	}
	bIDs, err := gs.edgeRepo.ListSourceIDs(ctx, nil, b, gs.cfg.MutualScanLimit)
	if err != nil {
		return nil, err
	}
	return gs.resolveNodes(ctx, intersect(aIDs, bIDs))
}

// FollowingIDs is the read-through cached adjacency lookup used by the
// suggestion engine's exclusion set.
func (gs *graphService) FollowingIDs(ctx context.Context, id uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 || limit > gs.cfg.MutualScanLimit {
		limit = gs.cfg.MutualScanLimit
	}
	if ids, ok := gs.cache.GetFollowing(ctx, id); ok {
		if len(ids) > limit {
			ids = ids[:limit]
		}
		return ids, nil
	}

	var ids []uuid.UUID
	err := retryStore(ctx, gs.log, "list following ids", func() error {
		var lerr error
		ids, lerr = gs.edgeRepo.ListTargetIDs(ctx, nil, id, limit)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	gs.cache.StoreFollowing(ctx, id, ids)
	return ids, nil
}

func (gs *graphService) followResult(ctx context.Context, source, target uuid.UUID, isFollowing, changed bool) (*FollowResult, error) {
	users, err := gs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{source, target})
	if err != nil {
		return nil, err
	}
	res := &FollowResult{IsFollowing: isFollowing, Changed: changed}
	for _, u := range users {
		if u.ID == source {
			res.FollowingCount = u.FollowingCount
		}
		if u.ID == target {
			res.FollowerCount = u.FollowersCount
		}
	}
	return res, nil
}

func (gs *graphService) resolveNodes(ctx context.Context, ids []uuid.UUID) ([]types.UserNode, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	users, err := gs.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	nodes := make([]types.UserNode, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			nodes = append(nodes, u.AsNode())
		}
	}
	return nodes, nil
}

func (gs *graphService) validatePage(limit, offset int) error {
	if offset < 0 {
		return apierr.InvalidArgument(fmt.Errorf("offset must be >= 0"))
	}
	if limit < 1 || limit > gs.cfg.MaxPageSize {
		return apierr.InvalidArgument(fmt.Errorf("limit must be between 1 and %d", gs.cfg.MaxPageSize))
	}
	return nil
}

func validatePair(a, b uuid.UUID) error {
	if a == uuid.Nil || b == uuid.Nil {
		return apierr.InvalidArgument(fmt.Errorf("both user ids required"))
	}
	if a == b {
		return apierr.InvalidArgument(fmt.Errorf("source and target must differ"))
	}
	return nil
}

func intersect(a, b []uuid.UUID) []uuid.UUID {
	inA := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}
	var out []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := inA[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func latestInteraction(edges ...*types.Edge) *time.Time {
	var latest *time.Time
	for _, e := range edges {
		if e == nil || e.LastInteractionAt == nil {
			continue
		}
		if latest == nil || e.LastInteractionAt.After(*latest) {
			latest = e.LastInteractionAt
		}
	}
	return latest
}

func describeRelationship(rel *RelationshipStrength) string {
	switch {
	case rel.Category == types.StrengthNone:
		return "No connection"
	case rel.Category == types.StrengthStrong:
		return "Strong mutual connection"
	case rel.IsMutual:
		return "You follow each other"
	case rel.Category == types.StrengthModerate:
		return "Regular interaction"
	case rel.IsFollowing:
		return "You follow them"
	default:
		return "They follow you"
	}
}
