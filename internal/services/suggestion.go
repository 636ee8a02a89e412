package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/internal/data/repos"
	types "github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// SuggestionConfig bounds the friends-of-friends traversal.
type SuggestionConfig struct {
	FirstDegreeLimit  int
	SecondDegreeLimit int
	ExpandConcurrency int
	DefaultLimit      int
	MaxLimit          int
	FollowerBonusCap  int
	FollowerBonusPer  int
}

func (c SuggestionConfig) withDefaults() SuggestionConfig {
	if c.FirstDegreeLimit <= 0 {
		c.FirstDegreeLimit = 100
	}
	if c.SecondDegreeLimit <= 0 {
		c.SecondDegreeLimit = 50
	}
	if c.ExpandConcurrency <= 0 {
		c.ExpandConcurrency = 8
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if c.FollowerBonusCap <= 0 {
		c.FollowerBonusCap = 5
	}
	if c.FollowerBonusPer <= 0 {
		c.FollowerBonusPer = 100
	}
	return c
}

type SuggestionFilters struct {
	SameDepartment bool `json:"same_department"`
	SameYear       bool `json:"same_year"`
}

type Suggestion struct {
	User              types.UserNode `json:"user"`
	Score             int            `json:"score"`
	MutualConnections int            `json:"mutual_connections"`
	Reason            string         `json:"reason"`
}

// SuggestionService ranks friends-of-friends candidates, backfilling from the
// caller's department when the social neighborhood is too sparse. The scoring
// is a tunable heuristic, not a learned ranking.
type SuggestionService interface {
	GetSuggestions(ctx context.Context, userID uuid.UUID, filters SuggestionFilters, limit int) ([]*Suggestion, error)
}

type suggestionService struct {
	db       *gorm.DB
	log      *logger.Logger
	edgeRepo repos.EdgeRepo
	userRepo repos.UserRepo
	graph    GraphService
	cfg      SuggestionConfig
}

func NewSuggestionService(
	db *gorm.DB,
	log *logger.Logger,
	edgeRepo repos.EdgeRepo,
	userRepo repos.UserRepo,
	graph GraphService,
	cfg SuggestionConfig,
) SuggestionService {
	return &suggestionService{
		db:       db,
		log:      log.With("service", "SuggestionService"),
		edgeRepo: edgeRepo,
		userRepo: userRepo,
		graph:    graph,
		cfg:      cfg.withDefaults(),
	}
}

type candidate struct {
	id         uuid.UUID
	mutuals    int
	connectors []uuid.UUID
	fallback   bool
}

func (ss *suggestionService) GetSuggestions(ctx context.Context, userID uuid.UUID, filters SuggestionFilters, limit int) ([]*Suggestion, error) {
	if userID == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("user id required"))
	}
	if limit <= 0 {
		limit = ss.cfg.DefaultLimit
	}
	if limit > ss.cfg.MaxLimit {
		limit = ss.cfg.MaxLimit
	}

	caller, err := ss.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, apierr.NotFound(fmt.Errorf("user %s does not exist", userID))
	}

	// Exclusion set: the caller plus everyone already followed. The cached
	// adjacency set is fine here; a stale entry only means a suggestion the
	// client already follows, which it can drop.
	followed, err := ss.graph.FollowingIDs(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	excluded := make(map[uuid.UUID]struct{}, len(followed)+1)
	excluded[userID] = struct{}{}
	for _, id := range followed {
		excluded[id] = struct{}{}
	}

	candidates, err := ss.expandSecondDegree(ctx, userID, excluded)
	if err != nil {
		return nil, err
	}

	// Cold-start guard: when friends-of-friends cannot fill the request,
	// backfill from the caller's department by follower count.
	if len(candidates) < limit && caller.Department != "" {
		if err := ss.backfillFromDepartment(ctx, caller, filters, excluded, candidates, limit); err != nil {
			return nil, err
		}
	}

	return ss.rank(ctx, caller, filters, candidates, limit)
}

// expandSecondDegree walks one hop out from the caller's strongest follows.
// Neighbor fetches run concurrently but bounded, and the group context stops
// the walk as soon as the caller's deadline is hit.
func (ss *suggestionService) expandSecondDegree(ctx context.Context, userID uuid.UUID, excluded map[uuid.UUID]struct{}) (map[uuid.UUID]*candidate, error) {
	firstDegree, err := ss.edgeRepo.ListTargetIDs(ctx, nil, userID, ss.cfg.FirstDegreeLimit)
	if err != nil {
		return nil, err
	}

	perNeighbor := make([][]uuid.UUID, len(firstDegree))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ss.cfg.ExpandConcurrency)
	var mu sync.Mutex
	for i, neighbor := range firstDegree {
		i, neighbor := i, neighbor
		g.Go(func() error {
			ids, lerr := ss.edgeRepo.ListTargetIDs(gctx, nil, neighbor, ss.cfg.SecondDegreeLimit)
			if lerr != nil {
				return lerr
			}
			mu.Lock()
			perNeighbor[i] = ids
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in first-degree order so accumulation is deterministic for
	// fixed input data.
	candidates := make(map[uuid.UUID]*candidate)
	for i, neighbor := range firstDegree {
		for _, id := range perNeighbor[i] {
			if _, skip := excluded[id]; skip {
				continue
			}
			c, ok := candidates[id]
			if !ok {
				c = &candidate{id: id}
				candidates[id] = c
			}
			c.mutuals++
			c.connectors = append(c.connectors, neighbor)
		}
	}
	return candidates, nil
}

func (ss *suggestionService) backfillFromDepartment(
	ctx context.Context,
	caller *types.User,
	filters SuggestionFilters,
	excluded map[uuid.UUID]struct{},
	candidates map[uuid.UUID]*candidate,
	limit int,
) error {
	exclude := make([]uuid.UUID, 0, len(excluded)+len(candidates))
	for id := range excluded {
		exclude = append(exclude, id)
	}
	for id := range candidates {
		exclude = append(exclude, id)
	}

	year := 0
	if filters.SameYear {
		year = caller.Year
	}
	fallback, err := ss.userRepo.ListByDepartment(ctx, nil, caller.Department, year, exclude, limit)
	if err != nil {
		return err
	}
	for _, u := range fallback {
		candidates[u.ID] = &candidate{id: u.ID, fallback: true}
	}
	return nil
}

func (ss *suggestionService) rank(ctx context.Context, caller *types.User, filters SuggestionFilters, candidates map[uuid.UUID]*candidate, limit int) ([]*Suggestion, error) {
	if len(candidates) == 0 {
		return []*Suggestion{}, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	users, err := ss.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	scored := make([]*Suggestion, 0, len(users))
	connectorIDs := make(map[uuid.UUID]struct{})
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		if filters.SameDepartment && u.Department != caller.Department {
			continue
		}
		if filters.SameYear && u.Year != caller.Year {
			continue
		}
		c := candidates[u.ID]
		score := scoreCandidate(caller, u, c, ss.cfg)
		scored = append(scored, &Suggestion{
			User:              u.AsNode(),
			Score:             score,
			MutualConnections: c.mutuals,
		})
		if len(c.connectors) > 0 {
			connectorIDs[c.connectors[0]] = struct{}{}
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].MutualConnections != scored[j].MutualConnections {
			return scored[i].MutualConnections > scored[j].MutualConnections
		}
		return scored[i].User.ID.String() < scored[j].User.ID.String()
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	names, err := ss.connectorNames(ctx, connectorIDs)
	if err != nil {
		return nil, err
	}
	for _, s := range scored {
		s.Reason = ss.reason(caller, s, candidates[s.User.ID], names)
	}
	return scored, nil
}

func scoreCandidate(caller, u *types.User, c *candidate, cfg SuggestionConfig) int {
	score := 3 * c.mutuals

	sameDept := u.Department != "" && u.Department == caller.Department
	sameYear := u.Year != 0 && u.Year == caller.Year
	switch {
	case sameDept && sameYear:
		score += 5
	case sameDept:
		score += 3
	case sameYear:
		score += 2
	}
	if u.College != "" && u.College == caller.College {
		score++
	}

	bonus := u.FollowersCount / cfg.FollowerBonusPer
	if bonus > cfg.FollowerBonusCap {
		bonus = cfg.FollowerBonusCap
	}
	score += bonus

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (ss *suggestionService) connectorNames(ctx context.Context, connectorIDs map[uuid.UUID]struct{}) (map[uuid.UUID]string, error) {
	if len(connectorIDs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(connectorIDs))
	for id := range connectorIDs {
		ids = append(ids, id)
	}
	users, err := ss.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// Mutual-connection names take priority over department/year matches.
func (ss *suggestionService) reason(caller *types.User, s *Suggestion, c *candidate, names map[uuid.UUID]string) string {
	if c.mutuals > 0 && len(c.connectors) > 0 {
		name := names[c.connectors[0]]
		if name == "" {
			name = "someone you follow"
		}
		if c.mutuals == 1 {
			return fmt.Sprintf("Followed by %s", name)
		}
		return fmt.Sprintf("Followed by %s and %d others", name, c.mutuals-1)
	}

	sameDept := s.User.Department != "" && s.User.Department == caller.Department
	sameYear := s.User.Year != 0 && s.User.Year == caller.Year
	switch {
	case sameDept && sameYear:
		return fmt.Sprintf("Also studies %s in your year", s.User.Department)
	case sameDept:
		return fmt.Sprintf("Also studies %s", s.User.Department)
	case sameYear:
		return "In your year"
	default:
		return "Popular on campus"
	}
}
