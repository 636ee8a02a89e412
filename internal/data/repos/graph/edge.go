package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/campuslink/campuslink-backend/internal/domain"
	graphdomain "github.com/campuslink/campuslink-backend/internal/domain/graph"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// ErrSelfEdge is returned when source and target are the same user.
var ErrSelfEdge = errors.New("self edge not allowed")

// EdgeRepo owns the directed follow edges. The (source_id, target_id) pair is
// covered by a composite unique index; single-column indexes on source_id and
// target_id back the two listing directions.
type EdgeRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (*types.Edge, bool, error)
	Delete(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (bool, error)
	Find(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (*types.Edge, error)
	ListBySource(ctx context.Context, tx *gorm.DB, source uuid.UUID, limit, offset int) ([]*types.Edge, error)
	ListByTarget(ctx context.Context, tx *gorm.DB, target uuid.UUID, limit, offset int) ([]*types.Edge, error)
	CountBySource(ctx context.Context, tx *gorm.DB, source uuid.UUID) (int64, error)
	CountByTarget(ctx context.Context, tx *gorm.DB, target uuid.UUID) (int64, error)
	ListTargetIDs(ctx context.Context, tx *gorm.DB, source uuid.UUID, limit int) ([]uuid.UUID, error)
	ListSourceIDs(ctx context.Context, tx *gorm.DB, target uuid.UUID, limit int) ([]uuid.UUID, error)
	FilterFollowing(ctx context.Context, tx *gorm.DB, source uuid.UUID, targets []uuid.UUID) ([]uuid.UUID, error)
	IncrementWeight(ctx context.Context, tx *gorm.DB, source, target uuid.UUID, delta float64, interaction types.InteractionType) error
	DecayAll(ctx context.Context, tx *gorm.DB, factor, floor float64) (int64, error)
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: baseLog.With("repo", "EdgeRepo")}
}

func (er *edgeRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return er.db
}

// Upsert creates the edge if the pair is new and reports whether it did.
// An existing edge is returned unchanged; its weight is never overwritten.
func (er *edgeRepo) Upsert(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (*types.Edge, bool, error) {
	if source == target {
		return nil, false, ErrSelfEdge
	}

	edge := &types.Edge{
		ID:       uuid.New(),
		SourceID: source,
		TargetID: target,
		Weight:   graphdomain.InitialWeight,
	}
	res := er.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(edge)
	if res.Error != nil {
		return nil, false, fmt.Errorf("upsert edge: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return edge, true, nil
	}

	existing, err := er.Find(ctx, tx, source, target)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Lost a race with a concurrent unfollow; treat as created-elsewhere.
		return edge, false, nil
	}
	return existing, false, nil
}

func (er *edgeRepo) Delete(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (bool, error) {
	res := er.conn(tx).WithContext(ctx).
		Where("source_id = ? AND target_id = ?", source, target).
		Delete(&types.Edge{})
	if res.Error != nil {
		return false, fmt.Errorf("delete edge: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Find returns nil without error when no edge exists for the pair.
func (er *edgeRepo) Find(ctx context.Context, tx *gorm.DB, source, target uuid.UUID) (*types.Edge, error) {
	var edge types.Edge
	err := er.conn(tx).WithContext(ctx).
		Where("source_id = ? AND target_id = ?", source, target).
		First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find edge: %w", err)
	}
	return &edge, nil
}

func (er *edgeRepo) ListBySource(ctx context.Context, tx *gorm.DB, source uuid.UUID, limit, offset int) ([]*types.Edge, error) {
	var edges []*types.Edge
	err := er.conn(tx).WithContext(ctx).
		Where("source_id = ?", source).
		Order("weight DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list edges by source: %w", err)
	}
	return edges, nil
}

func (er *edgeRepo) ListByTarget(ctx context.Context, tx *gorm.DB, target uuid.UUID, limit, offset int) ([]*types.Edge, error) {
	var edges []*types.Edge
	err := er.conn(tx).WithContext(ctx).
		Where("target_id = ?", target).
		Order("weight DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list edges by target: %w", err)
	}
	return edges, nil
}

func (er *edgeRepo) CountBySource(ctx context.Context, tx *gorm.DB, source uuid.UUID) (int64, error) {
	var n int64
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("source_id = ?", source).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count edges by source: %w", err)
	}
	return n, nil
}

func (er *edgeRepo) CountByTarget(ctx context.Context, tx *gorm.DB, target uuid.UUID) (int64, error) {
	var n int64
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("target_id = ?", target).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count edges by target: %w", err)
	}
	return n, nil
}

func (er *edgeRepo) ListTargetIDs(ctx context.Context, tx *gorm.DB, source uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("source_id = ?", source).
		Order("weight DESC, created_at DESC").
		Limit(limit).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list target ids: %w", err)
	}
	return ids, nil
}

func (er *edgeRepo) ListSourceIDs(ctx context.Context, tx *gorm.DB, target uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("target_id = ?", target).
		Order("weight DESC, created_at DESC").
		Limit(limit).
		Pluck("source_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list source ids: %w", err)
	}
	return ids, nil
}

// FilterFollowing returns the subset of targets that source follows, in one
// query, for bulk existence checks.
func (er *edgeRepo) FilterFollowing(ctx context.Context, tx *gorm.DB, source uuid.UUID, targets []uuid.UUID) ([]uuid.UUID, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("source_id = ? AND target_id IN ?", source, targets).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("filter following: %w", err)
	}
	return ids, nil
}

// IncrementWeight bumps weight (clamped at the cap) and the matching
// interaction counter in a single UPDATE so concurrent interactions on the
// same edge never lose updates. Missing edges are a silent no-op.
func (er *edgeRepo) IncrementWeight(ctx context.Context, tx *gorm.DB, source, target uuid.UUID, delta float64, interaction types.InteractionType) error {
	col, ok := counterColumn(interaction)
	if !ok {
		return fmt.Errorf("unknown interaction type %q", interaction)
	}
	now := time.Now().UTC()
	err := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("source_id = ? AND target_id = ?", source, target).
		Updates(map[string]interface{}{
			"weight":              gorm.Expr("LEAST(?, weight + ?)", graphdomain.MaxWeight, delta),
			col:                   gorm.Expr(col + " + 1"),
			"last_interaction_at": now,
			"updated_at":          now,
		}).Error
	if err != nil {
		return fmt.Errorf("increment edge weight: %w", err)
	}
	return nil
}

// DecayAll multiplies every weight above the floor toward it in one
// statement and returns the number of edges touched. Safe to re-run.
func (er *edgeRepo) DecayAll(ctx context.Context, tx *gorm.DB, factor, floor float64) (int64, error) {
	res := er.conn(tx).WithContext(ctx).Model(&types.Edge{}).
		Where("weight > ?", floor).
		Updates(map[string]interface{}{
			"weight":     gorm.Expr("GREATEST(?, weight * ?)", floor, factor),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("decay edges: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func counterColumn(t types.InteractionType) (string, bool) {
	switch t {
	case types.InteractionLike:
		return "like_count", true
	case types.InteractionComment:
		return "comment_count", true
	case types.InteractionMessage:
		return "message_count", true
	case types.InteractionShare:
		return "share_count", true
	case types.InteractionMention:
		return "mention_count", true
	default:
		return "", false
	}
}
