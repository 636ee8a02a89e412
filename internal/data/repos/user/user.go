package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// UserRepo is the directory the graph core reads user attributes from. The
// core never creates or deletes users; the only write it performs is the
// best-effort adjustment of the denormalized follow counters.
type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error)
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	ListByDepartment(ctx context.Context, tx *gorm.DB, department string, year int, exclude []uuid.UUID, limit int) ([]*types.User, error)
	AdjustFollowCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, followersDelta, followingDelta int) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ur.db
}

// GetByID returns nil without error when the user does not exist.
func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	var u types.User
	err := ur.conn(tx).WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(ids) == 0 {
		return results, nil
	}
	err := ur.conn(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	return results, nil
}

func (ur *userRepo) Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	var n int64
	err := ur.conn(tx).WithContext(ctx).Model(&types.User{}).
		Where("id = ?", id).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

// ListByDepartment feeds the cold-start suggestion fallback: active users in
// a department ordered by follower count. year > 0 narrows to that year;
// exclude is applied in the query so pagination stays stable.
func (ur *userRepo) ListByDepartment(ctx context.Context, tx *gorm.DB, department string, year int, exclude []uuid.UUID, limit int) ([]*types.User, error) {
	q := ur.conn(tx).WithContext(ctx).
		Where("department = ? AND is_active = ?", department, true)
	if year > 0 {
		q = q.Where("year = ?", year)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var results []*types.User
	err := q.Order("followers_count DESC, created_at ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("list users by department: %w", err)
	}
	return results, nil
}

// AdjustFollowCounts applies atomic deltas to the denormalized counters,
// floored at zero. The counters are a cache of the edge set, not coupled to
// it transactionally; the floor keeps a transient mismatch from going
// negative.
func (ur *userRepo) AdjustFollowCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, followersDelta, followingDelta int) error {
	if followersDelta == 0 && followingDelta == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if followersDelta != 0 {
		updates["followers_count"] = gorm.Expr("GREATEST(0, followers_count + ?)", followersDelta)
	}
	if followingDelta != 0 {
		updates["following_count"] = gorm.Expr("GREATEST(0, following_count + ?)", followingDelta)
	}
	err := ur.conn(tx).WithContext(ctx).Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("adjust follow counts: %w", err)
	}
	return nil
}
