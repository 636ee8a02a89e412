package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/campuslink/campuslink-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, department string, year int) *types.User {
	tb.Helper()
	u := &types.User{
		ID:         uuid.New(),
		Email:      email,
		Name:       "Test User",
		Department: department,
		Year:       year,
		IsActive:   true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedEdge(tb testing.TB, ctx context.Context, tx *gorm.DB, source, target uuid.UUID, weight float64) *types.Edge {
	tb.Helper()
	e := &types.Edge{
		ID:       uuid.New(),
		SourceID: source,
		TargetID: target,
		Weight:   weight,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return e
}
