package services

import (
	"context"

	"github.com/google/uuid"
)

// AdjacencyCache is an advisory read accelerator for following id sets.
// Implementations may lose or expire entries at any time; callers must
// behave identically with the no-op implementation.
type AdjacencyCache interface {
	GetFollowing(ctx context.Context, id uuid.UUID) ([]uuid.UUID, bool)
	StoreFollowing(ctx context.Context, id uuid.UUID, following []uuid.UUID)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

type noopAdjacencyCache struct{}

func (noopAdjacencyCache) GetFollowing(context.Context, uuid.UUID) ([]uuid.UUID, bool) {
	return nil, false
}
func (noopAdjacencyCache) StoreFollowing(context.Context, uuid.UUID, []uuid.UUID) {}
func (noopAdjacencyCache) Invalidate(context.Context, ...uuid.UUID)               {}

// NoopAdjacencyCache is used when Redis is not configured.
func NoopAdjacencyCache() AdjacencyCache { return noopAdjacencyCache{} }
