package app

import (
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/internal/clients/redis"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
	"github.com/campuslink/campuslink-backend/internal/services"
)

type Services struct {
	Graph        services.GraphService
	Suggestion   services.SuggestionService
	DecaySweeper *services.DecaySweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, cache services.AdjacencyCache) Services {
	graph := services.NewGraphService(db, log, reposet.Edge, reposet.User, cache, cfg.Graph)
	suggestion := services.NewSuggestionService(db, log, reposet.Edge, reposet.User, graph, cfg.Suggestion)
	sweeper := services.NewDecaySweeper(log, graph, cfg.DecayInterval)

	return Services{
		Graph:        graph,
		Suggestion:   suggestion,
		DecaySweeper: sweeper,
	}
}

// wireCache connects the Redis adjacency cache when REDIS_ADDR is set and
// falls back to the no-op cache otherwise; the engine behaves identically
// either way.
func wireCache(log *logger.Logger, cfg Config) (services.AdjacencyCache, func() error) {
	cache, err := redis.NewAdjacencyCache(log, cfg.CacheTTL)
	if err != nil {
		log.Warn("adjacency cache disabled", "reason", err)
		return services.NoopAdjacencyCache(), func() error { return nil }
	}
	return cache, cache.Close
}
