package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// AdjacencyCache keeps recently-read following id sets under a TTL. It is a
// read accelerator only: every lookup can miss, and write-path decisions are
// never made from it.
type AdjacencyCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewAdjacencyCache connects to REDIS_ADDR and pings it once so a
// misconfigured address fails at boot rather than on first request.
func NewAdjacencyCache(log *logger.Logger, ttl time.Duration) (*AdjacencyCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &AdjacencyCache{
		log: log.With("service", "AdjacencyCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func followingKey(id uuid.UUID) string { return "adj:following:" + id.String() }

// GetFollowing returns the cached following set for id, with a hit flag.
// An empty followed set is a valid hit; it is stored with a sentinel member.
func (ac *AdjacencyCache) GetFollowing(ctx context.Context, id uuid.UUID) ([]uuid.UUID, bool) {
	if ac == nil || ac.rdb == nil {
		return nil, false
	}
	members, err := ac.rdb.SMembers(ctx, followingKey(id)).Result()
	if err != nil {
		ac.log.Debug("adjacency cache read failed", "error", err)
		return nil, false
	}
	if len(members) == 0 {
		return nil, false
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if m == sentinelEmpty {
			continue
		}
		parsed, perr := uuid.Parse(m)
		if perr != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, true
}

// A set with no members cannot be distinguished from a missing key, so empty
// adjacency is cached with a single sentinel member.
const sentinelEmpty = "-"

func (ac *AdjacencyCache) StoreFollowing(ctx context.Context, id uuid.UUID, following []uuid.UUID) {
	if ac == nil || ac.rdb == nil {
		return
	}
	key := followingKey(id)
	members := make([]interface{}, 0, len(following)+1)
	members = append(members, sentinelEmpty)
	for _, f := range following {
		members = append(members, f.String())
	}

	pipe := ac.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, ac.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		ac.log.Debug("adjacency cache store failed", "error", err)
	}
}

// Invalidate drops the entries for every listed user. Called on any edge
// mutation for both endpoints of the edge.
func (ac *AdjacencyCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if ac == nil || ac.rdb == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, followingKey(id))
	}
	if err := ac.rdb.Del(ctx, keys...).Err(); err != nil {
		ac.log.Debug("adjacency cache invalidate failed", "error", err)
	}
}

func (ac *AdjacencyCache) Close() error {
	if ac == nil || ac.rdb == nil {
		return nil
	}
	return ac.rdb.Close()
}
