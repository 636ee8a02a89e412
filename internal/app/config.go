package app

import (
	"strings"
	"time"

	"github.com/campuslink/campuslink-backend/internal/platform/envutil"
	"github.com/campuslink/campuslink-backend/internal/services"
)

type Config struct {
	ServiceName   string
	Environment   string
	JWTSecretKey  string
	AllowOrigins  []string
	CacheTTL      time.Duration
	DecayInterval time.Duration
	Graph         services.GraphConfig
	Suggestion    services.SuggestionConfig
}

func LoadConfig() Config {
	return Config{
		ServiceName:   envutil.Str("SERVICE_NAME", "campuslink"),
		Environment:   envutil.Str("ENVIRONMENT", "development"),
		JWTSecretKey:  envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		AllowOrigins:  splitOrigins(envutil.Str("CORS_ALLOW_ORIGINS", "")),
		CacheTTL:      envutil.Duration("ADJACENCY_CACHE_TTL", 5*time.Minute),
		DecayInterval: envutil.Duration("DECAY_INTERVAL", 24*time.Hour),
		Graph: services.GraphConfig{
			MaxPageSize:     envutil.Int("GRAPH_MAX_PAGE_SIZE", 100),
			MutualScanLimit: envutil.Int("GRAPH_MUTUAL_SCAN_LIMIT", 1000),
			DecayFactor:     envutil.Float("DECAY_FACTOR", 0.99),
			DecayFloor:      envutil.Float("DECAY_FLOOR", 0.05),
		},
		Suggestion: services.SuggestionConfig{
			FirstDegreeLimit:  envutil.Int("SUGGEST_FIRST_DEGREE_LIMIT", 100),
			SecondDegreeLimit: envutil.Int("SUGGEST_SECOND_DEGREE_LIMIT", 50),
			ExpandConcurrency: envutil.Int("SUGGEST_EXPAND_CONCURRENCY", 8),
			DefaultLimit:      envutil.Int("SUGGEST_DEFAULT_LIMIT", 10),
			MaxLimit:          envutil.Int("SUGGEST_MAX_LIMIT", 50),
		},
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
