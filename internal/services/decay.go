package services

import (
	"context"
	"time"

	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

// DecaySweeper runs the periodic weight decay so edge weight tracks recent
// interaction instead of all-time totals. The sweep is idempotent to re-run
// and tolerates partial failure; a failed tick is logged and retried on the
// next interval.
type DecaySweeper struct {
	log      *logger.Logger
	graph    GraphService
	interval time.Duration
}

func NewDecaySweeper(baseLog *logger.Logger, graph GraphService, interval time.Duration) *DecaySweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DecaySweeper{
		log:      baseLog.With("component", "DecaySweeper"),
		graph:    graph,
		interval: interval,
	}
}

func (ds *DecaySweeper) Start(ctx context.Context) {
	ds.log.Info("Starting decay sweeper", "interval", ds.interval)
	go ds.runLoop(ctx)
}

func (ds *DecaySweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(ds.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ds.log.Info("Decay sweeper stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			affected, err := ds.graph.ApplyWeightDecay(sweepCtx, 0, 0)
			cancel()
			if err != nil {
				ds.log.Warn("Decay sweep failed", "error", err)
				continue
			}
			ds.log.Info("Decay sweep complete", "edges", affected)
		}
	}
}
