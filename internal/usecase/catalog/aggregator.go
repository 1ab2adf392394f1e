package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// Aggregator appends a stats snapshot for every collection on a fixed tick and
// applies the snapshot retention policy.
type Aggregator struct {
	svc       *Service
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewAggregator creates the periodic stats aggregator. retention <= 0 disables pruning.
func NewAggregator(svc *Service, interval, retention time.Duration, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{svc: svc, interval: interval, retention: retention, logger: logger}
}

// Run ticks until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context) {
	if a.interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick snapshots every collection once and prunes expired snapshots.
// Failures are logged per collection and never stop the tick.
func (a *Aggregator) Tick(ctx context.Context) {
	cols, err := a.svc.List(ctx, collection.Filter{})
	if err != nil {
		a.logger.Error("Stats tick: list collections failed", zap.Error(err))
		return
	}

	snapshots := 0
	for _, c := range cols {
		if _, err := a.svc.Snapshot(ctx, c.Name()); err != nil {
			// deleted between List and Snapshot
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			a.logger.Warn("Stats tick: snapshot failed", zap.String("collection", c.Name()), zap.Error(err))
			continue
		}
		snapshots++
	}

	var pruned int64
	if a.retention > 0 {
		if pruned, err = a.svc.PruneSnapshots(ctx, a.retention); err != nil {
			a.logger.Warn("Stats tick: prune failed", zap.Error(err))
		}
	}

	a.logger.Debug("Stats tick completed",
		zap.Int("collections", len(cols)),
		zap.Int("snapshots", snapshots),
		zap.Int64("pruned", pruned),
	)
}
