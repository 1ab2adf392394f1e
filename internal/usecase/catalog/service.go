// Package catalog is the Collection Catalog: collection lifecycle, vector
// mappings and the per-collection statistics time series.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
	"github.com/kailas-cloud/vecspace/internal/metrics"
)

// Service implements the catalog operations on top of a Repository.
type Service struct {
	repo          Repository
	defaultMetric collection.Metric
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{
		repo:          repo,
		defaultMetric: collection.MetricCosine,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithDefaultMetric sets the metric applied when a spec leaves it empty.
func (s *Service) WithDefaultMetric(m collection.Metric) *Service {
	if m.IsValid() {
		s.defaultMetric = m
	}
	return s
}

// Create validates spec and persists a new collection with zero counters.
func (s *Service) Create(ctx context.Context, spec collection.Spec) (collection.Collection, error) {
	if spec.Metric == "" {
		spec.Metric = s.defaultMetric
	}
	col, err := collection.New(spec)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("create collection %q: %w", spec.Name, err)
	}
	if err := s.repo.Create(ctx, col); err != nil {
		observe("create", err)
		return collection.Collection{}, fmt.Errorf("create collection: %w", err)
	}
	observe("create", nil)
	s.logger.Info("Collection created",
		zap.String("collection", col.Name()),
		zap.Int("dimension", col.Dimension()),
		zap.String("metric", string(col.Metric())),
	)
	return col, nil
}

// Get returns a collection with its latest stats snapshot attached.
func (s *Service) Get(ctx context.Context, name string) (collection.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	st, err := s.repo.LatestStats(ctx, name)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("latest stats %q: %w", name, err)
	}
	return col.WithStats(st), nil
}

// List returns collections matching f in creation order.
func (s *Service) List(ctx context.Context, f collection.Filter) ([]collection.Collection, error) {
	cols, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// UpdateMetadata applies a partial update. Dimension and metric are immutable.
func (s *Service) UpdateMetadata(ctx context.Context, name string, p collection.Patch) (collection.Collection, error) {
	if p.IsEmpty() {
		return s.Get(ctx, name)
	}
	col, err := s.repo.Update(ctx, name, func(cur collection.Collection) (collection.Collection, error) {
		return cur.Apply(p)
	})
	observe("update", err)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("update collection %q: %w", name, err)
	}
	return col, nil
}

// Delete removes a collection according to policy and returns the namespaced
// keys of any mappings removed with it.
func (s *Service) Delete(ctx context.Context, name string, policy collection.DeletePolicy) ([]string, error) {
	keys, err := s.repo.Delete(ctx, name, policy)
	observe("delete", err)
	if err != nil {
		return nil, fmt.Errorf("delete collection: %w", err)
	}
	s.logger.Info("Collection deleted",
		zap.String("collection", name),
		zap.String("policy", string(policy)),
		zap.Int("mappings_removed", len(keys)),
	)
	return keys, nil
}

// RecordVectorMapping binds a namespaced key to its collection and bumps the counters atomically.
func (s *Service) RecordVectorMapping(
	ctx context.Context, collectionName, key string, metadata domain.Blob,
) (mapping.Mapping, error) {
	m, err := mapping.New(collectionName, key, metadata)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("record mapping: %w", err)
	}
	if err := s.repo.InsertMapping(ctx, m); err != nil {
		observe("record_mapping", err)
		return mapping.Mapping{}, fmt.Errorf("record mapping %q: %w", key, err)
	}
	observe("record_mapping", nil)
	return m, nil
}

// RemoveVectorMapping deletes a mapping. A missing mapping is a no-op and reports false.
func (s *Service) RemoveVectorMapping(ctx context.Context, key string) (bool, error) {
	removed, err := s.repo.DeleteMapping(ctx, key)
	observe("remove_mapping", err)
	if err != nil {
		return false, fmt.Errorf("remove mapping %q: %w", key, err)
	}
	return removed, nil
}

// GetCollectionFromNamespacedID resolves the owning collection of a key and
// verifies it still exists. A missing parent is a dangling mapping.
func (s *Service) GetCollectionFromNamespacedID(ctx context.Context, key string) (string, error) {
	name, err := namespace.Collection(key)
	if err != nil {
		return "", err
	}
	if _, err := s.repo.Get(ctx, name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Dangling namespaced key", zap.String("key", key), zap.String("collection", name))
		}
		return "", fmt.Errorf("resolve %q: %w", key, err)
	}
	return name, nil
}

// GetMapping returns the mapping of one namespaced key.
func (s *Service) GetMapping(ctx context.Context, key string) (mapping.Mapping, error) {
	m, err := s.repo.GetMapping(ctx, key)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

// MappingsByKeys batch-loads mappings; missing keys are absent from the result.
func (s *Service) MappingsByKeys(ctx context.Context, keys []string) (map[string]mapping.Mapping, error) {
	out, err := s.repo.GetMappings(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get mappings: %w", err)
	}
	return out, nil
}

// ListMappings returns up to limit mappings of a collection in creation order,
// skipping those created after createdBefore when it is positive.
func (s *Service) ListMappings(
	ctx context.Context, name string, createdBefore int64, limit int,
) ([]mapping.Mapping, error) {
	out, err := s.repo.ListMappings(ctx, name, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list mappings %q: %w", name, err)
	}
	return out, nil
}

// MoveMappings re-homes one batch of mappings from source to target in a single transaction.
func (s *Service) MoveMappings(
	ctx context.Context, source, target string, batch []mapping.Mapping,
) ([]mapping.Mapping, error) {
	moved, err := s.repo.MoveMappings(ctx, source, target, batch)
	observe("move_mappings", err)
	if err != nil {
		return nil, fmt.Errorf("move %s -> %s: %w", source, target, err)
	}
	return moved, nil
}

// RecordSearchMetric appends a snapshot folding one search into the day's running stats.
func (s *Service) RecordSearchMetric(ctx context.Context, name string, latencyMs, gnnImprovement float64) error {
	_, err := s.repo.AppendStats(ctx, name, func(prev collection.Stats, now time.Time) collection.Stats {
		return prev.RecordSearch(now, latencyMs, gnnImprovement)
	})
	observe("record_search", err)
	if err != nil {
		return fmt.Errorf("record search metric %q: %w", name, err)
	}
	return nil
}

// Snapshot appends a periodic point carrying live counters and the current tier distribution.
func (s *Service) Snapshot(ctx context.Context, name string) (collection.Stats, error) {
	st, err := s.repo.AppendStats(ctx, name, func(prev collection.Stats, now time.Time) collection.Stats {
		return prev.Tick(now)
	})
	if err != nil {
		return collection.Stats{}, fmt.Errorf("snapshot %q: %w", name, err)
	}
	metrics.StatsSnapshotsTotal.Inc()
	return st, nil
}

// CollectionStats returns the latest snapshot merged with live counters.
func (s *Service) CollectionStats(ctx context.Context, name string) (collection.Stats, error) {
	col, err := s.Get(ctx, name)
	if err != nil {
		return collection.Stats{}, err
	}
	return col.Stats(), nil
}

// StatsHistory returns up to limit snapshots, newest first.
func (s *Service) StatsHistory(ctx context.Context, name string, limit int) ([]collection.Stats, error) {
	if _, err := s.repo.Get(ctx, name); err != nil {
		return nil, fmt.Errorf("stats history: %w", err)
	}
	out, err := s.repo.StatsHistory(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("stats history %q: %w", name, err)
	}
	return out, nil
}

// AggregateStats returns the latest stats of each named collection (all when names is empty).
// Collections without snapshots report zero-valued stats with live counters.
func (s *Service) AggregateStats(ctx context.Context, names []string) (map[string]collection.Stats, error) {
	if len(names) == 0 {
		cols, err := s.repo.List(ctx, collection.Filter{})
		if err != nil {
			return nil, fmt.Errorf("aggregate stats: %w", err)
		}
		names = make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name()
		}
	}

	out := make(map[string]collection.Stats, len(names))
	for _, name := range names {
		st, err := s.CollectionStats(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("aggregate stats: %w", err)
		}
		out[name] = st
	}
	return out, nil
}

// PruneSnapshots deletes snapshots older than retention, keeping each collection's latest.
func (s *Service) PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.PruneStats(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}

func observe(op string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStorageFailure):
		status = "storage_error"
	default:
		status = "rejected"
	}
	metrics.CatalogOpsTotal.WithLabelValues(op, status).Inc()
}
