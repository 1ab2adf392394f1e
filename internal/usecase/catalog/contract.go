package catalog

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
)

// Repository defines the durable storage contract for collections, mappings and stats.
//
//nolint:interfacebloat // the catalog owns three of the four tables
type Repository interface {
	Create(ctx context.Context, col collection.Collection) error
	Get(ctx context.Context, name string) (collection.Collection, error)
	List(ctx context.Context, f collection.Filter) ([]collection.Collection, error)
	Update(ctx context.Context, name string,
		fn func(collection.Collection) (collection.Collection, error)) (collection.Collection, error)
	Delete(ctx context.Context, name string, policy collection.DeletePolicy) ([]string, error)

	InsertMapping(ctx context.Context, m mapping.Mapping) error
	DeleteMapping(ctx context.Context, key string) (bool, error)
	GetMapping(ctx context.Context, key string) (mapping.Mapping, error)
	GetMappings(ctx context.Context, keys []string) (map[string]mapping.Mapping, error)
	ListMappings(ctx context.Context, collection string, createdBefore int64, limit int) ([]mapping.Mapping, error)
	MoveMappings(ctx context.Context, source, target string, batch []mapping.Mapping) ([]mapping.Mapping, error)

	AppendStats(ctx context.Context, name string,
		next func(prev collection.Stats, now time.Time) collection.Stats) (collection.Stats, error)
	LatestStats(ctx context.Context, name string) (collection.Stats, error)
	StatsHistory(ctx context.Context, name string, limit int) ([]collection.Stats, error)
	PruneStats(ctx context.Context, before time.Time) (int64, error)
}
