package search

import (
	"context"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
)

// Catalog resolves targets, enriches hits and records per-collection search stats.
type Catalog interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context, f domcol.Filter) ([]domcol.Collection, error)
	MappingsByKeys(ctx context.Context, keys []string) (map[string]mapping.Mapping, error)
	RecordSearchMetric(ctx context.Context, name string, latencyMs, gnnImprovement float64) error
}

// Engine runs raw similarity search restricted to one collection's namespace.
type Engine interface {
	Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
