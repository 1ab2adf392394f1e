package manager

import (
	"context"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
)

// Catalog is the collection catalog surface the facade drives.
//
//nolint:interfacebloat // the facade re-exports the catalog
type Catalog interface {
	Create(ctx context.Context, spec domcol.Spec) (domcol.Collection, error)
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context, f domcol.Filter) ([]domcol.Collection, error)
	UpdateMetadata(ctx context.Context, name string, p domcol.Patch) (domcol.Collection, error)
	Delete(ctx context.Context, name string, policy domcol.DeletePolicy) ([]string, error)
	RecordVectorMapping(ctx context.Context, collection, key string, metadata domain.Blob) (mapping.Mapping, error)
	RemoveVectorMapping(ctx context.Context, key string) (bool, error)
	GetMapping(ctx context.Context, key string) (mapping.Mapping, error)
	GetCollectionFromNamespacedID(ctx context.Context, key string) (string, error)
	CollectionStats(ctx context.Context, name string) (domcol.Stats, error)
	StatsHistory(ctx context.Context, name string, limit int) ([]domcol.Stats, error)
	AggregateStats(ctx context.Context, names []string) (map[string]domcol.Stats, error)
}

// Migrations is the migration engine surface.
type Migrations interface {
	Enqueue(ctx context.Context, source, target string) (dommig.Task, error)
	Status(ctx context.Context, id string) (dommig.Task, error)
	List(ctx context.Context, limit int) ([]dommig.Task, error)
	ActiveFor(ctx context.Context, name string) (bool, error)
}

// Searcher routes similarity searches.
type Searcher interface {
	Search(ctx context.Context, req domsearch.Request) (domsearch.Response, error)
}

// Engine writes raw vectors to the shared vector engine.
type Engine interface {
	Insert(ctx context.Context, rec domain.VectorRecord) error
	Delete(ctx context.Context, key string) error
}

// Embedder vectorizes document text on insert.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
