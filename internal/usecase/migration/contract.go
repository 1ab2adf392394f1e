package migration

import (
	"context"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
)

// Repository defines the durable task queue contract.
type Repository interface {
	Create(ctx context.Context, t dommig.Task) error
	Get(ctx context.Context, id string) (dommig.Task, error)
	List(ctx context.Context, limit int) ([]dommig.Task, error)
	ListActive(ctx context.Context) ([]dommig.Task, error)
	ClaimNext(ctx context.Context) (dommig.Task, bool, error)
	UpdateProgress(ctx context.Context, id string, moved int64, progress int) error
	Complete(ctx context.Context, id string, moved int64) error
	Fail(ctx context.Context, id string, moved int64, msg string) error
	FailRunning(ctx context.Context, msg string) ([]string, error)
}

// Catalog is the subset of the collection catalog a migration drives.
type Catalog interface {
	Get(ctx context.Context, name string) (collection.Collection, error)
	ListMappings(ctx context.Context, name string, createdBefore int64, limit int) ([]mapping.Mapping, error)
	MoveMappings(ctx context.Context, source, target string, batch []mapping.Mapping) ([]mapping.Mapping, error)
}

// Vectors re-keys raw vectors in the shared engine.
type Vectors interface {
	Fetch(ctx context.Context, key string) (domain.VectorRecord, error)
	Insert(ctx context.Context, rec domain.VectorRecord) error
	Delete(ctx context.Context, key string) error
}
