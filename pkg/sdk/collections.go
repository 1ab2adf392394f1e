package vecspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// CollectionService manages collections.
type CollectionService struct {
	mgr managerUseCase
	obs *observer
}

// Create creates a new collection of the given vector dimension.
func (s *CollectionService) Create(
	ctx context.Context, name string, dim int, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.create", start, err) }()

	col, err := s.mgr.CreateCollection(ctx, buildSpec(name, dim, opts))
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("create collection: %w", err)
	}
	return fromInternalCollection(col), nil
}

// Ensure creates a collection if it does not exist.
// If it already exists, returns its info; a different dimension is an error.
func (s *CollectionService) Ensure(
	ctx context.Context, name string, dim int, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.ensure", start, err) }()

	col, err := s.mgr.CreateCollection(ctx, buildSpec(name, dim, opts))
	if err == nil {
		return fromInternalCollection(col), nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return CollectionInfo{}, fmt.Errorf("ensure collection: %w", err)
	}

	existing, err := s.mgr.GetCollection(ctx, name)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("ensure collection: %w", err)
	}
	if existing.Dimension() != dim {
		return CollectionInfo{}, fmt.Errorf("ensure collection: %w",
			domain.NewDimensionMismatch(name, existing.Dimension(), dim))
	}
	return fromInternalCollection(existing), nil
}

// Get retrieves collection metadata with its latest stats.
func (s *CollectionService) Get(
	ctx context.Context, name string,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.get", start, err) }()

	col, err := s.mgr.GetCollection(ctx, name)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("get collection: %w", err)
	}
	return fromInternalCollection(col), nil
}

// List returns collections matching opts, ordered by name.
func (s *CollectionService) List(
	ctx context.Context, opts ListOptions,
) (_ []CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.list", start, err) }()

	cols, err := s.mgr.ListCollections(ctx, domcol.Filter{
		Owner:   opts.Owner,
		Tag:     opts.Tag,
		Privacy: domcol.Privacy(opts.Privacy),
		Offset:  opts.Offset,
		Limit:   opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]CollectionInfo, len(cols))
	for i, c := range cols {
		out[i] = fromInternalCollection(c)
	}
	return out, nil
}

// Update applies a partial metadata update.
func (s *CollectionService) Update(
	ctx context.Context, name string, u CollectionUpdate,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.update", start, err) }()

	col, err := s.mgr.UpdateCollection(ctx, name, toInternalPatch(u))
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("update collection: %w", err)
	}
	return fromInternalCollection(col), nil
}

// Delete removes a collection. An empty policy uses the client default.
func (s *CollectionService) Delete(
	ctx context.Context, name string, policy DeletePolicy,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.delete", start, err) }()

	if err = s.mgr.DeleteCollection(ctx, name, domcol.DeletePolicy(policy)); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Stats returns the latest stats point of a collection.
func (s *CollectionService) Stats(ctx context.Context, name string) (_ StatsInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.stats", start, err) }()

	st, err := s.mgr.CollectionStats(ctx, name)
	if err != nil {
		return StatsInfo{}, fmt.Errorf("collection stats: %w", err)
	}
	return fromInternalStats(st), nil
}

// StatsHistory returns up to limit stats points, newest first.
func (s *CollectionService) StatsHistory(ctx context.Context, name string, limit int) (_ []StatsInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.stats_history", start, err) }()

	points, err := s.mgr.StatsHistory(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("stats history: %w", err)
	}
	out := make([]StatsInfo, len(points))
	for i, p := range points {
		out[i] = fromInternalStats(p)
	}
	return out, nil
}

func buildSpec(name string, dim int, opts []CollectionOption) domcol.Spec {
	spec := domcol.Spec{Name: name, Dimension: dim}
	for _, o := range opts {
		o.applyCollection(&spec)
	}
	return spec
}
