// Package manager is the Collection Manager facade: the single entry point
// front ends use for collection, vector, search and migration operations.
package manager

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
)

// InsertRequest adds one vector to a collection. Embedding wins over Text.
type InsertRequest struct {
	Collection string
	ID         string
	Text       string
	Embedding  []float32
	Metadata   domain.Blob
}

// Service coordinates the catalog, the vector engine, search and migrations.
type Service struct {
	catalog    Catalog
	engine     Engine
	search     Searcher
	migrations Migrations
	embed      Embedder

	implicitCreate bool
	defaultPolicy  domcol.DeletePolicy
	logger         *zap.Logger
}

// New creates the facade. embed may be nil when callers always supply embeddings.
func New(catalog Catalog, engine Engine, search Searcher, migrations Migrations, embed Embedder) *Service {
	return &Service{
		catalog:       catalog,
		engine:        engine,
		search:        search,
		migrations:    migrations,
		embed:         embed,
		defaultPolicy: domcol.DeleteRejectIfNonEmpty,
		logger:        zap.NewNop(),
	}
}

// WithImplicitCreate makes Insert create unseen collections on the fly.
func (s *Service) WithImplicitCreate(on bool) *Service {
	s.implicitCreate = on
	return s
}

// WithDefaultDeletePolicy sets the policy used when DeleteCollection gets none.
func (s *Service) WithDefaultDeletePolicy(p domcol.DeletePolicy) *Service {
	if p != "" {
		s.defaultPolicy = p
	}
	return s
}

// WithLogger sets the facade logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// CreateCollection creates a collection.
func (s *Service) CreateCollection(ctx context.Context, spec domcol.Spec) (domcol.Collection, error) {
	return s.catalog.Create(ctx, spec)
}

// GetCollection returns a collection with its latest stats.
func (s *Service) GetCollection(ctx context.Context, name string) (domcol.Collection, error) {
	return s.catalog.Get(ctx, name)
}

// ListCollections returns collections matching f.
func (s *Service) ListCollections(ctx context.Context, f domcol.Filter) ([]domcol.Collection, error) {
	return s.catalog.List(ctx, f)
}

// UpdateCollection applies a metadata patch.
func (s *Service) UpdateCollection(ctx context.Context, name string, p domcol.Patch) (domcol.Collection, error) {
	return s.catalog.UpdateMetadata(ctx, name, p)
}

// DeleteCollection deletes a collection. An empty policy uses the configured default.
// Collections under migration cannot be deleted. Raw vectors of a cascade are
// removed from the engine after the catalog commit; leftovers are logged orphans.
func (s *Service) DeleteCollection(ctx context.Context, name string, policy domcol.DeletePolicy) error {
	if policy == "" {
		policy = s.defaultPolicy
	}
	active, err := s.migrations.ActiveFor(ctx, name)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("collection %q is under migration: %w", name, domain.ErrConflict)
	}

	keys, err := s.catalog.Delete(ctx, name, policy)
	if err != nil {
		return err
	}

	orphans := 0
	for _, key := range keys {
		if err := s.engine.Delete(ctx, key); err != nil {
			orphans++
			s.logger.Warn("Raw vector left behind by cascade", zap.String("key", key), zap.Error(err))
		}
	}
	if orphans > 0 {
		s.logger.Warn("Cascade delete left orphan vectors",
			zap.String("collection", name),
			zap.Int("orphans", orphans),
		)
	}
	return nil
}

// Insert stores one vector. The catalog mapping is written before the raw
// vector, and removed again when the engine write fails.
func (s *Service) Insert(ctx context.Context, req InsertRequest) (mapping.Mapping, error) {
	key, err := namespace.Encode(req.Collection, req.ID)
	if err != nil {
		return mapping.Mapping{}, err
	}

	vec, err := s.vectorize(ctx, req)
	if err != nil {
		return mapping.Mapping{}, err
	}

	col, err := s.collectionFor(ctx, req.Collection, len(vec))
	if err != nil {
		return mapping.Mapping{}, err
	}
	if col.Dimension() != len(vec) {
		return mapping.Mapping{}, domain.NewDimensionMismatch(col.Name(), col.Dimension(), len(vec))
	}

	m, err := s.catalog.RecordVectorMapping(ctx, col.Name(), key, req.Metadata)
	if err != nil {
		return mapping.Mapping{}, err
	}

	rec := domain.VectorRecord{
		Key:        key,
		Collection: col.Name(),
		Embedding:  vec,
		Metadata:   map[string]string{"id": req.ID},
	}
	if err := s.engine.Insert(ctx, rec); err != nil {
		if _, rerr := s.catalog.RemoveVectorMapping(context.WithoutCancel(ctx), key); rerr != nil {
			s.logger.Error("Failed to roll back mapping after engine error",
				zap.String("key", key), zap.Error(rerr))
		}
		return mapping.Mapping{}, fmt.Errorf("insert vector %q: %w", key, err)
	}
	return s.settle(ctx, m, rec)
}

// settleHops bounds how many chained migrations settle follows.
const settleHops = 8

// settle makes the raw vector follow its mapping. A migration may move the
// mapping between the catalog write and the engine write; its re-key pass then
// finds no raw vector, so the insert moves it to the new key itself.
func (s *Service) settle(ctx context.Context, m mapping.Mapping, rec domain.VectorRecord) (mapping.Mapping, error) {
	ctx = context.WithoutCancel(ctx)
	for range settleHops {
		cur, err := s.catalog.GetMapping(ctx, rec.Key)
		if err == nil {
			return cur, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return mapping.Mapping{}, fmt.Errorf("settle vector %q: %w", rec.Key, err)
		}

		next, ok, err := s.movedTo(ctx, rec.Collection, m)
		if err != nil {
			return mapping.Mapping{}, fmt.Errorf("settle vector %q: %w", rec.Key, err)
		}
		oldKey := rec.Key
		if !ok {
			// deleted while the engine write was in flight
			if err := s.engine.Delete(ctx, oldKey); err != nil {
				return mapping.Mapping{}, fmt.Errorf("drop orphan vector %q: %w", oldKey, err)
			}
			return m, nil
		}

		rec.Key, rec.Collection = next.VectorID(), next.Collection()
		if err := s.engine.Insert(ctx, rec); err != nil {
			return mapping.Mapping{}, fmt.Errorf("insert vector %q: %w", rec.Key, err)
		}
		if err := s.engine.Delete(ctx, oldKey); err != nil {
			return mapping.Mapping{}, fmt.Errorf("delete vector %q: %w", oldKey, err)
		}
		s.logger.Info("Vector followed migrated mapping",
			zap.String("from", oldKey), zap.String("to", rec.Key))
		m = next
	}
	return mapping.Mapping{}, fmt.Errorf("%w: vector %q kept moving during insert", domain.ErrConflict, rec.Key)
}

// migrationScan is how many recent tasks movedTo inspects.
const migrationScan = 100

// movedTo finds where a migration out of collection re-homed m. The moved
// mapping keeps its raw id and creation time.
func (s *Service) movedTo(ctx context.Context, collection string, m mapping.Mapping) (mapping.Mapping, bool, error) {
	tasks, err := s.migrations.List(ctx, migrationScan)
	if err != nil {
		return mapping.Mapping{}, false, err
	}
	for _, task := range tasks {
		if task.Source() != collection {
			continue
		}
		key, err := namespace.Encode(task.Target(), m.RawID())
		if err != nil {
			return mapping.Mapping{}, false, err
		}
		next, err := s.catalog.GetMapping(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return mapping.Mapping{}, false, err
		}
		if next.CreatedAt() == m.CreatedAt() {
			return next, true, nil
		}
	}
	return mapping.Mapping{}, false, nil
}

func (s *Service) vectorize(ctx context.Context, req InsertRequest) ([]float32, error) {
	if len(req.Embedding) > 0 {
		return req.Embedding, nil
	}
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text or embedding is required", domain.ErrInvalidSpec)
	}
	if s.embed == nil {
		return nil, fmt.Errorf("%w: no embedder configured, embedding is required", domain.ErrInvalidSpec)
	}
	res, err := s.embed.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	return res.Embedding, nil
}

// collectionFor loads the target collection, creating it when implicit creation is on.
func (s *Service) collectionFor(ctx context.Context, name string, dim int) (domcol.Collection, error) {
	col, err := s.catalog.Get(ctx, name)
	if err == nil || !s.implicitCreate || !errors.Is(err, domain.ErrNotFound) {
		return col, err
	}

	col, err = s.catalog.Create(ctx, domcol.Spec{Name: name, Dimension: dim})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// lost the race to a concurrent insert
		return s.catalog.Get(ctx, name)
	}
	if err != nil {
		return domcol.Collection{}, err
	}
	s.logger.Info("Collection created implicitly", zap.String("collection", name), zap.Int("dimension", dim))
	return col, nil
}

// DeleteVector removes one vector, catalog first. It reports whether a mapping existed.
func (s *Service) DeleteVector(ctx context.Context, collection, id string) (bool, error) {
	key, err := namespace.Encode(collection, id)
	if err != nil {
		return false, err
	}
	removed, err := s.catalog.RemoveVectorMapping(ctx, key)
	if err != nil {
		return false, err
	}
	if err := s.engine.Delete(ctx, key); err != nil {
		s.logger.Warn("Raw vector delete failed", zap.String("key", key), zap.Error(err))
	}
	return removed, nil
}

// CollectionOf resolves the owning collection of a namespaced key.
func (s *Service) CollectionOf(ctx context.Context, key string) (string, error) {
	return s.catalog.GetCollectionFromNamespacedID(ctx, key)
}

// Search routes a similarity search.
func (s *Service) Search(ctx context.Context, req domsearch.Request) (domsearch.Response, error) {
	return s.search.Search(ctx, req)
}

// CollectionStats returns the latest stats merged with live counters.
func (s *Service) CollectionStats(ctx context.Context, name string) (domcol.Stats, error) {
	return s.catalog.CollectionStats(ctx, name)
}

// StatsHistory returns up to limit snapshots, newest first.
func (s *Service) StatsHistory(ctx context.Context, name string, limit int) ([]domcol.Stats, error) {
	return s.catalog.StatsHistory(ctx, name, limit)
}

// AggregateStats returns the latest stats of each named collection, all when names is empty.
func (s *Service) AggregateStats(ctx context.Context, names []string) (map[string]domcol.Stats, error) {
	return s.catalog.AggregateStats(ctx, names)
}

// EnqueueMigration queues a move of every vector from source to target.
func (s *Service) EnqueueMigration(ctx context.Context, source, target string) (dommig.Task, error) {
	return s.migrations.Enqueue(ctx, source, target)
}

// MigrationStatus returns a migration task.
func (s *Service) MigrationStatus(ctx context.Context, id string) (dommig.Task, error) {
	return s.migrations.Status(ctx, id)
}

// ListMigrations returns recent migration tasks, newest first.
func (s *Service) ListMigrations(ctx context.Context, limit int) ([]dommig.Task, error) {
	return s.migrations.List(ctx, limit)
}
