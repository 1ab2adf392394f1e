// Package vector stores raw vectors in Valkey hashes and searches them via
// per-dimension FT indexes. It is the production domain.VectorEngine.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/vecspace/internal/db"
	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Compile-time check: Repo implements domain.VectorEngine.
var _ domain.VectorEngine = (*Repo)(nil)

const (
	// DefaultKeyPrefix namespaces vector hashes inside the shared keyspace.
	DefaultKeyPrefix = "vecspace:vec:"

	collectionField = "collection"
	vectorPrefix    = "vec_"
	metaPrefix      = "m:"
)

// store is the consumer interface for the raw vector engine (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements domain.VectorEngine over Valkey.
type Repo struct {
	store    store
	prefix   string
	distance db.DistanceMetric
	hnsw     HNSWConfig

	mu      sync.Mutex
	indexed map[int]bool
}

// New creates a vector repository using one global distance metric.
func New(s store, distance db.DistanceMetric) *Repo {
	return &Repo{
		store:    s,
		prefix:   DefaultKeyPrefix,
		distance: distance,
		hnsw:     HNSWConfig{M: 16, EFConstruct: 200},
		indexed:  make(map[int]bool),
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithKeyPrefix overrides the hash key prefix.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// Insert writes the vector hash, creating the dimension index on first use.
func (r *Repo) Insert(ctx context.Context, rec domain.VectorRecord) error {
	if rec.Key == "" {
		return errors.New("key is required")
	}
	dim := len(rec.Embedding)
	if dim == 0 {
		return errors.New("embedding is required")
	}
	if err := r.ensureIndex(ctx, dim); err != nil {
		return err
	}

	fields := make(map[string]string, len(rec.Metadata)+2)
	for k, v := range rec.Metadata {
		fields[metaPrefix+k] = v
	}
	fields[collectionField] = rec.Collection
	fields[vectorField(dim)] = db.EncodeVector(rec.Embedding)

	// replace, so a stale field of another dimension cannot linger
	if err := r.store.Del(ctx, r.hashKey(rec.Key)); err != nil {
		return fmt.Errorf("del %s: %w", rec.Key, err)
	}
	if err := r.store.HSet(ctx, r.hashKey(rec.Key), fields); err != nil {
		return fmt.Errorf("hset %s: %w", rec.Key, err)
	}
	return nil
}

// Search runs KNN over the dimension index restricted to q.Collection.
func (r *Repo) Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error) {
	dim := len(q.Embedding)
	if dim == 0 {
		return nil, errors.New("embedding is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}
	ok, err := r.hasIndex(ctx, dim)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.Neighbor{}, nil
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   r.indexName(dim),
		VectorField: vectorField(dim),
		Distance:    r.distance,
		Tags:        map[string]string{collectionField: q.Collection},
		Vector:      q.Embedding,
		K:           q.K,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", q.Collection, err)
	}

	out := make([]domain.Neighbor, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domain.Neighbor{
			Key:      strings.TrimPrefix(e.Key, r.prefix),
			Score:    e.Score,
			Metadata: metadataFromHash(e.Fields),
		})
	}
	return out, nil
}

// Delete removes the vector hash. Missing keys are not an error.
func (r *Repo) Delete(ctx context.Context, key string) error {
	if err := r.store.Del(ctx, r.hashKey(key)); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Fetch reads the raw vector back, or returns domain.ErrNotFound.
func (r *Repo) Fetch(ctx context.Context, key string) (domain.VectorRecord, error) {
	m, err := r.store.HGetAll(ctx, r.hashKey(key))
	if err != nil {
		return domain.VectorRecord{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.VectorRecord{}, fmt.Errorf("vector %q: %w", key, domain.ErrNotFound)
	}

	rec := domain.VectorRecord{
		Key:        key,
		Collection: m[collectionField],
		Metadata:   metadataFromHash(m),
	}
	for k, v := range m {
		if !strings.HasPrefix(k, vectorPrefix) {
			continue
		}
		vec, err := db.DecodeVector(v)
		if err != nil {
			return domain.VectorRecord{}, fmt.Errorf("decode %s: %w", key, err)
		}
		rec.Embedding = vec
	}
	if len(rec.Embedding) == 0 {
		return domain.VectorRecord{}, fmt.Errorf("vector %q has no embedding: %w", key, domain.ErrNotFound)
	}
	return rec, nil
}

// Ping checks backend connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) ensureIndex(ctx context.Context, dim int) error {
	ok, err := r.hasIndex(ctx, dim)
	if err != nil || ok {
		return err
	}

	def, err := db.NewIndex(r.indexName(dim)).
		Prefix(r.prefix).
		Tag(collectionField).
		VectorHNSW(vectorField(dim), dim, r.distance, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}

	r.mu.Lock()
	r.indexed[dim] = true
	r.mu.Unlock()
	return nil
}

func (r *Repo) hasIndex(ctx context.Context, dim int) (bool, error) {
	r.mu.Lock()
	known := r.indexed[dim]
	r.mu.Unlock()
	if known {
		return true, nil
	}

	ok, err := r.store.IndexExists(ctx, r.indexName(dim))
	if err != nil {
		return false, fmt.Errorf("index exists: %w", err)
	}
	if ok {
		r.mu.Lock()
		r.indexed[dim] = true
		r.mu.Unlock()
	}
	return ok, nil
}

// Valkey key patterns: {prefix}{namespaced key}, {prefix}idx:{dim}

func (r *Repo) hashKey(key string) string {
	return r.prefix + key
}

func (r *Repo) indexName(dim int) string {
	return r.prefix + "idx:" + strconv.Itoa(dim)
}

func vectorField(dim int) string {
	return vectorPrefix + strconv.Itoa(dim)
}

func metadataFromHash(m map[string]string) map[string]string {
	var out map[string]string
	for k, v := range m {
		if name, ok := strings.CutPrefix(k, metaPrefix); ok {
			if out == nil {
				out = make(map[string]string)
			}
			out[name] = v
		}
	}
	return out
}
