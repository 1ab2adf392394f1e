// Package chromem implements domain.VectorEngine on top of chromem-go,
// an embedded vector database with optional on-disk persistence.
//
// Vectors are partitioned physically by dimension: every dimension gets its
// own chromem collection ("vectors-<dim>"). Each document carries its
// logical collection in metadata, which is used as the where filter.
// chromem normalizes embeddings on insert, so Fetch returns unit vectors;
// only cosine ranking is preserved.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

const (
	partitionPrefix = "vectors-"
	collectionField = "collection"
)

// Compile-time check: Store implements domain.VectorEngine.
var _ domain.VectorEngine = (*Store)(nil)

// Config configures the chromem engine.
type Config struct {
	// Path enables persistence. Empty keeps everything in memory.
	Path     string
	Compress bool
}

// Store is a chromem-backed vector engine.
type Store struct {
	db *chromem.DB
	mu sync.Mutex // serializes partition creation
}

// Open creates the engine, loading persisted data when cfg.Path is set.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return &Store{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// embeddings are always supplied by the caller
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem: embeddings must be precomputed")
}

func partitionName(dim int) string {
	return fmt.Sprintf("%s%d", partitionPrefix, dim)
}

func (s *Store) partition(dim int) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.db.GetOrCreateCollection(partitionName(dim), nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("partition %d: %w", dim, err)
	}
	return c, nil
}

// Insert stores rec in the partition matching its dimension.
// An existing document with the same key is replaced.
func (s *Store) Insert(ctx context.Context, rec domain.VectorRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("key is required")
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}
	// a key may have been stored under another dimension before
	if err := s.Delete(ctx, rec.Key); err != nil {
		return err
	}
	c, err := s.partition(len(rec.Embedding))
	if err != nil {
		return err
	}

	meta := make(map[string]string, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	meta[collectionField] = rec.Collection

	doc := chromem.Document{
		ID:        rec.Key,
		Metadata:  meta,
		Embedding: append([]float32(nil), rec.Embedding...),
		// chromem requires content or embedding; content carries the key for debugging
		Content: rec.Key,
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add %s: %w", rec.Key, err)
	}
	return nil
}

// Search queries the partition of the query dimension, restricted to q.Collection.
func (s *Store) Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}
	c := s.db.GetCollection(partitionName(len(q.Embedding)), noEmbed)
	if c == nil {
		return []domain.Neighbor{}, nil
	}

	// chromem rejects n larger than the partition; the where filter may return fewer
	n := q.K
	if total := c.Count(); n > total {
		n = total
	}
	if n == 0 {
		return []domain.Neighbor{}, nil
	}
	where := map[string]string{collectionField: q.Collection}

	results, err := c.QueryEmbedding(ctx, append([]float32(nil), q.Embedding...), n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	out := make([]domain.Neighbor, 0, len(results))
	for _, r := range results {
		out = append(out, domain.Neighbor{
			Key:      r.ID,
			Score:    float64(r.Similarity),
			Metadata: stripCollection(r.Metadata),
		})
	}
	return out, nil
}

// Delete removes key from every partition holding it. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	for name, c := range s.db.ListCollections() {
		if !strings.HasPrefix(name, partitionPrefix) {
			continue
		}
		if _, err := c.GetByID(ctx, key); err != nil {
			continue
		}
		if err := c.Delete(ctx, nil, nil, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Fetch returns the stored vector, or domain.ErrNotFound.
func (s *Store) Fetch(ctx context.Context, key string) (domain.VectorRecord, error) {
	for name, c := range s.db.ListCollections() {
		if !strings.HasPrefix(name, partitionPrefix) {
			continue
		}
		doc, err := c.GetByID(ctx, key)
		if err != nil {
			continue
		}
		return domain.VectorRecord{
			Key:        doc.ID,
			Collection: doc.Metadata[collectionField],
			Embedding:  doc.Embedding,
			Metadata:   stripCollection(doc.Metadata),
		}, nil
	}
	return domain.VectorRecord{}, fmt.Errorf("vector %q: %w", key, domain.ErrNotFound)
}

// Ping reports whether the database handle is usable.
func (s *Store) Ping(context.Context) error {
	if s.db == nil {
		return errors.New("chromem: not initialized")
	}
	return nil
}

func stripCollection(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k != collectionField {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
