// Package memory provides an in-process vector engine using brute-force cosine search.
// Suitable for tests and small local datasets.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Compile-time check: Store implements domain.VectorEngine.
var _ domain.VectorEngine = (*Store)(nil)

type entry struct {
	collection string
	vector     []float32 // unit length
	raw        []float32
	metadata   map[string]string
}

// Store keeps every vector in one map keyed by namespaced id.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty in-memory engine.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Insert adds or replaces the vector at rec.Key.
func (s *Store) Insert(_ context.Context, rec domain.VectorRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("key is required")
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}
	raw := make([]float32, len(rec.Embedding))
	copy(raw, rec.Embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[rec.Key] = entry{
		collection: rec.Collection,
		vector:     normalize(raw),
		raw:        raw,
		metadata:   cloneMeta(rec.Metadata),
	}
	return nil
}

// Search returns the top-k vectors of q.Collection by cosine similarity.
// Vectors of another dimension never match.
func (s *Store) Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}
	query := normalize(append([]float32(nil), q.Embedding...))

	s.mu.RLock()
	hits := make([]domain.Neighbor, 0)
	for key, e := range s.entries {
		if e.collection != q.Collection || len(e.vector) != len(query) {
			continue
		}
		hits = append(hits, domain.Neighbor{Key: key, Score: dot(query, e.vector), Metadata: cloneMeta(e.metadata)})
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Key < hits[j].Key
	})
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits, nil
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Fetch returns the stored vector for key.
func (s *Store) Fetch(_ context.Context, key string) (domain.VectorRecord, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return domain.VectorRecord{}, fmt.Errorf("vector %q: %w", key, domain.ErrNotFound)
	}
	return domain.VectorRecord{
		Key:        key,
		Collection: e.collection,
		Embedding:  append([]float32(nil), e.raw...),
		Metadata:   cloneMeta(e.metadata),
	}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func dot(a, b []float32) float64 {
	var d float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
	}
	return d
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
