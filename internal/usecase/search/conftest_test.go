package search

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
)

// --- Mocks ---

type mockCatalog struct {
	cols     map[string]domcol.Collection
	order    []string
	mappings map[string]mapping.Mapping

	mu       sync.Mutex
	recorded map[string]int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		cols:     map[string]domcol.Collection{},
		mappings: map[string]mapping.Mapping{},
		recorded: map[string]int{},
	}
}

func (m *mockCatalog) Get(_ context.Context, name string) (domcol.Collection, error) {
	col, ok := m.cols[name]
	if !ok {
		return domcol.Collection{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return col, nil
}

func (m *mockCatalog) List(_ context.Context, _ domcol.Filter) ([]domcol.Collection, error) {
	out := make([]domcol.Collection, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.cols[name])
	}
	return out, nil
}

func (m *mockCatalog) MappingsByKeys(_ context.Context, keys []string) (map[string]mapping.Mapping, error) {
	out := make(map[string]mapping.Mapping, len(keys))
	for _, k := range keys {
		if mp, ok := m.mappings[k]; ok {
			out[k] = mp
		}
	}
	return out, nil
}

func (m *mockCatalog) RecordSearchMetric(_ context.Context, name string, _, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[name]++
	return nil
}

func (m *mockCatalog) addCollection(t *testing.T, name string, dim int) {
	t.Helper()
	col, err := domcol.New(domcol.Spec{Name: name, Dimension: dim})
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	m.cols[name] = col
	m.order = append(m.order, name)
}

func (m *mockCatalog) addMapping(col, rawID string, createdAt int64) string {
	key := col + ":" + rawID
	m.mappings[key] = mapping.Reconstruct(key, col, col, domain.Blob(`{"id":"`+rawID+`"}`), createdAt)
	return key
}

type mockEngine struct {
	searchFn func(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error)
}

func (m *mockEngine) Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error) {
	return m.searchFn(ctx, q)
}

type mockEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

// byCollection serves fixed neighbors per collection and fails the listed ones.
func byCollection(results map[string][]domain.Neighbor, failing ...string) *mockEngine {
	fail := make(map[string]bool, len(failing))
	for _, f := range failing {
		fail[f] = true
	}
	return &mockEngine{searchFn: func(_ context.Context, q domain.VectorQuery) ([]domain.Neighbor, error) {
		if fail[q.Collection] {
			return nil, fmt.Errorf("engine down for %s", q.Collection)
		}
		res := results[q.Collection]
		if len(res) > q.K {
			res = res[:q.K]
		}
		return res, nil
	}}
}
