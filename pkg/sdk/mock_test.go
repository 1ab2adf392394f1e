package vecspace

import (
	"context"
	"testing"

	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
)

// --- managerUseCase mock ---

type mockManager struct {
	createFn     func(ctx context.Context, spec domcol.Spec) (domcol.Collection, error)
	getFn        func(ctx context.Context, name string) (domcol.Collection, error)
	deleteFn     func(ctx context.Context, name string, policy domcol.DeletePolicy) error
	insertFn     func(ctx context.Context, req manageruc.InsertRequest) (mapping.Mapping, error)
	searchFn     func(ctx context.Context, req domsearch.Request) (domsearch.Response, error)
	migrationsFn func(ctx context.Context, id string) (dommig.Task, error)
}

func (m *mockManager) CreateCollection(ctx context.Context, spec domcol.Spec) (domcol.Collection, error) {
	return m.createFn(ctx, spec)
}

func (m *mockManager) GetCollection(ctx context.Context, name string) (domcol.Collection, error) {
	return m.getFn(ctx, name)
}

func (m *mockManager) ListCollections(context.Context, domcol.Filter) ([]domcol.Collection, error) {
	return nil, nil
}

func (m *mockManager) UpdateCollection(context.Context, string, domcol.Patch) (domcol.Collection, error) {
	return domcol.Collection{}, nil
}

func (m *mockManager) DeleteCollection(ctx context.Context, name string, policy domcol.DeletePolicy) error {
	return m.deleteFn(ctx, name, policy)
}

func (m *mockManager) Insert(ctx context.Context, req manageruc.InsertRequest) (mapping.Mapping, error) {
	return m.insertFn(ctx, req)
}

func (m *mockManager) DeleteVector(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *mockManager) CollectionOf(context.Context, string) (string, error) {
	return "", nil
}

func (m *mockManager) Search(ctx context.Context, req domsearch.Request) (domsearch.Response, error) {
	return m.searchFn(ctx, req)
}

func (m *mockManager) CollectionStats(context.Context, string) (domcol.Stats, error) {
	return domcol.Stats{}, nil
}

func (m *mockManager) StatsHistory(context.Context, string, int) ([]domcol.Stats, error) {
	return nil, nil
}

func (m *mockManager) AggregateStats(context.Context, []string) (map[string]domcol.Stats, error) {
	return nil, nil
}

func (m *mockManager) EnqueueMigration(context.Context, string, string) (dommig.Task, error) {
	return dommig.Task{}, nil
}

func (m *mockManager) MigrationStatus(ctx context.Context, id string) (dommig.Task, error) {
	return m.migrationsFn(ctx, id)
}

func (m *mockManager) ListMigrations(context.Context, int) ([]dommig.Task, error) {
	return nil, nil
}

// --- embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// oneHotEmbedder maps text to a one-hot vector chosen by its first byte.
func oneHotEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		vec := make([]float32, dim)
		if text != "" {
			vec[int(text[0])%dim] = 1
		}
		return EmbeddingResult{Embedding: vec, TotalTokens: len(text)}, nil
	}}
}

// --- helpers ---

func mustCollection(t *testing.T, name string, dim int) domcol.Collection {
	t.Helper()
	col, err := domcol.New(domcol.Spec{Name: name, Dimension: dim})
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return col
}
