package manager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/memory"
	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
	migrationrepo "github.com/kailas-cloud/vecspace/internal/repository/migration"
	"github.com/kailas-cloud/vecspace/internal/usecase/catalog"
	"github.com/kailas-cloud/vecspace/internal/usecase/migration"
	"github.com/kailas-cloud/vecspace/internal/usecase/search"
)

// --- Mocks ---

type mockEngine struct {
	insertFn func(ctx context.Context, rec domain.VectorRecord) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockEngine) Insert(ctx context.Context, rec domain.VectorRecord) error {
	return m.insertFn(ctx, rec)
}

func (m *mockEngine) Delete(ctx context.Context, key string) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, key)
}

type mockEmbedder struct {
	dim int
}

// Embed maps text to a one-hot vector chosen by its first byte.
func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, m.dim)
	if text != "" {
		vec[int(text[0])%m.dim] = 1
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(text)}, nil
}

// --- Fixture ---

type fixture struct {
	svc       *Service
	catalog   *catalog.Service
	vectors   *memory.Store
	migration *migration.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(catalogrepo.New(s))
	vectors := memory.NewStore()
	emb := &mockEmbedder{dim: 8}
	mig := migration.New(migrationrepo.New(s), cat, vectors, migration.Config{PollInterval: 10 * time.Millisecond})
	router := search.New(cat, vectors, emb, search.Config{MaxK: 100})

	return &fixture{
		svc:       New(cat, vectors, router, mig, emb),
		catalog:   cat,
		vectors:   vectors,
		migration: mig,
	}
}

func (f *fixture) create(t *testing.T, name string, dim int) {
	t.Helper()
	if _, err := f.svc.CreateCollection(context.Background(), domcol.Spec{Name: name, Dimension: dim}); err != nil {
		t.Fatalf("CreateCollection(%q): %v", name, err)
	}
}

func (f *fixture) insert(t *testing.T, col, id string, vec []float32) {
	t.Helper()
	if _, err := f.svc.Insert(context.Background(), InsertRequest{Collection: col, ID: id, Embedding: vec}); err != nil {
		t.Fatalf("Insert(%s/%s): %v", col, id, err)
	}
}

func (f *fixture) vectorCount(t *testing.T, name string) int64 {
	t.Helper()
	col, err := f.svc.GetCollection(context.Background(), name)
	if err != nil {
		t.Fatalf("GetCollection(%q): %v", name, err)
	}
	return col.VectorCount()
}

func oneHot(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func waitCompleted(t *testing.T, svc *Service, id string) dommig.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		task, err := svc.MigrationStatus(context.Background(), id)
		if err != nil {
			t.Fatalf("MigrationStatus: %v", err)
		}
		if task.Status().IsTerminal() {
			return task
		}
		if time.Now().After(deadline) {
			t.Fatalf("migration %s still %s", id, task.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
