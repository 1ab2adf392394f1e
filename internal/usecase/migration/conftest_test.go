package migration

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
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
	migrationrepo "github.com/kailas-cloud/vecspace/internal/repository/migration"
	"github.com/kailas-cloud/vecspace/internal/usecase/catalog"
)

type fixture struct {
	engine  *Engine
	catalog *catalog.Service
	repo    *migrationrepo.Repo
	vectors *memory.Store
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(catalogrepo.New(s))
	repo := migrationrepo.New(s)
	vectors := memory.NewStore()
	return &fixture{
		engine:  New(repo, cat, vectors, cfg),
		catalog: cat,
		repo:    repo,
		vectors: vectors,
	}
}

func (f *fixture) createCollection(t *testing.T, name string, dim int) {
	t.Helper()
	if _, err := f.catalog.Create(context.Background(), domcol.Spec{Name: name, Dimension: dim}); err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
}

// insert records a mapping and stores a raw vector for it, the way the facade does.
func (f *fixture) insert(t *testing.T, col, rawID string, vec []float32) string {
	t.Helper()
	ctx := context.Background()
	key, err := namespace.Encode(col, rawID)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := f.catalog.RecordVectorMapping(ctx, col, key, nil); err != nil {
		t.Fatalf("RecordVectorMapping: %v", err)
	}
	rec := domain.VectorRecord{Key: key, Collection: col, Embedding: vec, Metadata: map[string]string{"raw": rawID}}
	if err := f.vectors.Insert(ctx, rec); err != nil {
		t.Fatalf("vectors.Insert: %v", err)
	}
	return key
}

func (f *fixture) vectorCount(t *testing.T, name string) int64 {
	t.Helper()
	col, err := f.catalog.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get(%q): %v", name, err)
	}
	return col.VectorCount()
}

// drain runs pending tasks synchronously until the queue is empty.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	for {
		ran, err := f.engine.processNext(context.Background())
		if err != nil {
			t.Fatalf("processNext: %v", err)
		}
		if !ran {
			return
		}
	}
}

func waitForStatus(t *testing.T, e *Engine, id string, want dommig.Status) dommig.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		task, err := e.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if task.Status() == want {
			return task
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s: expected status %s, still %s", id, want, task.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
