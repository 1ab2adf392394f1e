package migration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
)

func newTestRepo(t *testing.T) (*Repo, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func seedMappings(t *testing.T, s *sqlite.Store, collection string, n int) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, metric, vector_count, document_count, created_at, last_updated, privacy)
		 VALUES (?, 3, 'cosine', ?, ?, 1, 1, 'private')`, collection, n, n); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
	for i := range n {
		key := fmt.Sprintf("%s:%d", collection, i)
		if _, err := s.ExecContext(ctx,
			`INSERT INTO vector_mappings (vector_id, collection_name, namespace_prefix, created_at)
			 VALUES (?, ?, ?, ?)`, key, collection, collection, i+1); err != nil {
			t.Fatalf("seed mapping: %v", err)
		}
	}
}

func newTask(t *testing.T, r *Repo, source, target string) dommig.Task {
	t.Helper()
	task, err := dommig.New(source, target)
	if err != nil {
		t.Fatalf("migration.New: %v", err)
	}
	if err := r.Create(context.Background(), task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}
