package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	dommap "github.com/kailas-cloud/vecspace/internal/domain/mapping"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func createCollection(t *testing.T, r *Repo, spec domcol.Spec) domcol.Collection {
	t.Helper()
	if spec.Dimension == 0 {
		spec.Dimension = 3
	}
	col, err := domcol.New(spec)
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	if err := r.Create(context.Background(), col); err != nil {
		t.Fatalf("Create(%q): %v", spec.Name, err)
	}
	return col
}

func seedMapping(t *testing.T, r *Repo, col, rawID string) dommap.Mapping {
	t.Helper()
	key, err := namespace.Encode(col, rawID)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m, err := dommap.New(col, key, nil)
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	if err := r.InsertMapping(context.Background(), m); err != nil {
		t.Fatalf("InsertMapping(%q): %v", key, err)
	}
	return m
}

func mustGet(t *testing.T, r *Repo, name string) domcol.Collection {
	t.Helper()
	col, err := r.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get(%q): %v", name, err)
	}
	return col
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
