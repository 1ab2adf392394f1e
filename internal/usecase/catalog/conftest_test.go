package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(catalogrepo.New(s))
}

func mustCreate(t *testing.T, svc *Service, name string, dim int) domcol.Collection {
	t.Helper()
	col, err := svc.Create(context.Background(), domcol.Spec{Name: name, Dimension: dim})
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return col
}

func mustRecord(t *testing.T, svc *Service, col, rawID string) string {
	t.Helper()
	key, err := namespace.Encode(col, rawID)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := svc.RecordVectorMapping(context.Background(), col, key, nil); err != nil {
		t.Fatalf("RecordVectorMapping(%q): %v", key, err)
	}
	return key
}
