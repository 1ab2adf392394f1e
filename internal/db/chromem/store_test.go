package chromem

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func insert(t *testing.T, s *Store, key, col string, meta map[string]string, vec ...float32) {
	t.Helper()
	rec := domain.VectorRecord{Key: key, Collection: col, Embedding: vec, Metadata: meta}
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert(%q): %v", key, err)
	}
}

func TestSearch_FiltersByCollection(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "a:1", "a", nil, 1, 0, 0)
	insert(t, s, "a:2", "a", nil, 0, 1, 0)
	insert(t, s, "b:1", "b", nil, 1, 0, 0)

	hits, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{1, 0, 0}, K: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].Key != "a:1" {
		t.Errorf("top hit = %s, want a:1", hits[0].Key)
	}
	for _, h := range hits {
		if h.Key == "b:1" {
			t.Error("hit from another collection leaked")
		}
	}
}

func TestSearch_UnknownDimensionReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "a:1", "a", nil, 1, 0, 0)

	hits, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{1, 0}, K: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestFetch_RoundTripsMetadata(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "a:1", "a", map[string]string{"lang": "en"}, 0, 1)

	rec, err := s.Fetch(context.Background(), "a:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Collection != "a" {
		t.Errorf("collection = %q", rec.Collection)
	}
	if rec.Metadata["lang"] != "en" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if _, ok := rec.Metadata[collectionField]; ok {
		t.Error("internal collection field exposed")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insert(t, s, "a:1", "a", nil, 1, 0)

	if err := s.Delete(ctx, "a:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a:1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Fetch(ctx, "a:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsert_ReplacesAcrossDimensions(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "a:1", "a", nil, 1, 0)
	insert(t, s, "a:1", "a", nil, 1, 0, 0)

	rec, err := s.Fetch(context.Background(), "a:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Embedding) != 3 {
		t.Errorf("dimension = %d, want 3", len(rec.Embedding))
	}
	hits, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{1, 0}, K: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale 2-d vector still searchable")
	}
}
