package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

func insert(t *testing.T, s *Store, key, col string, vec ...float32) {
	t.Helper()
	if err := s.Insert(context.Background(), domain.VectorRecord{Key: key, Collection: col, Embedding: vec}); err != nil {
		t.Fatalf("Insert(%q): %v", key, err)
	}
}

func TestSearch_RanksByCosineWithinCollection(t *testing.T) {
	s := NewStore()
	insert(t, s, "a:1", "a", 1, 0, 0)
	insert(t, s, "a:2", "a", 0.7, 0.7, 0)
	insert(t, s, "a:3", "a", 0, 0, 1)
	insert(t, s, "b:1", "b", 1, 0, 0)

	hits, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{2, 0, 0}, K: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Key != "a:1" || hits[1].Key != "a:2" {
		t.Errorf("order = %s, %s", hits[0].Key, hits[1].Key)
	}
	if math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("top score = %v, want 1", hits[0].Score)
	}
}

func TestSearch_SkipsOtherDimensions(t *testing.T) {
	s := NewStore()
	insert(t, s, "a:1", "a", 1, 0)
	insert(t, s, "a:2", "a", 1, 0, 0)

	hits, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{1, 0}, K: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "a:1" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	s := NewStore()
	if _, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", Embedding: []float32{1}}); err == nil {
		t.Error("expected error for k=0")
	}
	if _, err := s.Search(context.Background(), domain.VectorQuery{Collection: "a", K: 1}); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestFetch_AndDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	insert(t, s, "a:1", "a", 3, 4)

	rec, err := s.Fetch(ctx, "a:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Embedding[0] != 3 || rec.Collection != "a" {
		t.Errorf("Fetch returned %+v, want raw embedding", rec)
	}

	if err := s.Delete(ctx, "a:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a:1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Fetch(ctx, "a:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
}
