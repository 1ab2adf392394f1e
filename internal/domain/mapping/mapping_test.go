package mapping

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	m, err := New("docs-2024", "docs-2024:vec_1", domain.Blob(`{"a":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Prefix() != "docs-2024" || m.Collection() != "docs-2024" {
		t.Errorf("prefix/collection = %q/%q", m.Prefix(), m.Collection())
	}
	if m.RawID() != "vec_1" {
		t.Errorf("RawID() = %q", m.RawID())
	}
	if m.CreatedAt() == 0 {
		t.Error("expected CreatedAt to be set")
	}
}

func TestNew_PrefixMismatch(t *testing.T) {
	_, err := New("docs", "other:vec_1", nil)
	if !errors.Is(err, domain.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestNew_MalformedKey(t *testing.T) {
	_, err := New("docs", "vec_1", nil)
	if !errors.Is(err, domain.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestMoveTo(t *testing.T) {
	m := Reconstruct("docs:a:b", "docs", "docs", domain.Blob("x"), 42)
	moved, err := m.MoveTo("archive")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.VectorID() != "archive:a:b" || moved.Collection() != "archive" || moved.Prefix() != "archive" {
		t.Errorf("moved = %+v", moved)
	}
	if moved.CreatedAt() != 42 || string(moved.Metadata()) != "x" {
		t.Error("MoveTo must keep createdAt and metadata")
	}
	if moved.RawID() != "a:b" {
		t.Errorf("RawID() = %q", moved.RawID())
	}
}
