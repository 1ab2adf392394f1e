package search

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"text single", Request{Query: "q", K: 5, Scope: Single("a")}, false},
		{"embedding all", Request{Embedding: []float32{1}, K: 1, Scope: AllCollections()}, false},
		{"no query", Request{K: 5, Scope: Single("a")}, true},
		{"zero k", Request{Query: "q", Scope: Single("a")}, true},
		{"k over max", Request{Query: "q", K: 101, Scope: Single("a")}, true},
		{"empty scope", Request{Query: "q", K: 5}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate(100)
			if tc.wantErr && !errors.Is(err, domain.ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestScope_IsSingle(t *testing.T) {
	if !Single("a").IsSingle() {
		t.Error("Single should be single")
	}
	if Set("a", "b").IsSingle() || AllCollections().IsSingle() {
		t.Error("set and all are not single")
	}
}

func TestResponse_Err(t *testing.T) {
	ok := Response{Hits: []Hit{{Key: "a:1"}}}
	if ok.Err() != nil || ok.Partial() {
		t.Error("complete response must have no error")
	}

	partial := Response{Skipped: []Skipped{{Collection: "b", Reason: "timeout"}}}
	if !errors.Is(partial.Err(), domain.ErrPartialFailure) {
		t.Errorf("expected ErrPartialFailure, got %v", partial.Err())
	}
}

func TestFailedError_UnwrapsCauses(t *testing.T) {
	err := error(&FailedError{Skipped: []Skipped{
		{Collection: "a", Reason: "not found", Err: domain.ErrNotFound},
		{Collection: "b", Reason: "timeout"},
	}})

	if !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected ErrNotFound via Unwrap")
	}
	fe, ok := AsFailed(err)
	if !ok || len(fe.Skipped) != 2 {
		t.Fatalf("AsFailed = %v, %v", fe, ok)
	}
	if err.Error() != "all collections failed: a: not found; b: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}
