package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// Scope selects the collections a search targets.
type Scope struct {
	Collections []string
	All         bool
}

// Single targets one collection.
func Single(name string) Scope { return Scope{Collections: []string{name}} }

// Set targets an explicit set of collections.
func Set(names ...string) Scope { return Scope{Collections: names} }

// AllCollections targets every collection in the catalog.
func AllCollections() Scope { return Scope{All: true} }

// IsSingle reports whether exactly one named collection is targeted.
func (s Scope) IsSingle() bool { return !s.All && len(s.Collections) == 1 }

// Request is a multi-collection similarity search.
type Request struct {
	Query     string
	Embedding []float32
	K         int
	Scope     Scope
	// IncludeCollection attaches full collection metadata to each hit.
	IncludeCollection bool
}

// Validate checks the request shape. maxK <= 0 means unbounded.
func (r Request) Validate(maxK int) error {
	if r.Query == "" && len(r.Embedding) == 0 {
		return fmt.Errorf("%w: query text or embedding is required", domain.ErrInvalidSpec)
	}
	if r.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidSpec, r.K)
	}
	if maxK > 0 && r.K > maxK {
		return fmt.Errorf("%w: k %d exceeds max %d", domain.ErrInvalidSpec, r.K, maxK)
	}
	if !r.Scope.All && len(r.Scope.Collections) == 0 {
		return fmt.Errorf("%w: no target collections", domain.ErrInvalidSpec)
	}
	return nil
}

// Hit is one merged, enriched search result.
type Hit struct {
	Key            string
	ID             string
	CollectionName string
	Score          float64
	Metadata       domain.Blob
	CreatedAt      int64
	Collection     *collection.Collection
}

// Skipped records a targeted collection that did not contribute results.
type Skipped struct {
	Collection string
	Reason     string
	Err        error
}

// Response is the merged result of a search.
type Response struct {
	Hits     []Hit
	Searched []string
	Skipped  []Skipped
}

// Partial reports whether some targets were skipped.
func (r Response) Partial() bool { return len(r.Skipped) > 0 }

// Err returns nil for a complete search and an ErrPartialFailure-wrapped error naming
// the skipped collections otherwise. Hits remain valid either way.
func (r Response) Err() error {
	if !r.Partial() {
		return nil
	}
	names := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		names[i] = s.Collection
	}
	return fmt.Errorf("%w: skipped %s", domain.ErrPartialFailure, strings.Join(names, ", "))
}

// FailedError is returned when every targeted collection failed.
type FailedError struct {
	Skipped []Skipped
}

func (e *FailedError) Error() string {
	parts := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		parts[i] = s.Collection + ": " + s.Reason
	}
	return "all collections failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-collection causes to errors.Is.
func (e *FailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Skipped))
	for _, s := range e.Skipped {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

// AsFailed unwraps a FailedError.
func AsFailed(err error) (*FailedError, bool) {
	var fe *FailedError
	ok := errors.As(err, &fe)
	return fe, ok
}
