package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpec signals a malformed collection definition.
	ErrInvalidSpec = errors.New("invalid spec")
	// ErrInvalidName signals a collection name outside the allowed charset.
	ErrInvalidName = errors.New("invalid name")
	// ErrAlreadyExists signals a duplicate collection or namespaced key.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound signals a missing collection, task or mapping.
	ErrNotFound = errors.New("not found")
	// ErrNotEmpty signals a delete blocked by the reject-if-non-empty policy.
	ErrNotEmpty = errors.New("not empty")
	// ErrImmutableField signals an attempt to change dimension or metric.
	ErrImmutableField = errors.New("immutable field")
	// ErrDimensionMismatch signals a vector whose length differs from the collection dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrMalformedKey signals a namespaced key without a collection prefix.
	ErrMalformedKey = errors.New("malformed key")
	// ErrConflict signals a concurrent migration touching the same collection.
	ErrConflict = errors.New("conflict")
	// ErrPartialFailure signals a multi-collection search where some targets were skipped.
	ErrPartialFailure = errors.New("partial failure")
	// ErrStorageFailure signals an error from the durable store.
	ErrStorageFailure = errors.New("storage failure")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the collection and both lengths.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection %q expects %d, got %d",
		ErrDimensionMismatch.Error(), e.Collection, e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(collection string, want, got int) error {
	return &DimensionMismatchError{Collection: collection, Want: want, Got: got}
}
