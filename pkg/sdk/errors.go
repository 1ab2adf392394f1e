package vecspace

import (
	"errors"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidSpec            = domain.ErrInvalidSpec
	ErrInvalidName            = domain.ErrInvalidName
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrNotFound               = domain.ErrNotFound
	ErrNotEmpty               = domain.ErrNotEmpty
	ErrImmutableField         = domain.ErrImmutableField
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrMalformedKey           = domain.ErrMalformedKey
	ErrConflict               = domain.ErrConflict
	ErrPartialFailure         = domain.ErrPartialFailure
	ErrStorageFailure         = domain.ErrStorageFailure
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// errorKinds is checked in order; storage failures come last because a
// wrapped storage error may also carry a more specific kind.
var errorKinds = []struct {
	err    error
	kind   string
	caller bool
}{
	{ErrDimensionMismatch, "dimension_mismatch", true},
	{ErrImmutableField, "immutable_field", true},
	{ErrMalformedKey, "malformed_key", true},
	{ErrInvalidName, "invalid_name", true},
	{ErrInvalidSpec, "invalid_spec", true},
	{ErrNotFound, "not_found", true},
	{ErrAlreadyExists, "already_exists", true},
	{ErrNotEmpty, "not_empty", true},
	{ErrConflict, "conflict", true},
	{ErrPartialFailure, "partial", false},
	{ErrEmbeddingProviderError, "embedding_provider", false},
	{ErrStorageFailure, "storage_failure", false},
}

// errorKind returns the metric status for err: "ok", a kind, or "error".
func errorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "error"
}

// isCallerError reports whether err was caused by the request rather than a backend.
func isCallerError(err error) bool {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.caller
		}
	}
	return false
}
