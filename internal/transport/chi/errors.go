package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	"github.com/kailas-cloud/vecspace/internal/logger"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest        = "bad_request"
	codeInvalidSpec       = "invalid_spec"
	codeMalformedKey      = "malformed_key"
	codeNotFound          = "not_found"
	codeAlreadyExists     = "already_exists"
	codeNotEmpty          = "not_empty"
	codeConflict          = "conflict"
	codeImmutableField    = "immutable_field"
	codeDimensionMismatch = "dimension_mismatch"
	codeEmbeddingProvider = "embedding_provider_error"
	codeStorageFailure    = "storage_failure"
	codeSearchFailed      = "search_failed"
	codeInternal          = "internal_error"
)

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrDimensionMismatch, http.StatusUnprocessableEntity, codeDimensionMismatch},
	{domain.ErrImmutableField, http.StatusUnprocessableEntity, codeImmutableField},
	{domain.ErrMalformedKey, http.StatusBadRequest, codeMalformedKey},
	{domain.ErrInvalidName, http.StatusBadRequest, codeInvalidSpec},
	{domain.ErrInvalidSpec, http.StatusBadRequest, codeInvalidSpec},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists},
	{domain.ErrNotEmpty, http.StatusConflict, codeNotEmpty},
	{domain.ErrConflict, http.StatusConflict, codeConflict},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider},
	{domain.ErrStorageFailure, http.StatusServiceUnavailable, codeStorageFailure},
}

// handleDomainError maps an error kind to a status code. Client errors keep
// their message since it names the collection, key or task involved.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	setErrorKind(w, err)

	if fe, ok := domsearch.AsFailed(err); ok {
		log.Warn("search failed on every target", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    codeSearchFailed,
			Message: "all targeted collections failed",
			Skipped: skippedToResponse(fe.Skipped),
		})
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		msg := err.Error()
		if m.status >= http.StatusInternalServerError {
			log.Error("backend error", zap.Error(err))
			msg = m.sentinel.Error()
		} else {
			log.Warn("domain error", zap.Error(err))
		}
		writeError(w, m.status, m.code, msg)
		return
	}

	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

// setErrorKind exposes the matched kind to the wide event middleware.
func setErrorKind(w http.ResponseWriter, err error) {
	if _, ok := domsearch.AsFailed(err); ok {
		w.Header().Set(errorKindHeader, codeSearchFailed)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			w.Header().Set(errorKindHeader, m.code)
			return
		}
	}
	w.Header().Set(errorKindHeader, codeInternal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
