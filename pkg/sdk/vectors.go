package vecspace

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
)

// VectorService stores and removes vectors of one collection.
type VectorService struct {
	collection string
	mgr        managerUseCase
	obs        *observer
}

// Insert stores a raw embedding under id. The returned key is "<collection>:<id>".
func (s *VectorService) Insert(
	ctx context.Context, id string, embedding []float32, metadata []byte,
) (_ VectorInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector.insert", start, err) }()

	return s.insert(ctx, manageruc.InsertRequest{
		Collection: s.collection, ID: id, Embedding: embedding, Metadata: domain.Blob(metadata),
	})
}

// InsertText embeds text with the configured Embedder and stores the result.
func (s *VectorService) InsertText(
	ctx context.Context, id, text string, metadata []byte,
) (_ VectorInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector.insert_text", start, err) }()

	return s.insert(ctx, manageruc.InsertRequest{
		Collection: s.collection, ID: id, Text: text, Metadata: domain.Blob(metadata),
	})
}

func (s *VectorService) insert(ctx context.Context, req manageruc.InsertRequest) (VectorInfo, error) {
	m, err := s.mgr.Insert(ctx, req)
	if err != nil {
		return VectorInfo{}, fmt.Errorf("insert vector: %w", err)
	}
	return fromInternalMapping(m), nil
}

// Delete removes a vector. Returns false when it did not exist.
func (s *VectorService) Delete(ctx context.Context, id string) (_ bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector.delete", start, err) }()

	existed, err := s.mgr.DeleteVector(ctx, s.collection, id)
	if err != nil {
		return false, fmt.Errorf("delete vector: %w", err)
	}
	return existed, nil
}
