package domain

import "context"

// Embedder turns text into a vector. Collections only accept vectors whose
// length equals their dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Dimension returns the vector length.
func (r EmbeddingResult) Dimension() int { return len(r.Embedding) }
