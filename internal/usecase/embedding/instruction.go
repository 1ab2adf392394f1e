package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// instructionEmbedder prefixes every text with a fixed instruction.
type instructionEmbedder struct {
	inner       domain.Embedder
	instruction string
}

// WithInstruction wraps inner so that every text is prefixed with instruction
// (e5/bge "passage: " and "query: " style). An empty instruction returns inner unchanged.
// Wrap outside the cache so the prefixed text is what gets cached.
func WithInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if inner == nil || instruction == "" {
		return inner
	}
	return &instructionEmbedder{inner: inner, instruction: instruction}
}

func (e *instructionEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed with instruction %q: %w", e.instruction, err)
	}
	return result, nil
}
