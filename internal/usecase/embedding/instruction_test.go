package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// --- Mocks ---

type recordingEmbedder struct {
	result domain.EmbeddingResult
	err    error
	texts  []string
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	r.texts = append(r.texts, text)
	return r.result, r.err
}

// --- Tests ---

func TestWithInstruction_PrefixesText(t *testing.T) {
	inner := &recordingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := WithInstruction(inner, "query: ")

	result, err := emb.Embed(context.Background(), "january")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "query: january" {
		t.Errorf("expected prefixed text, got %v", inner.texts)
	}
	if result.Dimension() != 3 {
		t.Errorf("expected 3 dimensions, got %d", result.Dimension())
	}
}

func TestWithInstruction_EmptyReturnsInner(t *testing.T) {
	inner := &recordingEmbedder{}
	if got := WithInstruction(inner, ""); got != domain.Embedder(inner) {
		t.Errorf("expected inner embedder back, got %T", got)
	}
	if got := WithInstruction(nil, "query: "); got != nil {
		t.Errorf("expected nil for nil inner, got %T", got)
	}
}

func TestWithInstruction_WrapsError(t *testing.T) {
	providerErr := errors.New("provider down")
	emb := WithInstruction(&recordingEmbedder{err: providerErr}, "passage: ")

	_, err := emb.Embed(context.Background(), "x")
	if !errors.Is(err, providerErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
