package domain

import "context"

// Blob is an opaque serialized payload (usually JSON) the core never interprets.
type Blob []byte

// VectorRecord is a raw vector stored in the shared engine under a namespaced key.
type VectorRecord struct {
	Key        string
	Collection string
	Embedding  []float32
	Metadata   map[string]string
}

// VectorQuery restricts a similarity search to one collection's namespace.
type VectorQuery struct {
	Collection string
	Embedding  []float32
	K          int
}

// Neighbor is a single ranked engine hit.
type Neighbor struct {
	Key      string
	Score    float64
	Metadata map[string]string
}

// VectorEngine is the external similarity engine, keyed by namespaced ids.
// It is never the source of truth for collections or mappings.
type VectorEngine interface {
	Insert(ctx context.Context, rec VectorRecord) error
	Search(ctx context.Context, q VectorQuery) ([]Neighbor, error)
	Delete(ctx context.Context, key string) error
	// Fetch returns ErrNotFound when the key holds no vector.
	Fetch(ctx context.Context, key string) (VectorRecord, error)
	Ping(ctx context.Context) error
}
