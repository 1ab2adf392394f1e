package mapping

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
)

// Mapping binds one namespaced vector key to its owning collection.
type Mapping struct {
	vectorID   string
	collection string
	prefix     string
	metadata   domain.Blob
	createdAt  int64
}

// New validates that key belongs to collection and creates a Mapping.
func New(collection, key string, metadata domain.Blob) (Mapping, error) {
	prefix, _, err := namespace.Decode(key)
	if err != nil {
		return Mapping{}, err
	}
	if prefix != collection {
		return Mapping{}, fmt.Errorf("%w: key %q is not in collection %q", domain.ErrMalformedKey, key, collection)
	}
	return Mapping{
		vectorID:   key,
		collection: collection,
		prefix:     prefix,
		metadata:   metadata,
		createdAt:  time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Mapping without validation (storage hydration).
func Reconstruct(vectorID, collection, prefix string, metadata domain.Blob, createdAt int64) Mapping {
	return Mapping{
		vectorID:   vectorID,
		collection: collection,
		prefix:     prefix,
		metadata:   metadata,
		createdAt:  createdAt,
	}
}

// VectorID returns the namespaced key.
func (m Mapping) VectorID() string { return m.vectorID }

// Collection returns the owning collection name.
func (m Mapping) Collection() string { return m.collection }

// Prefix returns the cached namespace prefix.
func (m Mapping) Prefix() string { return m.prefix }

// Metadata returns the original opaque metadata.
func (m Mapping) Metadata() domain.Blob { return m.metadata }

// CreatedAt returns the creation timestamp (unix millis).
func (m Mapping) CreatedAt() int64 { return m.createdAt }

// RawID returns the caller-supplied id part of the key.
func (m Mapping) RawID() string {
	return m.vectorID[len(m.prefix)+1:]
}

// MoveTo re-keys the mapping under target, keeping metadata and createdAt.
func (m Mapping) MoveTo(target string) (Mapping, error) {
	key, err := namespace.Rekey(m.vectorID, target)
	if err != nil {
		return Mapping{}, err
	}
	return Mapping{
		vectorID:   key,
		collection: target,
		prefix:     target,
		metadata:   m.metadata,
		createdAt:  m.createdAt,
	}, nil
}
