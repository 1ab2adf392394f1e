package vecspace

import (
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// CollectionOption configures collection creation.
type CollectionOption interface {
	applyCollection(*domcol.Spec)
}

// collectionOptionFunc adapts a function to the CollectionOption interface.
type collectionOptionFunc func(*domcol.Spec)

func (f collectionOptionFunc) applyCollection(s *domcol.Spec) { f(s) }

// WithMetric sets the similarity metric. Default: cosine.
func WithMetric(m Metric) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Metric = domcol.Metric(m)
	})
}

// WithDescription sets a free-form description.
func WithDescription(d string) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Description = d
	})
}

// WithTags adds tags to the collection.
func WithTags(tags ...string) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Tags = append(s.Tags, tags...)
	})
}

// WithOwner sets the owning principal.
func WithOwner(owner string) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Owner = owner
	})
}

// WithPrivacy sets visibility. Default: private.
func WithPrivacy(p Privacy) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Privacy = domcol.Privacy(p)
	})
}

// WithMetadata attaches an opaque metadata blob.
func WithMetadata(b []byte) CollectionOption {
	return collectionOptionFunc(func(s *domcol.Spec) {
		s.Metadata = domain.Blob(b)
	})
}
