package collection

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
)

const maxTags = 64

// Metric is the similarity metric a collection was declared with.
type Metric string

const (
	// MetricCosine is cosine similarity.
	MetricCosine Metric = "cosine"
	// MetricEuclidean is L2 distance.
	MetricEuclidean Metric = "euclidean"
	// MetricDotProduct is inner product.
	MetricDotProduct Metric = "dot_product"
)

// IsValid checks if the metric is supported.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricEuclidean || m == MetricDotProduct
}

// Privacy controls collection visibility for front ends.
type Privacy string

const (
	// PrivacyPublic is visible to everyone.
	PrivacyPublic Privacy = "public"
	// PrivacyPrivate is visible to the owner only.
	PrivacyPrivate Privacy = "private"
)

// IsValid checks if the privacy value is supported.
func (p Privacy) IsValid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

// Spec is the input for creating a collection.
type Spec struct {
	Name        string
	Dimension   int
	Metric      Metric
	Description string
	Tags        []string
	Owner       string
	Privacy     Privacy
	Metadata    domain.Blob
}

// Collection is a named logical partition of the shared vector space.
type Collection struct {
	name          string
	dimension     int
	metric        Metric
	vectorCount   int64
	documentCount int64
	createdAt     int64
	lastUpdated   int64
	description   string
	tags          []string
	owner         string
	privacy       Privacy
	metadata      domain.Blob
	stats         Stats
}

// New validates a spec and creates a Collection with zero counters.
// Errors wrap domain.ErrInvalidSpec (and domain.ErrInvalidName for bad names).
func New(spec Spec) (Collection, error) {
	if err := namespace.ValidateName(spec.Name); err != nil {
		return Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSpec, err)
	}
	if spec.Dimension <= 0 {
		return Collection{}, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidSpec, spec.Dimension)
	}
	if spec.Metric == "" {
		spec.Metric = MetricCosine
	}
	if !spec.Metric.IsValid() {
		return Collection{}, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidSpec, spec.Metric)
	}
	if spec.Privacy == "" {
		spec.Privacy = PrivacyPrivate
	}
	if !spec.Privacy.IsValid() {
		return Collection{}, fmt.Errorf("%w: unknown privacy %q", domain.ErrInvalidSpec, spec.Privacy)
	}
	tags, err := normalizeTags(spec.Tags)
	if err != nil {
		return Collection{}, err
	}

	now := time.Now().UnixMilli()
	return Collection{
		name:        spec.Name,
		dimension:   spec.Dimension,
		metric:      spec.Metric,
		createdAt:   now,
		lastUpdated: now,
		description: spec.Description,
		tags:        tags,
		owner:       spec.Owner,
		privacy:     spec.Privacy,
		metadata:    spec.Metadata,
	}, nil
}

// State is the full persisted form of a Collection.
type State struct {
	Name          string
	Dimension     int
	Metric        Metric
	VectorCount   int64
	DocumentCount int64
	CreatedAt     int64
	LastUpdated   int64
	Description   string
	Tags          []string
	Owner         string
	Privacy       Privacy
	Metadata      domain.Blob
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(s State) Collection {
	return Collection{
		name:          s.Name,
		dimension:     s.Dimension,
		metric:        s.Metric,
		vectorCount:   s.VectorCount,
		documentCount: s.DocumentCount,
		createdAt:     s.CreatedAt,
		lastUpdated:   s.LastUpdated,
		description:   s.Description,
		tags:          s.Tags,
		owner:         s.Owner,
		privacy:       s.Privacy,
		metadata:      s.Metadata,
	}
}

// State returns the persisted form of the collection.
func (c Collection) State() State {
	return State{
		Name:          c.name,
		Dimension:     c.dimension,
		Metric:        c.metric,
		VectorCount:   c.vectorCount,
		DocumentCount: c.documentCount,
		CreatedAt:     c.createdAt,
		LastUpdated:   c.lastUpdated,
		Description:   c.description,
		Tags:          c.tags,
		Owner:         c.owner,
		Privacy:       c.privacy,
		Metadata:      c.metadata,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Dimension returns the fixed vector dimension.
func (c Collection) Dimension() int { return c.dimension }

// Metric returns the declared similarity metric.
func (c Collection) Metric() Metric { return c.metric }

// VectorCount returns the number of live vector mappings.
func (c Collection) VectorCount() int64 { return c.vectorCount }

// DocumentCount returns the number of live documents.
func (c Collection) DocumentCount() int64 { return c.documentCount }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// LastUpdated returns the last mutation timestamp (unix millis).
func (c Collection) LastUpdated() int64 { return c.lastUpdated }

// Description returns the free-form description.
func (c Collection) Description() string { return c.description }

// Tags returns the sorted, de-duplicated tag set.
func (c Collection) Tags() []string { return c.tags }

// Owner returns the owner identifier.
func (c Collection) Owner() string { return c.owner }

// Privacy returns the visibility setting.
func (c Collection) Privacy() Privacy { return c.privacy }

// Metadata returns the opaque metadata blob.
func (c Collection) Metadata() domain.Blob { return c.metadata }

// Stats returns the latest stats snapshot merged with live counters.
func (c Collection) Stats() Stats { return c.stats }

// HasTag reports whether the collection carries tag.
func (c Collection) HasTag(tag string) bool {
	_, found := slices.BinarySearch(c.tags, tag)
	return found
}

// WithStats attaches a stats snapshot, overriding its counters with the live ones.
func (c Collection) WithStats(s Stats) Collection {
	s.CollectionName = c.name
	s.VectorCount = c.vectorCount
	s.DocumentCount = c.documentCount
	c.stats = s
	return c
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: too many tags (max %d)", domain.ErrInvalidSpec, maxTags)
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			return nil, fmt.Errorf("%w: empty tag", domain.ErrInvalidSpec)
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
