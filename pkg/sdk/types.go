package vecspace

import "time"

// Metric is a collection's similarity metric.
type Metric string

// Metric constants.
const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dot_product"
)

// Privacy is a collection's visibility.
type Privacy string

// Privacy constants.
const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// DeletePolicy controls what happens to a non-empty collection on delete.
type DeletePolicy string

// DeletePolicy constants.
const (
	DeleteReject  DeletePolicy = "reject"
	DeleteCascade DeletePolicy = "cascade"
)

// MigrationStatus is the lifecycle state of a migration.
type MigrationStatus string

// MigrationStatus constants.
const (
	MigrationPending   MigrationStatus = "pending"
	MigrationRunning   MigrationStatus = "running"
	MigrationCompleted MigrationStatus = "completed"
	MigrationFailed    MigrationStatus = "failed"
)

// CollectionInfo represents collection metadata.
type CollectionInfo struct {
	Name          string
	Dimension     int
	Metric        Metric
	VectorCount   int64
	DocumentCount int64
	CreatedAt     time.Time
	LastUpdated   time.Time
	Description   string
	Tags          []string
	Owner         string
	Privacy       Privacy
	Metadata      []byte
	Stats         StatsInfo // zero unless returned by Get
}

// CollectionUpdate is a partial metadata update. Nil fields are unchanged.
type CollectionUpdate struct {
	Description *string
	Tags        *[]string
	Owner       *string
	Privacy     *Privacy
	Metadata    *[]byte
}

// ListOptions filters and pages List. Zero values match everything.
type ListOptions struct {
	Owner   string
	Tag     string
	Privacy Privacy
	Offset  int
	Limit   int
}

// StatsInfo is one point of a collection's stats series.
type StatsInfo struct {
	Timestamp       time.Time
	VectorCount     int64
	DocumentCount   int64
	AvgSearchTimeMs float64
	QueriesPerDay   int64
	GNNImprovement  float64
	Hot             int64
	Warm            int64
	Cold            int64
}

// VectorInfo describes a stored vector.
type VectorInfo struct {
	Key        string // namespaced, "<collection>:<id>"
	ID         string
	Collection string
	CreatedAt  time.Time
}

// SearchRequest is a similarity search over one or more collections.
// Either Query or Embedding is required; All overrides Collections.
type SearchRequest struct {
	Query             string
	Embedding         []float32
	K                 int
	Collections       []string
	All               bool
	IncludeCollection bool
}

// Hit is a single merged search result.
type Hit struct {
	Key        string
	ID         string
	Collection string
	Score      float64
	Metadata   []byte
	CreatedAt  time.Time
	Info       *CollectionInfo // set when IncludeCollection was requested
}

// Skipped is a targeted collection that did not contribute results.
type Skipped struct {
	Collection string
	Reason     string
}

// SearchResult is the merged result of a search.
type SearchResult struct {
	Hits     []Hit
	Searched []string
	Skipped  []Skipped
}

// Partial reports whether some targeted collections were skipped.
func (r SearchResult) Partial() bool { return len(r.Skipped) > 0 }

// MigrationInfo describes a migration task.
type MigrationInfo struct {
	ID          string
	Source      string
	Target      string
	Status      MigrationStatus
	Progress    int // 0..100
	Total       int64
	Moved       int64
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Done reports whether the migration reached a terminal state.
func (m MigrationInfo) Done() bool {
	return m.Status == MigrationCompleted || m.Status == MigrationFailed
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
