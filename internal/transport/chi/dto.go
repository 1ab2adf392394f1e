package chi

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
)

type createCollectionRequest struct {
	Name        string          `json:"name"`
	Dimension   int             `json:"dimension"`
	Metric      string          `json:"metric,omitempty"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	Privacy     string          `json:"privacy,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (r createCollectionRequest) spec() domcol.Spec {
	return domcol.Spec{
		Name:        r.Name,
		Dimension:   r.Dimension,
		Metric:      domcol.Metric(r.Metric),
		Description: r.Description,
		Tags:        r.Tags,
		Owner:       r.Owner,
		Privacy:     domcol.Privacy(r.Privacy),
		Metadata:    blobFromJSON(r.Metadata),
	}
}

type patchCollectionRequest struct {
	Description *string          `json:"description"`
	Tags        *[]string        `json:"tags"`
	Owner       *string          `json:"owner"`
	Privacy     *string          `json:"privacy"`
	Metadata    *json.RawMessage `json:"metadata"`
	Dimension   *int             `json:"dimension"`
	Metric      *string          `json:"metric"`
}

func (r patchCollectionRequest) patch() domcol.Patch {
	p := domcol.Patch{
		Description: r.Description,
		Tags:        r.Tags,
		Owner:       r.Owner,
		Dimension:   r.Dimension,
	}
	if r.Privacy != nil {
		v := domcol.Privacy(*r.Privacy)
		p.Privacy = &v
	}
	if r.Metric != nil {
		v := domcol.Metric(*r.Metric)
		p.Metric = &v
	}
	if r.Metadata != nil {
		v := blobFromJSON(*r.Metadata)
		p.Metadata = &v
	}
	return p
}

type collectionResponse struct {
	Name          string          `json:"name"`
	Dimension     int             `json:"dimension"`
	Metric        string          `json:"metric"`
	VectorCount   int64           `json:"vector_count"`
	DocumentCount int64           `json:"document_count"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdated   time.Time       `json:"last_updated"`
	Description   string          `json:"description,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Owner         string          `json:"owner,omitempty"`
	Privacy       string          `json:"privacy"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Stats         *statsResponse  `json:"stats,omitempty"`
}

func collectionToResponse(c domcol.Collection) collectionResponse {
	return collectionResponse{
		Name:          c.Name(),
		Dimension:     c.Dimension(),
		Metric:        string(c.Metric()),
		VectorCount:   c.VectorCount(),
		DocumentCount: c.DocumentCount(),
		CreatedAt:     time.UnixMilli(c.CreatedAt()).UTC(),
		LastUpdated:   time.UnixMilli(c.LastUpdated()).UTC(),
		Description:   c.Description(),
		Tags:          c.Tags(),
		Owner:         c.Owner(),
		Privacy:       string(c.Privacy()),
		Metadata:      blobToJSON(c.Metadata()),
	}
}

type statsResponse struct {
	Timestamp       int64                   `json:"timestamp"`
	VectorCount     int64                   `json:"vector_count"`
	DocumentCount   int64                   `json:"document_count"`
	AvgSearchTimeMs float64                 `json:"avg_search_time_ms"`
	QueriesPerDay   int64                   `json:"queries_per_day"`
	GNNImprovement  float64                 `json:"gnn_improvement"`
	Tiers           domcol.TierDistribution `json:"tiers"`
}

func statsToResponse(s domcol.Stats) statsResponse {
	return statsResponse{
		Timestamp:       s.Timestamp,
		VectorCount:     s.VectorCount,
		DocumentCount:   s.DocumentCount,
		AvgSearchTimeMs: s.AvgSearchTimeMs,
		QueriesPerDay:   s.QueriesPerDay,
		GNNImprovement:  s.GNNImprovement,
		Tiers:           s.Tiers,
	}
}

type collectionStatsResponse struct {
	Stats   statsResponse   `json:"stats"`
	History []statsResponse `json:"history,omitempty"`
}

type insertVectorRequest struct {
	ID        string          `json:"id"`
	Text      string          `json:"text,omitempty"`
	Embedding []float32       `json:"embedding,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type vectorResponse struct {
	Key        string `json:"key"`
	ID         string `json:"id"`
	Collection string `json:"collection"`
	CreatedAt  int64  `json:"created_at"`
}

type searchRequest struct {
	Query             string    `json:"query,omitempty"`
	Embedding         []float32 `json:"embedding,omitempty"`
	K                 int       `json:"k,omitempty"`
	Collections       []string  `json:"collections,omitempty"`
	All               bool      `json:"all,omitempty"`
	IncludeCollection bool      `json:"include_collection,omitempty"`
}

type hitResponse struct {
	Key            string              `json:"key"`
	ID             string              `json:"id"`
	CollectionName string              `json:"collection_name"`
	Score          float64             `json:"score"`
	Metadata       json.RawMessage     `json:"metadata,omitempty"`
	CreatedAt      int64               `json:"created_at"`
	Collection     *collectionResponse `json:"collection,omitempty"`
}

type skippedResponse struct {
	Collection string `json:"collection"`
	Reason     string `json:"reason"`
}

type searchResponse struct {
	Hits     []hitResponse     `json:"hits"`
	Searched []string          `json:"searched"`
	Skipped  []skippedResponse `json:"skipped,omitempty"`
	Partial  bool              `json:"partial"`
}

func searchToResponse(r domsearch.Response) searchResponse {
	out := searchResponse{
		Hits:     make([]hitResponse, len(r.Hits)),
		Searched: r.Searched,
		Skipped:  skippedToResponse(r.Skipped),
		Partial:  r.Partial(),
	}
	if out.Searched == nil {
		out.Searched = []string{}
	}
	for i, h := range r.Hits {
		out.Hits[i] = hitResponse{
			Key:            h.Key,
			ID:             h.ID,
			CollectionName: h.CollectionName,
			Score:          h.Score,
			Metadata:       blobToJSON(h.Metadata),
			CreatedAt:      h.CreatedAt,
		}
		if h.Collection != nil {
			c := collectionToResponse(*h.Collection)
			out.Hits[i].Collection = &c
		}
	}
	return out
}

func skippedToResponse(skipped []domsearch.Skipped) []skippedResponse {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]skippedResponse, len(skipped))
	for i, s := range skipped {
		out[i] = skippedResponse{Collection: s.Collection, Reason: s.Reason}
	}
	return out
}

type migrationRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type taskResponse struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Total        int64  `json:"total"`
	Moved        int64  `json:"moved"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	StartedAt    int64  `json:"started_at,omitempty"`
	CompletedAt  int64  `json:"completed_at,omitempty"`
}

func taskToResponse(t dommig.Task) taskResponse {
	return taskResponse{
		ID:           t.ID(),
		Source:       t.Source(),
		Target:       t.Target(),
		Status:       string(t.Status()),
		Progress:     t.Progress(),
		Total:        t.Total(),
		Moved:        t.Moved(),
		ErrorMessage: t.ErrorMessage(),
		CreatedAt:    t.CreatedAt(),
		StartedAt:    t.StartedAt(),
		CompletedAt:  t.CompletedAt(),
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Skipped []skippedResponse `json:"skipped,omitempty"`
}

func blobFromJSON(raw json.RawMessage) domain.Blob {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return domain.Blob(raw)
}

// blobToJSON passes JSON blobs through and quotes anything else as a string.
func blobToJSON(b domain.Blob) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
