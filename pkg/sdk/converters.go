package vecspace

import (
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
)

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func fromInternalCollection(c domcol.Collection) CollectionInfo {
	return CollectionInfo{
		Name:          c.Name(),
		Dimension:     c.Dimension(),
		Metric:        Metric(c.Metric()),
		VectorCount:   c.VectorCount(),
		DocumentCount: c.DocumentCount(),
		CreatedAt:     millis(c.CreatedAt()),
		LastUpdated:   millis(c.LastUpdated()),
		Description:   c.Description(),
		Tags:          c.Tags(),
		Owner:         c.Owner(),
		Privacy:       Privacy(c.Privacy()),
		Metadata:      c.Metadata(),
		Stats:         fromInternalStats(c.Stats()),
	}
}

func fromInternalStats(s domcol.Stats) StatsInfo {
	return StatsInfo{
		Timestamp:       millis(s.Timestamp),
		VectorCount:     s.VectorCount,
		DocumentCount:   s.DocumentCount,
		AvgSearchTimeMs: s.AvgSearchTimeMs,
		QueriesPerDay:   s.QueriesPerDay,
		GNNImprovement:  s.GNNImprovement,
		Hot:             s.Tiers.Hot,
		Warm:            s.Tiers.Warm,
		Cold:            s.Tiers.Cold,
	}
}

func toInternalPatch(u CollectionUpdate) domcol.Patch {
	p := domcol.Patch{Description: u.Description, Tags: u.Tags, Owner: u.Owner}
	if u.Privacy != nil {
		v := domcol.Privacy(*u.Privacy)
		p.Privacy = &v
	}
	if u.Metadata != nil {
		v := domain.Blob(*u.Metadata)
		p.Metadata = &v
	}
	return p
}

func fromInternalMapping(m mapping.Mapping) VectorInfo {
	return VectorInfo{
		Key:        m.VectorID(),
		ID:         m.RawID(),
		Collection: m.Collection(),
		CreatedAt:  millis(m.CreatedAt()),
	}
}

func toInternalSearch(r SearchRequest) domsearch.Request {
	scope := domsearch.Set(r.Collections...)
	if r.All {
		scope = domsearch.AllCollections()
	}
	return domsearch.Request{
		Query:             r.Query,
		Embedding:         r.Embedding,
		K:                 r.K,
		Scope:             scope,
		IncludeCollection: r.IncludeCollection,
	}
}

func fromInternalSearch(r domsearch.Response) SearchResult {
	out := SearchResult{
		Hits:     make([]Hit, len(r.Hits)),
		Searched: r.Searched,
		Skipped:  make([]Skipped, len(r.Skipped)),
	}
	for i, h := range r.Hits {
		out.Hits[i] = Hit{
			Key:        h.Key,
			ID:         h.ID,
			Collection: h.CollectionName,
			Score:      h.Score,
			Metadata:   h.Metadata,
			CreatedAt:  millis(h.CreatedAt),
		}
		if h.Collection != nil {
			info := fromInternalCollection(*h.Collection)
			out.Hits[i].Info = &info
		}
	}
	for i, s := range r.Skipped {
		out.Skipped[i] = Skipped{Collection: s.Collection, Reason: s.Reason}
	}
	return out
}

func fromInternalTask(t dommig.Task) MigrationInfo {
	return MigrationInfo{
		ID:          t.ID(),
		Source:      t.Source(),
		Target:      t.Target(),
		Status:      MigrationStatus(t.Status()),
		Progress:    t.Progress(),
		Total:       t.Total(),
		Moved:       t.Moved(),
		Error:       t.ErrorMessage(),
		CreatedAt:   millis(t.CreatedAt()),
		StartedAt:   millis(t.StartedAt()),
		CompletedAt: millis(t.CompletedAt()),
	}
}
