package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
)

// enrich turns raw neighbors into hits via the catalog mappings. Neighbors with
// no live mapping in the searched collection are orphans and are dropped.
func (r *Router) enrich(
	ctx context.Context, neighbors map[string][]domain.Neighbor, targets []domcol.Collection, withCollection bool,
) ([]domsearch.Hit, error) {
	var keys []string
	for _, ns := range neighbors {
		for _, n := range ns {
			keys = append(keys, n.Key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	mappings, err := r.catalog.MappingsByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("enrich hits: %w", err)
	}

	byName := make(map[string]*domcol.Collection, len(targets))
	for i := range targets {
		byName[targets[i].Name()] = &targets[i]
	}

	hits := make([]domsearch.Hit, 0, len(keys))
	for name, ns := range neighbors {
		for _, n := range ns {
			m, ok := mappings[n.Key]
			if !ok || m.Collection() != name {
				r.logger.Warn("Dropping orphan vector", zap.String("key", n.Key), zap.String("collection", name))
				continue
			}
			h := domsearch.Hit{
				Key:            n.Key,
				ID:             m.RawID(),
				CollectionName: m.Collection(),
				Score:          n.Score,
				Metadata:       m.Metadata(),
				CreatedAt:      m.CreatedAt(),
			}
			if withCollection {
				h.Collection = byName[name]
			}
			hits = append(hits, h)
		}
	}
	return hits, nil
}

// merge orders hits by score descending, then mapping createdAt ascending, then
// key, and truncates to k.
func merge(hits []domsearch.Hit, k int) []domsearch.Hit {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Key < b.Key
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
