package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	dommap "github.com/kailas-cloud/vecspace/internal/domain/mapping"
)

const collectionColumns = `name, dimension, metric, vector_count, document_count,
	created_at, last_updated, description, tags, owner, privacy, metadata`

const mappingColumns = `vector_id, collection_name, namespace_prefix, original_metadata, created_at`

const statsColumns = `collection_name, timestamp, vector_count, document_count,
	avg_search_time_ms, queries_per_day, gnn_improvement, tier_hot, tier_warm, tier_cold`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (domcol.Collection, error) {
	var (
		st       domcol.State
		metric   string
		privacy  string
		tagsJSON string
		metadata []byte
	)
	err := row.Scan(&st.Name, &st.Dimension, &metric, &st.VectorCount, &st.DocumentCount,
		&st.CreatedAt, &st.LastUpdated, &st.Description, &tagsJSON, &st.Owner, &privacy, &metadata)
	if err != nil {
		return domcol.Collection{}, err
	}
	st.Metric = domcol.Metric(metric)
	st.Privacy = domcol.Privacy(privacy)
	if len(metadata) > 0 {
		st.Metadata = domain.Blob(metadata)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &st.Tags); err != nil {
		return domcol.Collection{}, fmt.Errorf("collection %q: unmarshal tags: %w", st.Name, err)
	}
	return domcol.Reconstruct(st), nil
}

func collectionArgs(col domcol.Collection) ([]any, error) {
	st := col.State()
	tags := st.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return []any{
		st.Name, st.Dimension, string(st.Metric), st.VectorCount, st.DocumentCount,
		st.CreatedAt, st.LastUpdated, st.Description, string(tagsJSON), st.Owner,
		string(st.Privacy), nullBlob(st.Metadata),
	}, nil
}

func scanMapping(row rowScanner) (dommap.Mapping, error) {
	var (
		id, col, prefix string
		metadata        []byte
		createdAt       int64
	)
	if err := row.Scan(&id, &col, &prefix, &metadata, &createdAt); err != nil {
		return dommap.Mapping{}, err
	}
	var blob domain.Blob
	if len(metadata) > 0 {
		blob = domain.Blob(metadata)
	}
	return dommap.Reconstruct(id, col, prefix, blob, createdAt), nil
}

func scanStats(row rowScanner) (domcol.Stats, error) {
	var s domcol.Stats
	err := row.Scan(&s.CollectionName, &s.Timestamp, &s.VectorCount, &s.DocumentCount,
		&s.AvgSearchTimeMs, &s.QueriesPerDay, &s.GNNImprovement,
		&s.Tiers.Hot, &s.Tiers.Warm, &s.Tiers.Cold)
	return s, err
}

func nullBlob(b domain.Blob) any {
	if b == nil {
		return nil
	}
	return []byte(b)
}

func collectRows[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, sqlite.Wrap(sqlite.OpScan, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Wrap(sqlite.OpScan, err)
	}
	return out, nil
}
