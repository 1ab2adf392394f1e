package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	dommap "github.com/kailas-cloud/vecspace/internal/domain/mapping"
)

// maxLookupKeys bounds the IN (...) list per query, below SQLite's variable limit.
const maxLookupKeys = 500

// InsertMapping stores a mapping and bumps the owner's counters in one transaction.
func (r *Repo) InsertMapping(ctx context.Context, m dommap.Mapping) error {
	return r.store.WithTx(ctx, func(q sqlite.Querier) error {
		if err := adjustCounters(ctx, q, m.Collection(), 1, m.CreatedAt()); err != nil {
			return err
		}
		return insertMapping(ctx, q, m)
	})
}

// DeleteMapping removes a mapping and decrements its owner's counters in one
// transaction. It reports false without error when the key has no mapping.
func (r *Repo) DeleteMapping(ctx context.Context, key string) (bool, error) {
	var removed bool
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		var col string
		err := q.QueryRowContext(ctx,
			`SELECT collection_name FROM vector_mappings WHERE vector_id = ?`, key).Scan(&col)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return sqlite.Wrap(sqlite.OpQuery, err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM vector_mappings WHERE vector_id = ?`, key); err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		if err := adjustCounters(ctx, q, col, -1, r.now().UnixMilli()); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// GetMapping loads one mapping by namespaced key.
func (r *Repo) GetMapping(ctx context.Context, key string) (dommap.Mapping, error) {
	row := r.store.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM vector_mappings WHERE vector_id = ?`, key)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dommap.Mapping{}, fmt.Errorf("mapping %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return dommap.Mapping{}, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return m, nil
}

// GetMappings loads the mappings that exist among keys, indexed by key.
func (r *Repo) GetMappings(ctx context.Context, keys []string) (map[string]dommap.Mapping, error) {
	out := make(map[string]dommap.Mapping, len(keys))
	for start := 0; start < len(keys); start += maxLookupKeys {
		chunk := keys[start:min(start+maxLookupKeys, len(keys))]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		rows, err := r.store.QueryContext(ctx,
			`SELECT `+mappingColumns+` FROM vector_mappings WHERE vector_id IN (`+placeholders(len(chunk))+`)`,
			args...)
		if err != nil {
			return nil, sqlite.Wrap(sqlite.OpQuery, err)
		}
		ms, err := collectRows(rows, scanMapping)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			out[m.VectorID()] = m
		}
	}
	return out, nil
}

// ListMappings returns up to limit mappings of a collection in creation order.
// A positive createdBefore (unix millis, inclusive) skips newer mappings.
func (r *Repo) ListMappings(
	ctx context.Context, collection string, createdBefore int64, limit int,
) ([]dommap.Mapping, error) {
	if createdBefore <= 0 {
		createdBefore = math.MaxInt64
	}
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+mappingColumns+` FROM vector_mappings WHERE collection_name = ? AND created_at <= ?
		 ORDER BY created_at, vector_id LIMIT ?`, collection, createdBefore, limit)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return collectRows(rows, scanMapping)
}

// CountMappings counts the live mapping rows of a collection.
func (r *Repo) CountMappings(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := r.store.QueryRowContext(ctx,
		`SELECT count(*) FROM vector_mappings WHERE collection_name = ?`, collection).Scan(&n)
	if err != nil {
		return 0, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return n, nil
}

// MoveMappings re-keys a batch of source mappings under target in one
// transaction and shifts the counters. Mappings already gone from source are
// skipped. It returns the moved mappings under their new keys.
func (r *Repo) MoveMappings(
	ctx context.Context, source, target string, batch []dommap.Mapping,
) ([]dommap.Mapping, error) {
	var moved []dommap.Mapping
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		if _, err := getCollection(ctx, q, target); err != nil {
			return err
		}

		moved = moved[:0]
		for _, m := range batch {
			if m.Collection() != source {
				return fmt.Errorf("%w: mapping %q is not in source %q", domain.ErrMalformedKey, m.VectorID(), source)
			}
			next, err := m.MoveTo(target)
			if err != nil {
				return err
			}

			res, err := q.ExecContext(ctx, `DELETE FROM vector_mappings WHERE vector_id = ?`, m.VectorID())
			if err != nil {
				return sqlite.Wrap(sqlite.OpExec, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			if err := insertMapping(ctx, q, next); err != nil {
				return err
			}
			moved = append(moved, next)
		}

		if len(moved) == 0 {
			return nil
		}
		now := r.now().UnixMilli()
		if err := adjustCounters(ctx, q, source, -int64(len(moved)), now); err != nil {
			return err
		}
		return adjustCounters(ctx, q, target, int64(len(moved)), now)
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func insertMapping(ctx context.Context, q sqlite.Querier, m dommap.Mapping) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO vector_mappings (`+mappingColumns+`) VALUES (?, ?, ?, ?, ?)`,
		m.VectorID(), m.Collection(), m.Prefix(), nullBlob(m.Metadata()), m.CreatedAt())
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("vector %q: %w", m.VectorID(), domain.ErrAlreadyExists)
		}
		if sqlite.IsForeignKeyViolation(err) {
			return fmt.Errorf("collection %q: %w", m.Collection(), domain.ErrNotFound)
		}
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	return nil
}

// adjustCounters shifts vector and document counts of one collection row.
func adjustCounters(ctx context.Context, q sqlite.Querier, name string, delta, ts int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE collections SET vector_count = vector_count + ?, document_count = document_count + ?,
		 last_updated = max(last_updated, ?) WHERE name = ?`,
		delta, delta, ts, name)
	if err != nil {
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	if n == 0 {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// withClock pins the clock in tests.
func (r *Repo) withClock(now func() time.Time) *Repo {
	r.now = now
	return r
}
