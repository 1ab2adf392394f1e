package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// store is the consumer interface for the relational store (ISP).
type store interface {
	sqlite.Querier
	WithTx(ctx context.Context, fn func(q sqlite.Querier) error) error
}

// Repo implements usecase/catalog.Repository over SQLite.
type Repo struct {
	store store
	tiers domcol.TierPolicy
	now   func() time.Time
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{
		store: s,
		tiers: domcol.TierPolicy{HotAfter: 24 * time.Hour, WarmAfter: 7 * 24 * time.Hour},
		now:   time.Now,
	}
}

// WithTierPolicy overrides the hot/warm age thresholds.
func (r *Repo) WithTierPolicy(p domcol.TierPolicy) *Repo {
	if p.HotAfter > 0 {
		r.tiers.HotAfter = p.HotAfter
	}
	if p.WarmAfter > 0 {
		r.tiers.WarmAfter = p.WarmAfter
	}
	return r
}

// Create inserts a new collection row.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	args, err := collectionArgs(col)
	if err != nil {
		return err
	}
	_, err = r.store.ExecContext(ctx,
		`INSERT INTO collections (`+collectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("collection %q: %w", col.Name(), domain.ErrAlreadyExists)
		}
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	return nil
}

// Get loads a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	return getCollection(ctx, r.store, name)
}

func getCollection(ctx context.Context, q sqlite.Querier, name string) (domcol.Collection, error) {
	row := q.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE name = ?`, name)
	col, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domcol.Collection{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domcol.Collection{}, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return col, nil
}

// List returns collections in creation order. Owner and privacy are filtered in
// SQL; tag membership and the page window are applied afterwards.
func (r *Repo) List(ctx context.Context, f domcol.Filter) ([]domcol.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE 1 = 1`
	var args []any
	if f.Owner != "" {
		query += ` AND owner = ?`
		args = append(args, f.Owner)
	}
	if f.Privacy != "" {
		query += ` AND privacy = ?`
		args = append(args, string(f.Privacy))
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := r.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	all, err := collectRows(rows, scanCollection)
	if err != nil {
		return nil, err
	}

	out := make([]domcol.Collection, 0, len(all))
	skipped := 0
	for _, col := range all {
		if !f.Matches(col) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, col)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Update loads a collection, applies fn and writes the mutable columns back in one transaction.
func (r *Repo) Update(
	ctx context.Context, name string, fn func(domcol.Collection) (domcol.Collection, error),
) (domcol.Collection, error) {
	var updated domcol.Collection
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		cur, err := getCollection(ctx, q, name)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		args, err := collectionArgs(next)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE collections SET last_updated = ?, description = ?, tags = ?, owner = ?,
			 privacy = ?, metadata = ? WHERE name = ?`,
			args[6], args[7], args[8], args[9], args[10], args[11], name)
		if err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return domcol.Collection{}, err
	}
	return updated, nil
}

// Delete removes a collection according to policy in one transaction.
// With DeleteCascade it returns the namespaced keys whose mappings were removed.
func (r *Repo) Delete(ctx context.Context, name string, policy domcol.DeletePolicy) ([]string, error) {
	var removed []string
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		col, err := getCollection(ctx, q, name)
		if err != nil {
			return err
		}

		if col.VectorCount() > 0 {
			if policy != domcol.DeleteCascade {
				return fmt.Errorf("collection %q holds %d vectors: %w", name, col.VectorCount(), domain.ErrNotEmpty)
			}
			removed, err = mappingKeys(ctx, q, name)
			if err != nil {
				return err
			}
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM vector_mappings WHERE collection_name = ?`, name); err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM stats_snapshots WHERE collection_name = ?`, name); err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func mappingKeys(ctx context.Context, q sqlite.Querier, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT vector_id FROM vector_mappings WHERE collection_name = ? ORDER BY created_at, vector_id`, name)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return collectRows(rows, func(row rowScanner) (string, error) {
		var key string
		err := row.Scan(&key)
		return key, err
	})
}
