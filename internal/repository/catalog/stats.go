package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
)

// AppendStats appends one snapshot for a collection in a single transaction.
// next receives the latest snapshot (zero if none) and returns the new point;
// counters and tier distribution are filled from live rows afterwards.
func (r *Repo) AppendStats(
	ctx context.Context, name string, next func(prev domcol.Stats, now time.Time) domcol.Stats,
) (domcol.Stats, error) {
	var out domcol.Stats
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		col, err := getCollection(ctx, q, name)
		if err != nil {
			return err
		}
		prev, err := latestStats(ctx, q, name)
		if err != nil {
			return err
		}

		now := r.now()
		s := next(prev, now)
		s.CollectionName = name
		if s.Timestamp <= prev.Timestamp {
			s.Timestamp = domcol.NextTimestamp(prev.Timestamp, now)
		}
		s.VectorCount = col.VectorCount()
		s.DocumentCount = col.DocumentCount()
		if s.Tiers, err = r.tierCounts(ctx, q, name, now); err != nil {
			return err
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO stats_snapshots (`+statsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.CollectionName, s.Timestamp, s.VectorCount, s.DocumentCount,
			s.AvgSearchTimeMs, s.QueriesPerDay, s.GNNImprovement,
			s.Tiers.Hot, s.Tiers.Warm, s.Tiers.Cold)
		if err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		out = s
		return nil
	})
	if err != nil {
		return domcol.Stats{}, err
	}
	return out, nil
}

// LatestStats returns the newest snapshot of a collection, or zero stats if none exist.
func (r *Repo) LatestStats(ctx context.Context, name string) (domcol.Stats, error) {
	return latestStats(ctx, r.store, name)
}

func latestStats(ctx context.Context, q sqlite.Querier, name string) (domcol.Stats, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM stats_snapshots WHERE collection_name = ?
		 ORDER BY timestamp DESC LIMIT 1`, name)
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domcol.Stats{}, nil
	}
	if err != nil {
		return domcol.Stats{}, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return s, nil
}

// StatsHistory returns up to limit snapshots of a collection, newest first.
func (r *Repo) StatsHistory(ctx context.Context, name string, limit int) ([]domcol.Stats, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+statsColumns+` FROM stats_snapshots WHERE collection_name = ?
		 ORDER BY timestamp DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return collectRows(rows, scanStats)
}

// PruneStats deletes snapshots older than before, always keeping the newest one per collection.
func (r *Repo) PruneStats(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.store.ExecContext(ctx,
		`DELETE FROM stats_snapshots WHERE timestamp < ? AND timestamp < (
			SELECT max(s2.timestamp) FROM stats_snapshots s2
			WHERE s2.collection_name = stats_snapshots.collection_name)`,
		before.UnixMilli())
	if err != nil {
		return 0, sqlite.Wrap(sqlite.OpExec, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, sqlite.Wrap(sqlite.OpExec, err)
	}
	return n, nil
}

func (r *Repo) tierCounts(
	ctx context.Context, q sqlite.Querier, name string, now time.Time,
) (domcol.TierDistribution, error) {
	hotFrom := now.Add(-r.tiers.HotAfter).UnixMilli()
	warmFrom := now.Add(-r.tiers.WarmAfter).UnixMilli()

	var t domcol.TierDistribution
	err := q.QueryRowContext(ctx,
		`SELECT
			coalesce(sum(CASE WHEN created_at > ? THEN 1 ELSE 0 END), 0),
			coalesce(sum(CASE WHEN created_at <= ? AND created_at > ? THEN 1 ELSE 0 END), 0),
			coalesce(sum(CASE WHEN created_at <= ? THEN 1 ELSE 0 END), 0)
		 FROM vector_mappings WHERE collection_name = ?`,
		hotFrom, hotFrom, warmFrom, warmFrom, name).Scan(&t.Hot, &t.Warm, &t.Cold)
	if err != nil {
		return domcol.TierDistribution{}, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return t, nil
}
