package sqlite

import "database/sql"

// Counters on collections are only written in the same transaction as the
// vector_mappings rows they count. The partial unique index on migration_tasks
// allows at most one active migration per source collection.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name           TEXT PRIMARY KEY,
	dimension      INTEGER NOT NULL CHECK (dimension > 0),
	metric         TEXT NOT NULL,
	vector_count   INTEGER NOT NULL DEFAULT 0 CHECK (vector_count >= 0),
	document_count INTEGER NOT NULL DEFAULT 0 CHECK (document_count >= 0),
	created_at     INTEGER NOT NULL,
	last_updated   INTEGER NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	owner          TEXT NOT NULL DEFAULT '',
	privacy        TEXT NOT NULL,
	metadata       BLOB
);

CREATE INDEX IF NOT EXISTS idx_collections_created_at ON collections(created_at);
CREATE INDEX IF NOT EXISTS idx_collections_owner ON collections(owner);

CREATE TABLE IF NOT EXISTS vector_mappings (
	vector_id         TEXT PRIMARY KEY,
	collection_name   TEXT NOT NULL REFERENCES collections(name),
	namespace_prefix  TEXT NOT NULL,
	original_metadata BLOB,
	created_at        INTEGER NOT NULL,
	CHECK (namespace_prefix = collection_name)
);

CREATE INDEX IF NOT EXISTS idx_mappings_collection ON vector_mappings(collection_name, created_at);

CREATE TABLE IF NOT EXISTS stats_snapshots (
	collection_name    TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	timestamp          INTEGER NOT NULL,
	vector_count       INTEGER NOT NULL CHECK (vector_count >= 0),
	document_count     INTEGER NOT NULL CHECK (document_count >= 0),
	avg_search_time_ms REAL NOT NULL DEFAULT 0,
	queries_per_day    INTEGER NOT NULL DEFAULT 0,
	gnn_improvement    REAL NOT NULL DEFAULT 0,
	tier_hot           INTEGER NOT NULL DEFAULT 0,
	tier_warm          INTEGER NOT NULL DEFAULT 0,
	tier_cold          INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (collection_name, timestamp)
);

CREATE TABLE IF NOT EXISTS migration_tasks (
	id                TEXT PRIMARY KEY,
	source_collection TEXT NOT NULL,
	target_collection TEXT NOT NULL,
	status            TEXT NOT NULL,
	progress          INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
	total             INTEGER NOT NULL DEFAULT 0,
	moved             INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT,
	created_at        INTEGER NOT NULL,
	started_at        INTEGER,
	completed_at      INTEGER,
	CHECK (source_collection <> target_collection)
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON migration_tasks(status, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_active_source
	ON migration_tasks(source_collection) WHERE status IN ('pending', 'running');
`

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
