// Package storage provides the default sqlite-backed implementations
// of the three collaborator interfaces the router needs to persist
// state across restarts: the routing cache (internal/cache.Store), the
// bandit's performance records (internal/selector.PerfStore), and the
// append-only decision log (internal/decisionlog.DecisionStore). All
// three share one *DB connection and one schema file.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the shared sqlite connection used by CacheStore, PerfStore,
// and DecisionLogStore.
type DB struct {
	conn *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS routing_cache (
	exact_hash           TEXT PRIMARY KEY,
	normalized_text      TEXT NOT NULL,
	embedding            TEXT,
	category             TEXT NOT NULL,
	features             TEXT,
	complexity           TEXT NOT NULL,
	confidence           REAL NOT NULL DEFAULT 0,
	estimated_cost       REAL NOT NULL DEFAULT 0,
	estimated_latency_ms INTEGER NOT NULL DEFAULT 0,
	backend              TEXT NOT NULL,
	reasoning            TEXT,
	suggested_tools      TEXT,
	created_at           DATETIME NOT NULL,
	expires_at           DATETIME NOT NULL,
	hit_count            INTEGER NOT NULL DEFAULT 0,
	last_hit_at          DATETIME,
	is_active            INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_routing_cache_expires_at ON routing_cache(expires_at);

CREATE TABLE IF NOT EXISTS decision_log (
	request_id          TEXT PRIMARY KEY,
	query_text          TEXT NOT NULL,
	category            TEXT,
	complexity          TEXT,
	confidence          REAL,
	backend             TEXT NOT NULL,
	agent_id            TEXT,
	reason              TEXT,
	forced              INTEGER NOT NULL DEFAULT 0,
	cache_hit           INTEGER NOT NULL DEFAULT 0,
	cache_tier          TEXT,
	verdict             TEXT,
	comment             TEXT,
	corrected_backend   TEXT,
	created_at          DATETIME NOT NULL,
	processing_time_ms  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_decision_log_created_at ON decision_log(created_at);

CREATE TABLE IF NOT EXISTS performance_records (
	agent_id               TEXT NOT NULL,
	task_type              TEXT NOT NULL,
	total_executions       INTEGER NOT NULL DEFAULT 0,
	successful_executions  INTEGER NOT NULL DEFAULT 0,
	average_latency_ms     REAL NOT NULL DEFAULT 0,
	average_quality_score  REAL NOT NULL DEFAULT 0,
	last_execution         DATETIME,
	PRIMARY KEY (agent_id, task_type)
);
`

// Open creates (or reuses) a sqlite database at dbPath, applying the
// three-table schema above, and returns the shared DB handle every
// adapter is built from.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: failed to create db directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: failed to apply schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Vacuum reclaims space freed by Prune; an administrative operation,
// not wired to any automatic trigger.
func (d *DB) Vacuum() error {
	_, err := d.conn.Exec("VACUUM")
	return err
}
