// Package sqlite is the operation journal: an append-only record of
// downloads, removals, and inference runs for operator diagnosis.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"database/sql"
)

// Operation kinds and terminal statuses as stored in the journal.
const (
	OpDownload = "download"
	OpRemove   = "remove"
	OpGenerate = "generate"
	OpChat     = "chat"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Operation is one journal row.
type Operation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS operations (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			model      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_created ON operations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_kind ON operations(kind)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Operation Journal ──────────────────────────────────────────────────────

// InsertOperation appends one journal row.
func (d *DB) InsertOperation(op Operation) error {
	_, err := d.db.Exec(
		`INSERT INTO operations (id, kind, model, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.ID, op.Kind, op.Model, op.Status, op.Detail, op.CreatedAt.Unix(),
	)
	return err
}

// ListOperations returns the most recent rows, newest first. A limit of
// zero or less means 50.
func (d *DB) ListOperations(limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(
		`SELECT id, kind, model, status, detail, created_at
		 FROM operations ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		var createdAt int64
		if err := rows.Scan(&op.ID, &op.Kind, &op.Model, &op.Status, &op.Detail, &createdAt); err != nil {
			return nil, err
		}
		op.CreatedAt = time.Unix(createdAt, 0)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// CountOperations reports how many rows match status ("" counts all).
func (d *DB) CountOperations(status string) (int, error) {
	var n int
	var err error
	if status == "" {
		err = d.db.QueryRow(`SELECT COUNT(*) FROM operations`).Scan(&n)
	} else {
		err = d.db.QueryRow(`SELECT COUNT(*) FROM operations WHERE status = ?`, status).Scan(&n)
	}
	return n, err
}
