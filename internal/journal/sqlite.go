// Package journal persists every delivery attempt to SQLite. It is
// the server-side record of outcomes the user never sees, which is
// what makes the complaint failure-masking policy observable.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/pipeline"
)

// SQLite is the journal backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open creates or opens the journal database at dbPath.
func Open(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps writers from blocking the operator's reads.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	j := &SQLite{db: db}
	if err := j.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLite) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS delivery_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		form_kind TEXT NOT NULL,
		user_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		delivered INTEGER NOT NULL,
		terminal INTEGER NOT NULL,
		external_id TEXT,
		error TEXT,
		attempted_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_record ON delivery_attempts(record_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_at ON delivery_attempts(attempted_at);
	`
	if _, err := j.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (j *SQLite) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the database connection.
func (j *SQLite) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// RecordAttempt appends one delivery attempt. Implements
// pipeline.AttemptRecorder.
func (j *SQLite) RecordAttempt(ctx context.Context, a pipeline.DeliveryAttempt) error {
	query := `
	INSERT INTO delivery_attempts
		(record_id, form_kind, user_id, attempt, delivered, terminal, external_id, error, attempted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var externalID, errText interface{}
	if a.ExternalID != "" {
		externalID = a.ExternalID
	}
	if a.Error != "" {
		errText = a.Error
	}

	_, err := j.db.ExecContext(ctx, query,
		a.RecordID, string(a.FormKind), a.UserID, a.Attempt,
		a.Delivered, a.Terminal, externalID, errText, a.At.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert delivery attempt: %w", err)
	}
	return nil
}

// Recent returns the latest attempts, newest first.
func (j *SQLite) Recent(ctx context.Context, limit int) ([]pipeline.DeliveryAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `
	SELECT record_id, form_kind, user_id, attempt, delivered, terminal, external_id, error, attempted_at
	FROM delivery_attempts ORDER BY id DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []pipeline.DeliveryAttempt
	for rows.Next() {
		var a pipeline.DeliveryAttempt
		var kind string
		var externalID, errText sql.NullString
		var at int64

		if err := rows.Scan(&a.RecordID, &kind, &a.UserID, &a.Attempt,
			&a.Delivered, &a.Terminal, &externalID, &errText, &at); err != nil {
			return nil, fmt.Errorf("scan delivery attempt: %w", err)
		}
		a.FormKind = domain.FormKind(kind)
		a.ExternalID = externalID.String
		a.Error = errText.String
		a.At = time.Unix(at, 0)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery attempts: %w", err)
	}
	return attempts, nil
}

// FailedSince counts undelivered terminal-or-exhausted records after
// the cutoff. Used by the health surface to expose masked failures.
func (j *SQLite) FailedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
	SELECT COUNT(*) FROM delivery_attempts
	WHERE delivered = 0 AND attempted_at >= ?`

	var n int64
	if err := j.db.QueryRowContext(ctx, query, cutoff.Unix()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed attempts: %w", err)
	}
	return n, nil
}
