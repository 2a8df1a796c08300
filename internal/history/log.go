// Package history records each dispatched command for local inspection.
// The CLI appends around every dispatch; the dispatch layer stays unaware.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is one dispatched command.
type Record struct {
	ID        string
	Command   string
	Transport string
	Status    string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Log is the SQLite-backed invocation log.
type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Append stores a record, assigning an ID and timestamp when absent.
func (l *Log) Append(ctx context.Context, rec Record) (string, error) {
	if rec.Command == "" {
		return "", fmt.Errorf("record command is empty")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
INSERT INTO invocation_log (id, command, transport, status, error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.Command, rec.Transport, rec.Status, errText,
		rec.Duration.Milliseconds(), rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("append invocation: %w", err)
	}
	return rec.ID, nil
}

// Recent returns up to limit records, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx, `
SELECT id, command, transport, status, error, duration_ms, created_at
FROM invocation_log ORDER BY created_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocation log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			errText    sql.NullString
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.Command, &rec.Transport, &rec.Status,
			&errText, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		rec.Error = errText.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
