package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog persists audit entries in PostgreSQL.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// Record inserts the entry.
func (l *PostgresLog) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO design_audit (id, operation, session_id, image_count, model, success, error, media_keys, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Operation, entry.SessionID, entry.ImageCount, entry.Model,
		entry.Success, entry.Error, entry.MediaKeys, entry.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// Recent returns the newest entries first.
func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, operation, COALESCE(session_id, ''), image_count, COALESCE(model, ''), success,
		        COALESCE(error, ''), COALESCE(media_keys, '{}'), created_at
		   FROM design_audit ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.Operation, &e.SessionID, &e.ImageCount, &e.Model,
			&e.Success, &e.Error, &e.MediaKeys, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	return entries, nil
}

// Close releases database resources.
func (l *PostgresLog) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
