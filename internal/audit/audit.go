// Package audit records which model operations ran, for whom and with what
// outcome. Generated content is never stored.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Operation names recorded in Entry.Operation.
const (
	OpAnalyze  = "reverse_design_analyze"
	OpSplit    = "reverse_design_text"
	OpGenerate = "reverse_design_generate"
	OpPipeline = "reverse_design_pipeline"
)

// DefaultLimit bounds Recent when the caller passes a non-positive limit.
const DefaultLimit = 50

// Entry is one audited operation.
type Entry struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	SessionID  string    `json:"session_id,omitempty"`
	ImageCount int       `json:"image_count"`
	Model      string    `json:"model,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	MediaKeys  []string  `json:"media_keys,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Log is the audit sink used by the service.
type Log interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close()
}

// NewLog selects a backing log based on whether a database URL is provided.
func NewLog(ctx context.Context, databaseURL string) (Log, error) {
	if databaseURL == "" {
		return NewMemoryLog(DefaultLimit * 4), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresLog{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS design_audit (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		session_id TEXT,
		image_count INTEGER NOT NULL DEFAULT 0,
		model TEXT,
		success BOOLEAN NOT NULL,
		error TEXT,
		media_keys TEXT[],
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create design_audit table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS design_audit_created_at_idx ON design_audit (created_at DESC)`); err != nil {
		return fmt.Errorf("create design_audit index: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > DefaultLimit*4 {
		return DefaultLimit * 4
	}
	return limit
}
