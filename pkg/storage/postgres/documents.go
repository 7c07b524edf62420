package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Execer is the subset of *pgxpool.Pool the store needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// DocumentStore keeps one jsonb row per document id.
type DocumentStore struct {
	db     Execer
	table  string
	logger *zap.Logger
}

// NewDocumentStore creates a store writing to table.
func NewDocumentStore(db Execer, table string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger,
	}
}

// InitSchema creates the documents table when it does not exist.
func (s *DocumentStore) InitSchema(ctx context.Context) error {
	s.logger.Info("Initializing database schema", zap.String("table", s.table))

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Upsert writes doc under id, replacing any earlier version.
func (s *DocumentStore) Upsert(ctx context.Context, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, document) VALUES ($1, $2::jsonb)
ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`, s.table)

	if _, err := s.db.Exec(ctx, query, id, string(raw)); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, err)
	}

	s.logger.Debug("Stored document", zap.String("id", id), zap.String("table", s.table))
	return nil
}

// Delete removes the document stored under id. Deleting a missing id is
// not an error.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	s.logger.Debug("Deleted document", zap.String("id", id), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// Name identifies the store in logs.
func (s *DocumentStore) Name() string {
	return "postgres " + s.table
}
