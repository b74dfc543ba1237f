package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists the snapshot as a single jsonb row. The check
// constraint pins the table to one row so Save is a plain upsert.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed snapshot store and ensures its
// table exists.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS ledger_snapshot (
			id         smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			records    jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure ledger snapshot table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT records FROM ledger_snapshot WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode ledger snapshot: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Save(ctx context.Context, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshot (id, records, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET records = EXCLUDED.records, updated_at = now()`,
		payload)
	if err != nil {
		return fmt.Errorf("save ledger snapshot: %w", err)
	}
	return nil
}
