package blacklist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sganesh/fraudguard/internal/idgen"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed denylist store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the blacklist table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blacklist_entries (
			id         VARCHAR(36) PRIMARY KEY,
			entry_type VARCHAR(20) NOT NULL,
			value      VARCHAR(128) NOT NULL,
			reasons    TEXT[] NOT NULL DEFAULT '{}',
			blocked_by VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (entry_type, value)
		);
	`)
	return err
}

func (p *PostgresStore) FindByTypeAndValue(ctx context.Context, typ, value string) (*Entry, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, entry_type, value, reasons, blocked_by, created_at, updated_at
		FROM blacklist_entries
		WHERE entry_type = $1 AND value = $2
	`, typ, value)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find blacklist entry: %w", err)
	}
	return entry, nil
}

// UpsertAppendReason relies on ON CONFLICT to stay atomic under concurrent
// failed-PIN events for the same recipient: the unique (type, value)
// constraint guarantees a single entry, and the conflict branch appends
// the new reason to it.
func (p *PostgresStore) UpsertAppendReason(ctx context.Context, typ, value, reason, blockedBy string) (*Entry, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO blacklist_entries (id, entry_type, value, reasons, blocked_by, created_at, updated_at)
		VALUES ($1, $2, $3, ARRAY[$4], $5, NOW(), NOW())
		ON CONFLICT (entry_type, value) DO UPDATE
			SET reasons = blacklist_entries.reasons || EXCLUDED.reasons,
			    updated_at = NOW()
		RETURNING id, entry_type, value, reasons, blocked_by, created_at, updated_at
	`, idgen.WithPrefix("bl_"), typ, value, reason, blockedBy)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("upsert blacklist entry: %w", err)
	}
	return entry, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, entry_type, value, reasons, blocked_by, created_at, updated_at
		FROM blacklist_entries
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list blacklist entries: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var reasons pq.StringArray
	var createdAt, updatedAt time.Time

	err := row.Scan(&entry.ID, &entry.Type, &entry.Value, &reasons,
		&entry.BlockedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	entry.Reasons = []string(reasons)
	entry.CreatedAt = createdAt
	entry.UpdatedAt = updatedAt
	return &entry, nil
}
