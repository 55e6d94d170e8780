package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed account store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the accounts table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			account       VARCHAR(64) PRIMARY KEY,
			name          TEXT NOT NULL,
			phone         VARCHAR(32) NOT NULL DEFAULT '',
			password_hash CHAR(64) NOT NULL,
			pin_hash      CHAR(64) NOT NULL,
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, acct *Account) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (account, name, phone, password_hash, pin_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, acct.Account, acct.Name, acct.Phone, acct.PasswordHash, acct.PINHash, acct.Active, acct.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (p *PostgresStore) FindByAccount(ctx context.Context, account string) (*Account, error) {
	var acct Account
	err := p.db.QueryRowContext(ctx, `
		SELECT account, name, phone, password_hash, pin_hash, is_active, created_at
		FROM accounts WHERE account = $1
	`, account).Scan(&acct.Account, &acct.Name, &acct.Phone, &acct.PasswordHash,
		&acct.PINHash, &acct.Active, &acct.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &acct, nil
}
