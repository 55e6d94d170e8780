package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id            VARCHAR(64) PRIMARY KEY,
			ts            TIMESTAMP NOT NULL,
			amount        NUMERIC(20,2) NOT NULL,
			location      TEXT NOT NULL DEFAULT '',
			card_type     VARCHAR(64) NOT NULL,
			currency      VARCHAR(8) NOT NULL DEFAULT '',
			recipient     VARCHAR(64) NOT NULL,
			client_ip     VARCHAR(45) NOT NULL DEFAULT '',
			is_fraud      BOOLEAN NOT NULL DEFAULT FALSE,
			fraud_reasons TEXT[] NOT NULL DEFAULT '{}',
			status        VARCHAR(20) NOT NULL DEFAULT 'approved',
			pin_verified  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verified_at   TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_card ON transactions(card_type, ts);
		CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions(ts);
	`)
	return err
}

func (p *PostgresStore) Insert(ctx context.Context, tx *Transaction) error {
	// pq.Array encodes a nil slice as SQL NULL; the column is NOT NULL.
	reasons := tx.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, ts, amount, location, card_type, currency, recipient,
			client_ip, is_fraud, fraud_reasons, status, pin_verified,
			created_at, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		tx.ID, tx.Timestamp.Time, tx.Amount, tx.Location, tx.CardType, tx.Currency,
		tx.Recipient, tx.ClientIP, tx.Fraud, pq.Array(reasons), string(tx.Status),
		tx.PINVerified, tx.CreatedAt, tx.VerifiedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (p *PostgresStore) MarkApproved(ctx context.Context, id string, verifiedAt time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, pin_verified = TRUE, verified_at = $3
		WHERE id = $1
	`, id, string(StatusApproved), verifiedAt)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListByCard(ctx context.Context, cardType string) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, selectColumns+`
		WHERE card_type = $1 ORDER BY ts ASC`, cardType)
	if err != nil {
		return nil, fmt.Errorf("list by card: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (p *PostgresStore) List(ctx context.Context) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, selectColumns+` ORDER BY ts ASC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (p *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, selectColumns+`
		ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const selectColumns = `
	SELECT id, ts, amount, location, card_type, currency, recipient,
		client_ip, is_fraud, fraud_reasons, status, pin_verified,
		created_at, verified_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var tx Transaction
	var ts time.Time
	var status string
	var reasons pq.StringArray
	var verifiedAt sql.NullTime

	err := row.Scan(
		&tx.ID, &ts, &tx.Amount, &tx.Location, &tx.CardType, &tx.Currency,
		&tx.Recipient, &tx.ClientIP, &tx.Fraud, &reasons, &status,
		&tx.PINVerified, &tx.CreatedAt, &verifiedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Timestamp = NaiveTime{ts}
	tx.Status = Status(status)
	tx.Reasons = []string(reasons)
	if verifiedAt.Valid {
		tx.VerifiedAt = &verifiedAt.Time
	}
	return &tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*Transaction, error) {
	var result []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
