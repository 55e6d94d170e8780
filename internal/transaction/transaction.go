// Package transaction defines the transaction record and its stores.
//
// Transactions are created once when scored and mutated at most once
// afterwards, when a PIN challenge approves them. The JSON field names and
// the naive timestamp format are the wire contract existing clients rely
// on; don't change them.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("transaction not found")
	ErrExists   = errors.New("transaction already exists")
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusPending marks a flagged transaction awaiting PIN verification.
	StatusPending Status = "pending"
	// StatusApproved marks a transaction that cleared scoring or a PIN challenge.
	StatusApproved Status = "approved"
)

// TimeLayout is the naive wall-clock format used on the wire. No timezone
// offset is carried; timestamps are taken at face value.
const TimeLayout = "2006-01-02 15:04:05"

// NaiveTime wraps time.Time with the wire format above for JSON.
type NaiveTime struct {
	time.Time
}

// ParseNaiveTime parses a wire-format timestamp.
func ParseNaiveTime(s string) (NaiveTime, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return NaiveTime{}, fmt.Errorf("invalid timestamp %q: expected %q", s, TimeLayout)
	}
	return NaiveTime{t}, nil
}

func (n NaiveTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.Format(TimeLayout) + `"`), nil
}

func (n *NaiveTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseNaiveTime(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Transaction is a scored payment. Invariants:
//   - status "approved" implies the verdict is clean or the PIN was verified
//   - status "pending" implies a fraud verdict with the PIN not yet verified
type Transaction struct {
	ID          string     `json:"transaction_id" binding:"required"`
	Timestamp   NaiveTime  `json:"timestamp"`
	Amount      float64    `json:"amount"`
	Location    string     `json:"location"`
	CardType    string     `json:"card_type" binding:"required"`
	Currency    string     `json:"currency"`
	Recipient   string     `json:"recipient_account" binding:"required"`
	ClientIP    string     `json:"client_ip,omitempty"`
	Fraud       bool       `json:"is_fraud"`
	Reasons     []string   `json:"fraud_reason"`
	Status      Status     `json:"status,omitempty"`
	PINVerified bool       `json:"pin_verified"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

// Validate rejects malformed transactions before they reach the engine.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transaction_id is required")
	}
	if strings.TrimSpace(t.CardType) == "" {
		return errors.New("card_type is required")
	}
	if strings.TrimSpace(t.Recipient) == "" {
		return errors.New("recipient_account is required")
	}
	if t.Amount < 0 {
		return errors.New("amount must be non-negative")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// Store persists scored transactions.
type Store interface {
	// Insert stores a newly scored transaction.
	Insert(ctx context.Context, tx *Transaction) error
	// Get retrieves a transaction by ID.
	Get(ctx context.Context, id string) (*Transaction, error)
	// MarkApproved flips a transaction to approved with the PIN verified,
	// recording the verification time. The only post-creation mutation.
	MarkApproved(ctx context.Context, id string, verifiedAt time.Time) error
	// ListByCard returns all transactions for an instrument, oldest first.
	ListByCard(ctx context.Context, cardType string) ([]*Transaction, error)
	// List returns all transactions, oldest first.
	List(ctx context.Context) ([]*Transaction, error)
	// ListRecent returns up to limit transactions, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Transaction, error)
}
