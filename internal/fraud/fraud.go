// Package fraud implements the real-time fraud decision engine and the PIN
// challenge protocol that gates flagged transactions.
//
// Scoring runs three independent signals over an incoming transaction:
// denylist membership (originating IP and recipient account), behavioral
// amount anomaly against the instrument's history, and geo drift from the
// instrument's last accepted location. The verdict is the union of the
// signals: any one firing marks the transaction fraudulent and parks it
// pending a PIN challenge. A failed challenge blacklists the recipient; a
// successful one approves the transaction.
package fraud

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNoCredential means the scoring request carried no usable
	// authorization credential; the fraud alert is simply skipped.
	ErrNoCredential = errors.New("no credential supplied")
)

// ScoreResult is the outcome of scoring one transaction.
type ScoreResult struct {
	Fraud   bool     `json:"fraud"`
	Reasons []string `json:"reasons"`
}

// VerifyResult is the outcome of a PIN challenge.
type VerifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LocationTable is the instrument → last accepted location baseline used
// by the geo drift signal. It advances only when a transaction scores
// clean, so the first transaction at a new location is trusted and later
// ones are measured against it. The table is an in-process heuristic, not
// an audit trail: it starts empty on every boot and concurrent
// transactions for the same instrument may race on a stale baseline.
type LocationTable struct {
	mu        sync.RWMutex
	locations map[string]string
}

// NewLocationTable creates an empty location baseline table.
func NewLocationTable() *LocationTable {
	return &LocationTable{locations: make(map[string]string)}
}

// Get returns the last accepted location for an instrument, or "".
func (t *LocationTable) Get(cardType string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locations[cardType]
}

// Set records the last accepted location for an instrument.
func (t *LocationTable) Set(cardType, location string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locations[cardType] = location
}

// IdentityResolver maps a request credential to the owning account
// identifier, for alerting the account holder about a flagged transaction.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (account string, err error)
}

// BearerResolver treats the bearer token as the account identifier.
// Stand-in for a real token-to-identity lookup; swap behind the same
// interface when one exists.
type BearerResolver struct{}

func (BearerResolver) Resolve(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return "", ErrNoCredential
	}
	return credential, nil
}

// EventEmitter receives fraud events for realtime streaming. Implementations
// must not block.
type EventEmitter interface {
	TransactionScored(tx interface{})
	RecipientBlacklisted(entry interface{})
}
