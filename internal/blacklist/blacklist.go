// Package blacklist implements the permanent denylist of known-bad
// identifiers and the membership checks the fraud engine runs against it.
//
// Entries are keyed by (type, value) and are append-only: a repeated
// trigger for the same value accumulates another reason on the existing
// entry instead of inserting a duplicate. Nothing in this package deletes
// entries.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("blacklist entry not found")

// TypeAccount is the identifier namespace for blocked recipient accounts.
// Currently the only type in use.
const TypeAccount = "account"

// ReasonInvalidPIN is appended when a PIN challenge fails for a recipient.
const ReasonInvalidPIN = "Invalid PIN verification - potential fraud"

// Entry is a denylist record. At most one entry exists per (type, value).
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Reasons   []string  `json:"reason"`
	BlockedBy string    `json:"blocked_by"`
	CreatedAt time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store persists denylist entries.
type Store interface {
	// FindByTypeAndValue returns the entry for (typ, value), or ErrNotFound.
	FindByTypeAndValue(ctx context.Context, typ, value string) (*Entry, error)
	// UpsertAppendReason inserts an entry for (typ, value) or, if one
	// exists, appends reason to it. Atomic: concurrent calls for the same
	// value converge on a single entry.
	UpsertAppendReason(ctx context.Context, typ, value, reason, blockedBy string) (*Entry, error)
	// List returns all entries, oldest block first.
	List(ctx context.Context) ([]*Entry, error)
}

// Checker tests transactions against the two independent denylists: the
// static IP set loaded from configuration and the persisted account
// denylist. Each check contributes its own reason on match. No mutation.
type Checker struct {
	ips   map[string]struct{}
	store Store
}

// NewChecker creates a checker over the given IP denylist and entry store.
func NewChecker(ips []string, store Store) *Checker {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		set[ip] = struct{}{}
	}
	return &Checker{ips: set, store: store}
}

// CheckIP tests the originating address against the static denylist.
func (c *Checker) CheckIP(ip string) (reason string, blocked bool) {
	if _, ok := c.ips[ip]; ok {
		return fmt.Sprintf("Blacklisted IP Address: %s", ip), true
	}
	return "", false
}

// CheckRecipient tests the recipient account against the persisted
// denylist. A store failure is returned to the caller; the verdict must
// not silently skip a denylist it could not read.
func (c *Checker) CheckRecipient(ctx context.Context, account string) (reason string, blocked bool, err error) {
	_, err = c.store.FindByTypeAndValue(ctx, TypeAccount, account)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("recipient denylist lookup: %w", err)
	}
	return fmt.Sprintf("Blacklisted Recipient Account: %s", account), true, nil
}
