package users

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory account store for demo/development mode.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryStore creates a new in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (m *MemoryStore) Create(ctx context.Context, acct *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acct.Account]; ok {
		return ErrAccountExists
	}
	cp := *acct
	m.accounts[acct.Account] = &cp
	return nil
}

func (m *MemoryStore) FindByAccount(ctx context.Context, account string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[account]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}
