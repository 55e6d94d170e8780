package transaction

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory transaction store for demo/development mode.
type MemoryStore struct {
	mu   sync.RWMutex
	txns map[string]*Transaction
	// insertion order, for stable listing when timestamps collide
	order []string
}

// NewMemoryStore creates a new in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txns: make(map[string]*Transaction)}
}

func (m *MemoryStore) Insert(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[tx.ID]; ok {
		return ErrExists
	}
	cp := *tx
	if cp.Reasons == nil {
		cp.Reasons = []string{}
	}
	m.txns[tx.ID] = &cp
	m.order = append(m.order, tx.ID)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) MarkApproved(ctx context.Context, id string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.txns[id]
	if !ok {
		return ErrNotFound
	}
	tx.Status = StatusApproved
	tx.PINVerified = true
	tx.VerifiedAt = &verifiedAt
	return nil
}

func (m *MemoryStore) ListByCard(ctx context.Context, cardType string) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Transaction
	for _, id := range m.order {
		if tx := m.txns[id]; tx.CardType == cardType {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sortByTimestampAsc(result)
	return result, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.txns[id]
		result = append(result, &cp)
	}
	sortByTimestampAsc(result)
	return result, nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Transaction, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	// reverse to newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func sortByTimestampAsc(txns []*Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Timestamp.Before(txns[j].Timestamp.Time)
	})
}
