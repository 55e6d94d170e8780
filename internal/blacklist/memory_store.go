package blacklist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sganesh/fraudguard/internal/idgen"
)

// MemoryStore is an in-memory denylist store for demo/development mode.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry // keyed by type + "\x00" + value
}

// NewMemoryStore creates a new in-memory denylist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func key(typ, value string) string { return typ + "\x00" + value }

func (m *MemoryStore) FindByTypeAndValue(ctx context.Context, typ, value string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key(typ, value)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	cp.Reasons = append([]string(nil), entry.Reasons...)
	return &cp, nil
}

func (m *MemoryStore) UpsertAppendReason(ctx context.Context, typ, value, reason, blockedBy string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, ok := m.entries[key(typ, value)]
	if !ok {
		entry = &Entry{
			ID:        idgen.WithPrefix("bl_"),
			Type:      typ,
			Value:     value,
			Reasons:   []string{reason},
			BlockedBy: blockedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.entries[key(typ, value)] = entry
	} else {
		entry.Reasons = append(entry.Reasons, reason)
		entry.UpdatedAt = now
	}

	cp := *entry
	cp.Reasons = append([]string(nil), entry.Reasons...)
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		cp := *entry
		cp.Reasons = append([]string(nil), entry.Reasons...)
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
