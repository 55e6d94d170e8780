package blacklist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{ReasonInvalidPIN}, first.Reasons)

	// A second trigger accumulates a reason, never a second entry.
	second, err := store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Reasons, 2)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_ConcurrentSameRecipient(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Reasons, 20)
}

func TestFindByTypeAndValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindByTypeAndValue(ctx, TypeAccount, "clean")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "alice")
	require.NoError(t, err)

	entry, err := store.FindByTypeAndValue(ctx, TypeAccount, "acct9")
	require.NoError(t, err)
	assert.Equal(t, "acct9", entry.Value)
	assert.Equal(t, "alice", entry.BlockedBy)
}

func TestChecker_IP(t *testing.T) {
	checker := NewChecker([]string{"203.0.113.5"}, NewMemoryStore())

	reason, blocked := checker.CheckIP("203.0.113.5")
	assert.True(t, blocked)
	assert.Equal(t, "Blacklisted IP Address: 203.0.113.5", reason)

	_, blocked = checker.CheckIP("192.0.2.1")
	assert.False(t, blocked)
}

func TestChecker_Recipient(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	checker := NewChecker(nil, store)

	_, blocked, err := checker.CheckRecipient(ctx, "acct9")
	require.NoError(t, err)
	assert.False(t, blocked)

	_, err = store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "alice")
	require.NoError(t, err)

	reason, blocked, err := checker.CheckRecipient(ctx, "acct9")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, "Blacklisted Recipient Account: acct9", reason)
}
