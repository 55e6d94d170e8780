//go:build integration

package blacklist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sganesh/fraudguard/internal/testutil"
)

func TestPostgres_UpsertAppendReason(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	entry, err := store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "alice")
	require.NoError(t, err)
	assert.Equal(t, TypeAccount, entry.Type)
	assert.Equal(t, "acct9", entry.Value)
	assert.Equal(t, []string{ReasonInvalidPIN}, entry.Reasons)
	assert.Equal(t, "alice", entry.BlockedBy)

	// Second failure appends, same row.
	entry2, err := store.UpsertAppendReason(ctx, TypeAccount, "acct9", ReasonInvalidPIN, "bob")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, entry2.ID)
	assert.Equal(t, []string{ReasonInvalidPIN, ReasonInvalidPIN}, entry2.Reasons)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostgres_ConcurrentUpserts(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.UpsertAppendReason(ctx, TypeAccount, "acct-race", ReasonInvalidPIN, "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := store.FindByTypeAndValue(ctx, TypeAccount, "acct-race")
	require.NoError(t, err)
	assert.Len(t, entry.Reasons, n)
}

func TestPostgres_FindMissing(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	_, err := store.FindByTypeAndValue(context.Background(), TypeAccount, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
