//go:build integration

package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sganesh/fraudguard/internal/testutil"
)

func pgTx(t *testing.T, id string, ts string, amount float64) *Transaction {
	t.Helper()
	nt, err := ParseNaiveTime(ts)
	require.NoError(t, err)
	return &Transaction{
		ID:        id,
		Timestamp: nt,
		Amount:    amount,
		Location:  "Chennai",
		CardType:  "visa",
		Currency:  "INR",
		Recipient: "acct9",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgres_InsertAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	tx := pgTx(t, "pg-t1", "2025-08-07 16:55:00", 750.50)
	tx.Fraud = true
	tx.Reasons = []string{"Geo Drift Detected"}
	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.Get(ctx, "pg-t1")
	require.NoError(t, err)
	assert.Equal(t, "pg-t1", got.ID)
	assert.Equal(t, 750.50, got.Amount)
	assert.Equal(t, []string{"Geo Drift Detected"}, got.Reasons)
	assert.True(t, got.Fraud)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "2025-08-07 16:55:00", got.Timestamp.Format(TimeLayout))
}

func TestPostgres_InsertCleanVerdict(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	// A clean transaction carries no reasons. The column is NOT NULL, so
	// the store must write an empty array rather than SQL NULL.
	tx := pgTx(t, "pg-clean", "2025-08-07 16:55:00", 100)
	tx.Status = StatusApproved
	tx.PINVerified = true
	tx.Reasons = nil
	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.Get(ctx, "pg-clean")
	require.NoError(t, err)
	assert.False(t, got.Fraud)
	require.NotNil(t, got.Reasons)
	assert.Empty(t, got.Reasons)
}

func TestPostgres_DuplicateInsert(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-dup", "2025-08-07 16:55:00", 100)))
	assert.ErrorIs(t, store.Insert(ctx, pgTx(t, "pg-dup", "2025-08-07 16:56:00", 200)), ErrExists)
}

func TestPostgres_MarkApproved(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-appr", "2025-08-07 16:55:00", 100)))

	verifiedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.MarkApproved(ctx, "pg-appr", verifiedAt))

	got, err := store.Get(ctx, "pg-appr")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.True(t, got.PINVerified)
	require.NotNil(t, got.VerifiedAt)
	assert.WithinDuration(t, verifiedAt, *got.VerifiedAt, time.Millisecond)

	assert.ErrorIs(t, store.MarkApproved(ctx, "pg-missing", verifiedAt), ErrNotFound)
}

func TestPostgres_ListByCardOrdering(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	// Insert out of order; ListByCard must return them by timestamp ascending.
	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-b", "2025-08-07 17:00:00", 200)))
	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-a", "2025-08-07 16:00:00", 100)))
	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-c", "2025-08-07 18:00:00", 300)))

	other := pgTx(t, "pg-other", "2025-08-07 16:30:00", 999)
	other.CardType = "amex"
	require.NoError(t, store.Insert(ctx, other))

	txs, err := store.ListByCard(ctx, "visa")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "pg-a", txs[0].ID)
	assert.Equal(t, "pg-b", txs[1].ID)
	assert.Equal(t, "pg-c", txs[2].ID)
}

func TestPostgres_ListRecent(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-1", "2025-08-07 16:00:00", 100)))
	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-2", "2025-08-07 17:00:00", 200)))
	require.NoError(t, store.Insert(ctx, pgTx(t, "pg-3", "2025-08-07 18:00:00", 300)))

	txs, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "pg-3", txs[0].ID)
	assert.Equal(t, "pg-2", txs[1].ID)
}
