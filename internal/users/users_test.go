package users

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sganesh/fraudguard/internal/notify"
	"github.com/sganesh/fraudguard/internal/validation"
)

func discardNotifier() notify.Notifier {
	return notify.Func(func(ctx context.Context, contact, message string) error {
		return nil
	})
}

func newTestService() *Service {
	return NewService(NewMemoryStore(), discardNotifier(), slog.Default())
}

func TestHashSecret_NeverClearText(t *testing.T) {
	hash := HashSecret("hunter2")
	assert.NotEqual(t, "hunter2", hash)
	assert.Len(t, hash, 64) // sha256 hex

	assert.True(t, VerifySecret("hunter2", hash))
	assert.False(t, VerifySecret("hunter3", hash))
}

func TestValidatePIN(t *testing.T) {
	assert.NoError(t, ValidatePIN("1234"))
	assert.ErrorIs(t, ValidatePIN("123"), ErrInvalidPIN)
	assert.ErrorIs(t, ValidatePIN("12345"), ErrInvalidPIN)
	assert.ErrorIs(t, ValidatePIN("12ab"), ErrInvalidPIN)
	assert.ErrorIs(t, ValidatePIN(""), ErrInvalidPIN)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	acct, err := svc.Register(ctx, RegisterRequest{
		Name: "Alice", Account: "alice", Phone: "+15550001111",
		Password: "secret", PIN: "1234",
	})
	require.NoError(t, err)
	assert.True(t, acct.Active)
	assert.NotEqual(t, "secret", acct.PasswordHash)
	assert.NotEqual(t, "1234", acct.PINHash)

	// Duplicate account
	_, err = svc.Register(ctx, RegisterRequest{
		Name: "Alice2", Account: "alice", Phone: "x", Password: "p", PIN: "0000",
	})
	assert.ErrorIs(t, err, ErrAccountExists)

	// Bad PIN rejected before persistence
	_, err = svc.Register(ctx, RegisterRequest{
		Name: "Bob", Account: "bob", Phone: "x", Password: "p", PIN: "12",
	})
	assert.ErrorIs(t, err, ErrInvalidPIN)
	_, err = svc.Get(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_SanitizesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	acct, err := svc.Register(ctx, RegisterRequest{
		Name: "  Alice\x00 Smith  ", Account: "alice", Phone: " +15550001111 ",
		Password: "secret", PIN: "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", acct.Name)
	assert.Equal(t, "+15550001111", acct.Phone)
}

func TestRegister_RejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	// Account identifiers are restricted to a safe character set.
	_, err := svc.Register(ctx, RegisterRequest{
		Name: "Mallory", Account: "bad;account", Phone: "x",
		Password: "p", PIN: "1234",
	})
	assert.ErrorIs(t, err, ErrInvalidAccount)

	// Whitespace-only name survives gin's required binding but not
	// sanitization.
	_, err = svc.Register(ctx, RegisterRequest{
		Name: "   ", Account: "carol", Phone: "x",
		Password: "p", PIN: "1234",
	})
	var verrs validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "name", verrs[0].Field)

	// Nothing was persisted.
	_, err = svc.Get(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_NotifierFailureTolerated(t *testing.T) {
	ctx := context.Background()
	failing := notify.Func(func(ctx context.Context, contact, message string) error {
		return assert.AnError
	})
	svc := NewService(NewMemoryStore(), failing, slog.Default())

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "Alice", Account: "alice", Phone: "x", Password: "p", PIN: "1234",
	})
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "Alice", Account: "alice", Phone: "x", Password: "secret", PIN: "1234",
	})
	require.NoError(t, err)

	acct, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Account)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrNotFound)
}
