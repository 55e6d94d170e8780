// Package users implements the account directory: registration, login,
// and PIN verification support for the challenge flow.
//
// Passwords and PINs are stored as SHA-256 hashes and never logged or
// returned in clear text.
package users

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/sganesh/fraudguard/internal/notify"
	"github.com/sganesh/fraudguard/internal/validation"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrInvalidPIN         = errors.New("PIN must be exactly 4 digits")
	ErrInvalidAccount     = errors.New("account must be 1-64 characters of letters, digits, dot, dash or underscore")
)

// Account is a registered user of the fraud service.
type Account struct {
	Name         string    `json:"name"`
	Account      string    `json:"account"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	PINHash      string    `json:"-"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, acct *Account) error
	FindByAccount(ctx context.Context, account string) (*Account, error)
}

// HashSecret hashes a password or PIN with SHA-256.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// VerifySecret compares a cleartext secret against a stored hash in
// constant time.
func VerifySecret(secret, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(hash)) == 1
}

// ValidatePIN enforces the 4-digit PIN format at registration.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return ErrInvalidPIN
		}
	}
	return nil
}

// Service wraps the account store with registration and login logic.
type Service struct {
	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService creates a user directory service.
func NewService(store Store, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Account  string `json:"account" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	PIN      string `json:"pin" binding:"required"`
}

// Register creates a new account. Validation and sanitization happen
// before anything is persisted; the welcome notification is best-effort.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	name := validation.SanitizeString(req.Name, 200)
	phone := validation.SanitizeString(req.Phone, 32)
	account := strings.TrimSpace(req.Account)

	if errs := validation.Validate(
		validation.Required("name", name),
		validation.Required("phone", phone),
		validation.MaxLength("password", req.Password, validation.MaxStringLength),
	); len(errs) > 0 {
		return nil, errs
	}
	if !validation.IsValidAccount(account) {
		return nil, ErrInvalidAccount
	}
	if err := ValidatePIN(req.PIN); err != nil {
		return nil, err
	}

	acct := &Account{
		Name:         name,
		Account:      account,
		Phone:        phone,
		PasswordHash: HashSecret(req.Password),
		PINHash:      HashSecret(req.PIN),
		Active:       true,
		CreatedAt:    time.Now(),
	}

	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}

	welcome := fmt.Sprintf("Welcome to FraudGuard! Your account %s has been created successfully.", acct.Account)
	if err := s.notifier.Send(ctx, acct.Phone, welcome); err != nil {
		s.logger.Warn("welcome notification failed", "account", acct.Account, "error", err)
	}

	return acct, nil
}

// Authenticate verifies an account's password and active flag.
func (s *Service) Authenticate(ctx context.Context, account, password string) (*Account, error) {
	acct, err := s.store.FindByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if !VerifySecret(password, acct.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !acct.Active {
		return nil, ErrAccountDisabled
	}
	return acct, nil
}

// Get returns an account by identifier.
func (s *Service) Get(ctx context.Context, account string) (*Account, error) {
	return s.store.FindByAccount(ctx, account)
}
