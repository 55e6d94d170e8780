package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sganesh/fraudguard/internal/blacklist"
	"github.com/sganesh/fraudguard/internal/logging"
	"github.com/sganesh/fraudguard/internal/metrics"
	"github.com/sganesh/fraudguard/internal/notify"
	"github.com/sganesh/fraudguard/internal/traces"
	"github.com/sganesh/fraudguard/internal/transaction"
	"github.com/sganesh/fraudguard/internal/users"
)

// Challenge drives the PIN verification protocol for flagged transactions.
//
// The asymmetry is deliberate: a correct PIN approves the transaction, but
// a wrong PIN blacklists the *recipient* and leaves the transaction
// pending. Repeated failed attempts against different transactions to the
// same recipient converge on a single denylist entry.
type Challenge struct {
	users     users.Store
	txns      transaction.Store
	blacklist blacklist.Store
	notifier  notify.Notifier
	events    EventEmitter
	logger    *slog.Logger
}

// NewChallenge creates a challenge coordinator.
func NewChallenge(
	userStore users.Store,
	txns transaction.Store,
	blacklistStore blacklist.Store,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Challenge {
	return &Challenge{
		users:     userStore,
		txns:      txns,
		blacklist: blacklistStore,
		notifier:  notifier,
		logger:    logger,
	}
}

// WithEvents adds a realtime event emitter.
func (c *Challenge) WithEvents(events EventEmitter) *Challenge {
	c.events = events
	return c
}

// Verify checks the submitted PIN for the given account against a flagged
// transaction.
//
// Account lookup failure is returned as users.ErrNotFound and nothing
// changes. On PIN mismatch the recipient is blacklisted (atomic
// insert-or-append, so duplicate attempts collapse to one entry) and the
// account holder is notified; the transaction stays pending. On match the
// transaction is approved and the holder notified. Blacklist and
// transaction writes are authoritative and their failure fails the call,
// while notifications stay best-effort.
func (c *Challenge) Verify(ctx context.Context, account, pin string, tx *transaction.Transaction) (*VerifyResult, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.VerifyChallenge",
		traces.TransactionID(tx.ID),
		traces.Recipient(tx.Recipient),
	)
	defer span.End()

	acct, err := c.users.FindByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if !users.VerifySecret(pin, acct.PINHash) {
		entry, err := c.blacklist.UpsertAppendReason(ctx,
			blacklist.TypeAccount, tx.Recipient, blacklist.ReasonInvalidPIN, account)
		if err != nil {
			return nil, fmt.Errorf("blacklist recipient: %w", err)
		}
		metrics.PINVerificationsTotal.WithLabelValues("failure").Inc()
		metrics.BlacklistUpsertsTotal.Inc()

		c.notifyBestEffort(ctx, acct.Phone, fmt.Sprintf(
			"FRAUD ALERT: Transaction to %s was blocked due to incorrect PIN. If this wasn't you, contact support immediately.",
			tx.Recipient,
		))

		if c.events != nil {
			c.events.RecipientBlacklisted(entry)
		}

		logging.L(ctx).Warn("pin verification failed, recipient blacklisted",
			"transaction_id", tx.ID,
			"recipient", tx.Recipient,
			"blocked_by", account,
		)
		return &VerifyResult{
			Success: false,
			Message: "Invalid PIN. Transaction blocked and recipient blacklisted.",
		}, nil
	}

	if err := c.txns.MarkApproved(ctx, tx.ID, time.Now()); err != nil {
		return nil, fmt.Errorf("approve transaction: %w", err)
	}
	metrics.PINVerificationsTotal.WithLabelValues("success").Inc()

	c.notifyBestEffort(ctx, acct.Phone, fmt.Sprintf(
		"Transaction %s of %s %.2f has been approved and processed.",
		tx.ID, tx.Currency, tx.Amount,
	))

	logging.L(ctx).Info("pin verified, transaction approved", "transaction_id", tx.ID)
	return &VerifyResult{
		Success: true,
		Message: "PIN verified successfully. Transaction approved.",
	}, nil
}

func (c *Challenge) notifyBestEffort(ctx context.Context, contact, message string) {
	if err := c.notifier.Send(ctx, contact, message); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		logging.L(ctx).Warn("notification delivery failed", "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}
