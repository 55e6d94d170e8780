package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sganesh/fraudguard/internal/blacklist"
	"github.com/sganesh/fraudguard/internal/detector"
	"github.com/sganesh/fraudguard/internal/logging"
	"github.com/sganesh/fraudguard/internal/metrics"
	"github.com/sganesh/fraudguard/internal/notify"
	"github.com/sganesh/fraudguard/internal/traces"
	"github.com/sganesh/fraudguard/internal/transaction"
	"github.com/sganesh/fraudguard/internal/users"
)

// Reason strings for the behavioral and geo signals. The denylist reasons
// come from the blacklist checker and embed the matched value.
const (
	ReasonAbnormalAmount = "Abnormal Amount (Behavioral)"
	ReasonGeoDrift       = "Geo Drift Detected"
)

// Engine combines the fraud signals into a verdict, persists the scored
// transaction, and alerts the account holder when it flags.
type Engine struct {
	txns      transaction.Store
	checker   *blacklist.Checker
	behavior  *detector.BehaviorDetector
	geodrift  *detector.GeoDriftDetector
	locations *LocationTable
	users     users.Store
	resolver  IdentityResolver
	notifier  notify.Notifier
	events    EventEmitter
	logger    *slog.Logger
}

// NewEngine creates a decision engine over the given collaborators.
func NewEngine(
	txns transaction.Store,
	checker *blacklist.Checker,
	behavior *detector.BehaviorDetector,
	geodrift *detector.GeoDriftDetector,
	locations *LocationTable,
	userStore users.Store,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		txns:      txns,
		checker:   checker,
		behavior:  behavior,
		geodrift:  geodrift,
		locations: locations,
		users:     userStore,
		resolver:  BearerResolver{},
		notifier:  notifier,
		logger:    logger,
	}
}

// WithResolver overrides the credential-to-identity resolver.
func (e *Engine) WithResolver(r IdentityResolver) *Engine {
	e.resolver = r
	return e
}

// WithEvents adds a realtime event emitter.
func (e *Engine) WithEvents(events EventEmitter) *Engine {
	e.events = events
	return e
}

// Locations exposes the baseline table, mainly for tests and diagnostics.
func (e *Engine) Locations() *LocationTable {
	return e.locations
}

// Score evaluates one incoming transaction. The transaction is persisted
// exactly once, with the verdict and reasons filled in, before Score
// returns. Signals run independently; each one that fires appends exactly
// one reason, in a fixed order (IP, recipient, amount, geo) so responses
// are stable. A clean verdict advances the instrument's location baseline
// once the record is stored;
// a fraud verdict leaves it untouched and triggers a best-effort alert to
// the account holder resolved from the request credential.
//
// Denylist reads and the transaction insert are authoritative: their
// failure fails the call. The alert is not: its failure is logged only.
func (e *Engine) Score(ctx context.Context, tx *transaction.Transaction, clientIP, credential string) (*ScoreResult, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.Score",
		traces.TransactionID(tx.ID),
		traces.CardType(tx.CardType),
	)
	defer span.End()

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	// Always non-nil: a clean verdict serializes and stores an empty
	// list, never null.
	reasons := []string{}

	if reason, blocked := e.checker.CheckIP(clientIP); blocked {
		reasons = append(reasons, reason)
		metrics.FraudSignalsTotal.WithLabelValues("blacklisted_ip").Inc()
	}

	reason, blocked, err := e.checker.CheckRecipient(ctx, tx.Recipient)
	if err != nil {
		return nil, err
	}
	if blocked {
		reasons = append(reasons, reason)
		metrics.FraudSignalsTotal.WithLabelValues("blacklisted_recipient").Inc()
	}

	history, err := e.txns.ListByCard(ctx, tx.CardType)
	if err != nil {
		return nil, fmt.Errorf("load card history: %w", err)
	}
	amounts := make([]float64, len(history))
	for i, past := range history {
		amounts[i] = past.Amount
	}
	if e.behavior.Anomalous(amounts, tx.Amount) {
		reasons = append(reasons, ReasonAbnormalAmount)
		metrics.FraudSignalsTotal.WithLabelValues("behavioral_anomaly").Inc()
	}

	if e.geodrift.Drifted(e.locations.Get(tx.CardType), tx.Location) {
		reasons = append(reasons, ReasonGeoDrift)
		metrics.FraudSignalsTotal.WithLabelValues("geo_drift").Inc()
	}

	isFraud := len(reasons) > 0
	span.SetAttributes(traces.Verdict(isFraud))

	tx.ClientIP = clientIP
	tx.Fraud = isFraud
	tx.Reasons = reasons
	tx.PINVerified = !isFraud
	tx.CreatedAt = time.Now()
	if isFraud {
		tx.Status = transaction.StatusPending
	} else {
		tx.Status = transaction.StatusApproved
	}

	if err := e.txns.Insert(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	if !isFraud {
		// The only path that advances the geo baseline. Runs after the
		// insert: a transaction that failed to persist must not move it.
		e.locations.Set(tx.CardType, tx.Location)
	}

	if isFraud {
		metrics.TransactionsScoredTotal.WithLabelValues("fraud").Inc()
		e.alertOwner(ctx, tx, credential)
	} else {
		metrics.TransactionsScoredTotal.WithLabelValues("clean").Inc()
	}

	if e.events != nil {
		e.events.TransactionScored(tx)
	}

	return &ScoreResult{Fraud: isFraud, Reasons: reasons}, nil
}

// alertOwner notifies the account holder about a flagged transaction.
// Best-effort: an unresolvable credential, unknown account, or notifier
// failure never disturbs the verdict.
func (e *Engine) alertOwner(ctx context.Context, tx *transaction.Transaction, credential string) {
	account, err := e.resolver.Resolve(ctx, credential)
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			logging.L(ctx).Debug("credential resolution failed", "error", err)
		}
		return
	}

	acct, err := e.users.FindByAccount(ctx, account)
	if err != nil {
		logging.L(ctx).Debug("alert skipped, account unknown", "account", account)
		return
	}

	msg := fmt.Sprintf(
		"FRAUD ALERT: Suspicious transaction detected for %s %.2f to %s. Please verify using your PIN if this transaction is legitimate.",
		tx.Currency, tx.Amount, tx.Recipient,
	)
	if err := e.notifier.Send(ctx, acct.Phone, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		logging.L(ctx).Warn("fraud alert delivery failed", "account", account, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}
