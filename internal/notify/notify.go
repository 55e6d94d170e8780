// Package notify delivers alerts to account holders.
//
// Delivery is best-effort everywhere: callers log a failed send and move
// on. A notifier error must never change a fraud verdict or block an
// approval.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a message to a contact (phone number today).
type Notifier interface {
	Send(ctx context.Context, contact, message string) error
}

// SMSLogNotifier simulates an SMS gateway by writing messages to the log.
// Swap in a real provider (Twilio etc.) behind the same interface in
// production.
type SMSLogNotifier struct {
	logger *slog.Logger
}

// NewSMSLogNotifier creates a log-backed notifier.
func NewSMSLogNotifier(logger *slog.Logger) *SMSLogNotifier {
	return &SMSLogNotifier{logger: logger}
}

func (n *SMSLogNotifier) Send(ctx context.Context, contact, message string) error {
	n.logger.Info("sms notification", "to", contact, "message", message)
	return nil
}

// Func adapts a function to the Notifier interface, mainly for tests.
type Func func(ctx context.Context, contact, message string) error

func (f Func) Send(ctx context.Context, contact, message string) error {
	return f(ctx, contact, message)
}
