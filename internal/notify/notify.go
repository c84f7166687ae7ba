// Package notify delivers order messages to the shop's channels.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrNotConfigured means the channel has no credentials; nothing was sent.
	ErrNotConfigured = errors.New("notification channel is not configured")
	// ErrDelivery means the channel rejected or failed to accept the message.
	ErrDelivery = errors.New("notification delivery failed")
)

// Notifier sends a message formatted with Telegram's HTML subset.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Multi sends to a primary channel, whose result is returned, and copies
// the message to secondary channels on a best-effort basis.
type Multi struct {
	Primary     Notifier
	Secondaries []Notifier
}

func (m *Multi) Notify(ctx context.Context, text string) error {
	if err := m.Primary.Notify(ctx, text); err != nil {
		return err
	}
	for _, n := range m.Secondaries {
		if err := n.Notify(ctx, text); err != nil {
			slog.Warn("Secondary notification failed", "error", err)
		}
	}
	return nil
}
