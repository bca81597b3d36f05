// Package email is the notification sink for share events.
//
// Delivery is fire-and-forget: a delivery failure is logged by the caller
// and never rolls back the operation that triggered it.
package email

import (
	"context"

	"github.com/Laisky/zap"

	"github.com/minidrive/storage/library/log"
)

// ShareEvent describes a share grant to notify the recipient about.
type ShareEvent struct {
	Recipient string
	Actor     string
	ItemName  string
	Level     string
}

// Notifier delivers share notifications.
type Notifier interface {
	NotifyShare(ctx context.Context, event ShareEvent) error
}

// LogNotifier writes notifications to the log instead of a mail provider.
// Swap in a real provider (SES, SendGrid) behind the same interface.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyShare(ctx context.Context, event ShareEvent) error {
	log.Logger.Named("email").Info("share notification",
		zap.String("to", event.Recipient),
		zap.String("actor", event.Actor),
		zap.String("item", event.ItemName),
		zap.String("level", event.Level),
	)

	return nil
}
