// Package notify delivers payment reminders.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Notice asks ToUserID to pay Amount to FromUserID.
type Notice struct {
	FromUserID string
	ToUserID   string
	GroupID    string
	GroupName  string
	Message    string
	Amount     decimal.Decimal
}

// Notifier delivers a Notice and returns an ID for the delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notice) (string, error)
}

// ReminderStore is the persistence a StoreNotifier needs.
type ReminderStore interface {
	PutReminder(ctx context.Context, reminder *models.Reminder) error
}

// StoreNotifier delivers notices by persisting them as reminders the
// recipient reads with ListReminders.
type StoreNotifier struct {
	store  ReminderStore
	logger *slog.Logger
}

// NewStoreNotifier creates a StoreNotifier. logger may be nil.
func NewStoreNotifier(store ReminderStore, logger *slog.Logger) *StoreNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreNotifier{store: store, logger: logger}
}

// Notify stores n as a sent reminder.
func (s *StoreNotifier) Notify(ctx context.Context, n Notice) (string, error) {
	reminder := &models.Reminder{
		FromUserID: n.FromUserID,
		ToUserID:   n.ToUserID,
		GroupID:    n.GroupID,
		GroupName:  n.GroupName,
		Amount:     n.Amount,
		Message:    n.Message,
		Type:       models.ReminderPayment,
		Status:     models.ReminderSent,
	}
	if n.GroupID != "" {
		reminder.Type = models.ReminderGroupPayment
	}

	if err := s.store.PutReminder(ctx, reminder); err != nil {
		return "", fmt.Errorf("store reminder: %w", err)
	}

	s.logger.InfoContext(ctx, "reminder sent",
		"reminder_id", reminder.ID,
		"from_user_id", n.FromUserID,
		"to_user_id", n.ToUserID,
		"type", reminder.Type,
	)
	return reminder.ID, nil
}

// ReminderMessage formats the text shown to the debtor.
func ReminderMessage(creditorName, groupName string, amount decimal.Decimal) string {
	if groupName != "" {
		return fmt.Sprintf("Reminder from %s: You owe %s $%s", groupName, creditorName, amount.StringFixed(2))
	}
	return fmt.Sprintf("Reminder: You owe %s $%s", creditorName, amount.StringFixed(2))
}
