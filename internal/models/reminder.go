package models

import "github.com/shopspring/decimal"

// Reminder types.
const (
	ReminderPayment      = "payment_reminder"
	ReminderGroupPayment = "group_payment_reminder"
)

// Reminder statuses.
const (
	ReminderSent = "sent"
	ReminderRead = "read"
)

// Reminder is a request from a creditor asking a debtor to pay.
type Reminder struct {
	ID         string
	FromUserID string
	ToUserID   string
	GroupID    string
	GroupName  string
	Amount     decimal.Decimal
	Message    string
	Type       string
	Status     string
	CreatedAt  int64
	ReadAt     int64
}
