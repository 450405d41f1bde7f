package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a Settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
	SettlementCancelled SettlementStatus = "cancelled"
)

// Payment methods offered by the clients. Method is free text; these are
// the known values.
const (
	MethodCash         = "Cash"
	MethodBankTransfer = "Bank Transfer"
	MethodPayPal       = "PayPal"
	MethodGooglePay    = "Google Pay"
)

// Settlement represents a payment between two users to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement was recorded in, if any.
	GroupID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount. Always positive.
	Amount decimal.Decimal

	// Method is how the money moved (e.g., "Cash", "PayPal").
	Method string

	// Note is an optional description for the settlement.
	Note string

	Status SettlementStatus

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string
}
