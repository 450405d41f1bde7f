package models

import "github.com/shopspring/decimal"

// Balance is the net ledger edge between two users.
//
// UserA is always the lexicographically smaller ID. Net > 0 means UserB
// owes UserA; Net < 0 means UserA owes UserB.
type Balance struct {
	UserA string
	UserB string
	Net   decimal.Decimal

	// Version is bumped on every write. Stores use it for optimistic
	// concurrency where the backend has no transactions.
	Version int64

	UpdatedAt int64
}

// OrderedPair returns the two IDs in canonical order.
func OrderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewBalance returns a zero balance for the pair.
func NewBalance(a, b string) *Balance {
	lo, hi := OrderedPair(a, b)
	return &Balance{UserA: lo, UserB: hi, Net: decimal.Zero}
}

// Involves reports whether userID is one side of the balance.
func (b *Balance) Involves(userID string) bool {
	return b.UserA == userID || b.UserB == userID
}

// Other returns the counterparty of userID.
func (b *Balance) Other(userID string) string {
	if b.UserA == userID {
		return b.UserB
	}
	return b.UserA
}

// OwedTo returns what the other party owes userID. Negative means userID
// owes the other party.
func (b *Balance) OwedTo(userID string) decimal.Decimal {
	if userID == b.UserA {
		return b.Net
	}
	return b.Net.Neg()
}

// Credit records that debtor owes creditor amount more. A negative amount
// reduces the debt.
func (b *Balance) Credit(creditor, debtor string, amount decimal.Decimal) {
	if creditor == b.UserA {
		b.Net = b.Net.Add(amount)
		return
	}
	b.Net = b.Net.Sub(amount)
}
