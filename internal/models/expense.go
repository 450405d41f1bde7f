package models

import "github.com/shopspring/decimal"

// Expense is a single payment made by one member on behalf of others.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the owning group. Empty for a friend expense.
	GroupID string

	// Name is the description shown in activity lists (e.g., "Dinner").
	Name string

	// Total is the amount the payer paid.
	Total decimal.Decimal

	// Date is the Unix timestamp when the expense was incurred.
	Date int64

	// PayerID is the member who paid.
	PayerID string

	// Split maps member ID to the amount that member owes for this expense.
	// The payer may or may not appear; a payer's own share creates no debt.
	Split map[string]decimal.Decimal

	// CreatedBy is the user who recorded the expense.
	CreatedBy string

	CreatedAt int64
}

// Participants returns the payer followed by every split member, without
// duplicates.
func (e *Expense) Participants() []string {
	ids := make([]string, 0, len(e.Split)+1)
	ids = append(ids, e.PayerID)
	for id := range e.Split {
		ids = append(ids, id)
	}
	return UniqueIDs(ids)
}
