package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveTotal = errors.New("total must be positive")
	ErrNoMembers        = errors.New("split must include at least one member")
	ErrNegativeShare    = errors.New("split amounts cannot be negative")
	ErrShareMismatch    = errors.New("split amounts do not add up to the total")
	ErrZeroSubtotal     = errors.New("items must add up to more than zero")
)

// Item is a line item on an itemized expense. The item is split equally
// among AssignedTo.
type Item struct {
	Description string
	Amount      decimal.Decimal
	AssignedTo  []string
}

// EqualShares splits total equally among members. Every share is
// total/len(members) truncated to cents, except the last member who
// absorbs the remainder so the shares add up to exactly total.
// Duplicate members are counted once.
func EqualShares(total decimal.Decimal, members []string) (map[string]decimal.Decimal, error) {
	total = RoundCents(total)
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}
	members = unique(members)
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	n := int64(len(members))
	per := total.Div(decimal.NewFromInt(n)).Truncate(2)
	last := total.Sub(per.Mul(decimal.NewFromInt(n - 1)))

	shares := make(map[string]decimal.Decimal, len(members))
	for i, m := range members {
		if i == len(members)-1 {
			shares[m] = last
			continue
		}
		shares[m] = per
	}
	return shares, nil
}

// ValidateShares checks that shares are non-negative and add up to total
// within Epsilon.
func ValidateShares(total decimal.Decimal, shares map[string]decimal.Decimal) error {
	if !total.IsPositive() {
		return ErrNonPositiveTotal
	}
	if len(shares) == 0 {
		return ErrNoMembers
	}
	for member, amount := range shares {
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s has %s", ErrNegativeShare, member, amount.StringFixed(2))
		}
	}
	sum := SumShares(shares)
	if !WithinEpsilon(sum, total) {
		return fmt.Errorf("%w: sum %s, total %s", ErrShareMismatch, sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

// SumShares adds up every amount in shares.
func SumShares(shares map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range shares {
		sum = sum.Add(amount)
	}
	return sum
}

// ItemizedShares computes each person's share of an itemized bill where
// total includes tax, tip and fees on top of the item subtotal:
//
//	person_total = person_subtotal × (total / subtotal)
//
// Items with no assignees are ignored. Rounding remainders go to the last
// assignee of an item and to the last person overall, so the result adds up
// to exactly total.
func ItemizedShares(items []Item, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	total = RoundCents(total)
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}

	subtotals := make(map[string]decimal.Decimal)
	var order []string
	subtotal := decimal.Zero
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		if item.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: item %q", ErrNegativeShare, item.Description)
		}
		parts, err := EqualShares(item.Amount, item.AssignedTo)
		if errors.Is(err, ErrNonPositiveTotal) {
			continue // free item
		}
		if err != nil {
			return nil, err
		}
		for _, person := range unique(item.AssignedTo) {
			if _, ok := subtotals[person]; !ok {
				order = append(order, person)
			}
			subtotals[person] = subtotals[person].Add(parts[person])
		}
		subtotal = subtotal.Add(RoundCents(item.Amount))
	}
	if len(order) == 0 {
		return nil, ErrNoMembers
	}
	if !subtotal.IsPositive() {
		return nil, ErrZeroSubtotal
	}

	shares := make(map[string]decimal.Decimal, len(order))
	allocated := decimal.Zero
	for i, person := range order {
		if i == len(order)-1 {
			shares[person] = total.Sub(allocated)
			break
		}
		share := RoundCents(subtotals[person].Mul(total).Div(subtotal))
		shares[person] = share
		allocated = allocated.Add(share)
	}
	return shares, nil
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
