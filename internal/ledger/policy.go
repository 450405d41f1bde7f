package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

// SplitPolicy decides how an expense total is divided among members.
type SplitPolicy interface {
	shares(group *models.Group, total decimal.Decimal) (map[string]decimal.Decimal, error)
}

type equalSplit struct{ members []string }

// EqualSplit divides the total equally among members, or among every group
// member when none are given. The last member absorbs the rounding remainder.
func EqualSplit(members ...string) SplitPolicy {
	return equalSplit{members: members}
}

func (p equalSplit) shares(group *models.Group, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	members := p.members
	if len(members) == 0 {
		members = group.Members
	}
	if err := requireMembers(group, members); err != nil {
		return nil, err
	}
	shares, err := calculator.EqualShares(total, members)
	if err != nil {
		return nil, fromCalculator(err)
	}
	return shares, nil
}

type customSplit struct{ amounts map[string]decimal.Decimal }

// CustomSplit uses the given per-member amounts, which must add up to the
// total within one cent.
func CustomSplit(amounts map[string]decimal.Decimal) SplitPolicy {
	return customSplit{amounts: amounts}
}

func (p customSplit) shares(group *models.Group, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(p.amounts) == 0 {
		return nil, invalid(EmptySplit, "split has no members")
	}

	shares := make(map[string]decimal.Decimal, len(p.amounts))
	members := make([]string, 0, len(p.amounts))
	for id, amount := range p.amounts {
		shares[id] = calculator.RoundCents(amount)
		members = append(members, id)
	}
	if err := requireMembers(group, members); err != nil {
		return nil, err
	}
	if err := calculator.ValidateShares(total, shares); err != nil {
		return nil, fromCalculator(err)
	}
	return shares, nil
}

type itemizedSplit struct{ items []calculator.Item }

// ItemizedSplit shares each item among its assignees and spreads the rest
// of the total (tax, tip) in proportion to each member's item subtotal.
func ItemizedSplit(items []calculator.Item) SplitPolicy {
	return itemizedSplit{items: items}
}

func (p itemizedSplit) shares(group *models.Group, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	for _, item := range p.items {
		if err := requireMembers(group, item.AssignedTo); err != nil {
			return nil, err
		}
	}
	shares, err := calculator.ItemizedShares(p.items, total)
	if err != nil {
		return nil, fromCalculator(err)
	}
	return shares, nil
}

func requireMembers(group *models.Group, ids []string) error {
	for _, id := range ids {
		if !group.HasMember(id) {
			return invalid(MemberNotInGroup, "%s is not a member of %s", id, group.Name)
		}
	}
	return nil
}

// fromCalculator maps calculator errors onto validation kinds.
func fromCalculator(err error) error {
	switch {
	case errors.Is(err, calculator.ErrShareMismatch):
		return invalid(SplitMismatch, "%v", err)
	case errors.Is(err, calculator.ErrNoMembers):
		return invalid(EmptySplit, "%v", err)
	case errors.Is(err, calculator.ErrNonPositiveTotal),
		errors.Is(err, calculator.ErrNegativeShare),
		errors.Is(err, calculator.ErrZeroSubtotal):
		return invalid(InvalidAmount, "%v", err)
	}
	return err
}
