package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Reasons a record is left out of an aggregation.
const (
	SkipMissingPayer      = "missing_payer"
	SkipEmptySplit        = "empty_split"
	SkipInvalidTotal      = "invalid_total"
	SkipNegativeShare     = "negative_share"
	SkipSplitMismatch     = "split_mismatch"
	SkipInvalidSettlement = "invalid_settlement"
)

// Skipped identifies a malformed record that did not contribute to a result.
type Skipped struct {
	ID     string
	Kind   string // "expense" or "settlement"
	Reason string
}

// PartyBalance is the net amount between the current user and one other
// party. Positive means the other party owes the current user.
type PartyBalance struct {
	UserID string
	Amount decimal.Decimal
}

// Result is the output of ComputeBalances.
type Result struct {
	// Net maps other party ID to the signed net amount. Entries that net
	// out to zero are kept.
	Net map[string]decimal.Decimal

	// Order lists the keys of Net in first-appearance order.
	Order []string

	Skipped []Skipped
}

// Get returns the net amount for userID, zero if absent.
func (r Result) Get(userID string) decimal.Decimal {
	return r.Net[userID]
}

// Outstanding returns the non-settled balances sorted by absolute amount,
// largest first. Ties keep first-appearance order.
func (r Result) Outstanding() []PartyBalance {
	out := make([]PartyBalance, 0, len(r.Order))
	for _, id := range r.Order {
		amount := r.Net[id]
		if IsSettled(amount) {
			continue
		}
		out = append(out, PartyBalance{UserID: id, Amount: amount})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Abs().GreaterThan(out[j].Amount.Abs())
	})
	return out
}

// SkippedCounts groups Skipped by reason.
func (r Result) SkippedCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	return counts
}

type accumulator struct {
	net   map[string]decimal.Decimal
	order []string
}

func (a *accumulator) add(userID string, amount decimal.Decimal) {
	if _, ok := a.net[userID]; !ok {
		a.order = append(a.order, userID)
	}
	a.net[userID] = a.net[userID].Add(amount)
}

// ComputeBalances returns, for currentUserID, the signed net amount against
// every other party found in expenses and settlements.
//
// For an expense paid by the current user, every other split member owes
// their share. For an expense paid by someone else, the current user owes
// the payer their own share. A completed settlement paid by the current
// user moves the balance with the payee up by the amount; one received by
// the current user moves it down. Self-shares are ignored.
//
// Malformed expenses are re-validated here and skipped whole; they are
// reported in Result.Skipped rather than silently dropped.
func ComputeBalances(currentUserID string, expenses []models.Expense, settlements []models.Settlement) Result {
	acc := &accumulator{net: make(map[string]decimal.Decimal)}
	var skipped []Skipped

	for i := range expenses {
		e := &expenses[i]
		if reason, ok := checkExpense(e); !ok {
			skipped = append(skipped, Skipped{ID: e.ID, Kind: "expense", Reason: reason})
			continue
		}

		if e.PayerID == currentUserID {
			for _, member := range sortedMembers(e.Split) {
				if member == currentUserID {
					continue
				}
				acc.add(member, e.Split[member])
			}
			continue
		}

		if share, ok := e.Split[currentUserID]; ok {
			acc.add(e.PayerID, share.Neg())
		}
	}

	for i := range settlements {
		s := &settlements[i]
		if !checkSettlement(s) {
			skipped = append(skipped, Skipped{ID: s.ID, Kind: "settlement", Reason: SkipInvalidSettlement})
			continue
		}
		if s.Status != models.SettlementCompleted {
			continue
		}
		switch currentUserID {
		case s.FromUserID:
			acc.add(s.ToUserID, s.Amount)
		case s.ToUserID:
			acc.add(s.FromUserID, s.Amount.Neg())
		}
	}

	return Result{Net: acc.net, Order: acc.order, Skipped: skipped}
}

// checkExpense re-validates the stored invariants of an expense.
func checkExpense(e *models.Expense) (string, bool) {
	if e.PayerID == "" {
		return SkipMissingPayer, false
	}
	if len(e.Split) == 0 {
		return SkipEmptySplit, false
	}
	if !e.Total.IsPositive() {
		return SkipInvalidTotal, false
	}
	for _, amount := range e.Split {
		if amount.IsNegative() {
			return SkipNegativeShare, false
		}
	}
	if !WithinEpsilon(SumShares(e.Split), e.Total) {
		return SkipSplitMismatch, false
	}
	return "", true
}

func checkSettlement(s *models.Settlement) bool {
	return s.Amount.IsPositive() && s.FromUserID != "" && s.ToUserID != "" && s.FromUserID != s.ToUserID
}

// sortedMembers gives map iteration a stable order so Result.Order is
// deterministic across runs.
func sortedMembers(split map[string]decimal.Decimal) []string {
	members := make([]string, 0, len(split))
	for m := range split {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}
