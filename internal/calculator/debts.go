package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID  string
	TotalPaid decimal.Decimal // Paid for expenses plus settlements sent
	TotalOwed decimal.Decimal // Own shares plus settlements received
	Net       decimal.Decimal // Positive = is owed money, Negative = owes money
}

// DebtEdge is a suggested payment from one member to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// MemberBalances aggregates who paid what and who owes what across a
// group's expenses and completed settlements. Members are returned in
// the order of members, followed by anyone else who appears in the records.
//
// - For each expense: payer paid +total, each split member owes their share
// - For each settlement: payer's balance improves, receiver's balance decreases
// - net = paid - owed
func MemberBalances(members []string, expenses []models.Expense, settlements []models.Settlement) ([]MemberBalance, []Skipped) {
	balances := make(map[string]*MemberBalance)
	var order []string
	get := func(id string) *MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &MemberBalance{MemberID: id, TotalPaid: decimal.Zero, TotalOwed: decimal.Zero}
		balances[id] = b
		order = append(order, id)
		return b
	}
	for _, m := range unique(members) {
		get(m)
	}

	var skipped []Skipped
	for i := range expenses {
		e := &expenses[i]
		if reason, ok := checkExpense(e); !ok {
			skipped = append(skipped, Skipped{ID: e.ID, Kind: "expense", Reason: reason})
			continue
		}
		payer := get(e.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(e.Total)
		for _, member := range sortedMembers(e.Split) {
			b := get(member)
			b.TotalOwed = b.TotalOwed.Add(e.Split[member])
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
		from := get(s.FromUserID)
		from.TotalPaid = from.TotalPaid.Add(s.Amount)
		to := get(s.ToUserID)
		to.TotalOwed = to.TotalOwed.Add(s.Amount)
	}

	out := make([]MemberBalance, 0, len(order))
	for _, id := range order {
		b := balances[id]
		b.Net = b.TotalPaid.Sub(b.TotalOwed)
		out = append(out, *b)
	}
	return out, skipped
}

// SimplifyDebts matches debtors with creditors to produce a short list of
// payments that clears every net balance. Greedy: the largest debt is
// matched with the largest credit first.
func SimplifyDebts(balances []MemberBalance) []DebtEdge {
	type party struct {
		id     string
		amount decimal.Decimal
	}
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case IsSettled(b.Net):
		case b.Net.IsPositive():
			creditors = append(creditors, party{b.MemberID, b.Net})
		default:
			debtors = append(debtors, party{b.MemberID, b.Net.Neg()})
		}
	}
	byAmount := func(p []party) func(i, j int) bool {
		return func(i, j int) bool { return p[i].amount.GreaterThan(p[j].amount) }
	}
	sort.SliceStable(creditors, byAmount(creditors))
	sort.SliceStable(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if !IsSettled(amount) {
			edges = append(edges, DebtEdge{From: debtors[i].id, To: creditors[j].id, Amount: RoundCents(amount)})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if IsSettled(debtors[i].amount) {
			i++
		}
		if IsSettled(creditors[j].amount) {
			j++
		}
	}
	return edges
}
