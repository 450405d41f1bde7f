package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

// ExpenseInput describes an expense to record.
type ExpenseInput struct {
	// Group is the owning group, or models.FriendGroup for a friend expense.
	Group *models.Group

	Name  string
	Total decimal.Decimal

	// Date is a Unix timestamp. Zero means now.
	Date int64

	PayerID string

	// Split defaults to EqualSplit over all group members.
	Split SplitPolicy

	CreatedBy string
}

// RecordExpense validates and stores an expense, then adds each non-payer
// share to that member's balance with the payer.
//
// On *PartialFailure the stored expense is returned along with the error.
func (e *Engine) RecordExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	start := time.Now()
	defer e.observe("record_expense", start)

	ctx, span := tracer.Start(ctx, "ledger.RecordExpense")
	defer span.End()

	expense, err := e.buildExpense(in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("group_id", expense.GroupID),
		attribute.String("payer_id", expense.PayerID),
		attribute.Int("split_size", len(expense.Split)),
	)

	if err := e.store.PutExpense(ctx, expense); err != nil {
		return nil, e.persistence(ctx, span, "put_expense", err)
	}
	if e.metrics != nil {
		e.metrics.IncrExpense()
	}

	_, pending, err := e.applyDeltas(ctx, expense.ID, expenseDeltas(expense, in.Group.Members))
	if err != nil {
		fail := &PartialFailure{Op: "record_expense", RecordID: expense.ID, Pending: pending, Err: err}
		e.partial(ctx, span, fail)
		return expense, fail
	}

	e.logger.InfoContext(ctx, "expense recorded",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"payer_id", expense.PayerID,
		"total", expense.Total.StringFixed(2),
	)
	return expense, nil
}

func (e *Engine) buildExpense(in ExpenseInput) (*models.Expense, error) {
	if in.Group == nil {
		return nil, invalid(UnknownGroup, "expense has no group")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(MissingName, "expense name is required")
	}
	total := calculator.RoundCents(in.Total)
	if !total.IsPositive() {
		return nil, invalid(InvalidAmount, "total must be positive, got %s", in.Total.String())
	}
	if !in.Group.HasMember(in.PayerID) {
		return nil, invalid(PayerNotMember, "payer %q is not a member of %s", in.PayerID, in.Group.Name)
	}

	policy := in.Split
	if policy == nil {
		policy = EqualSplit()
	}
	shares, err := policy.shares(in.Group, total)
	if err != nil {
		return nil, err
	}

	debtors := 0
	for id := range shares {
		if id != in.PayerID {
			debtors++
		}
	}
	if debtors == 0 {
		return nil, invalid(EmptySplit, "split must include someone other than the payer")
	}
	// Every policy must leave the split adding up to the total.
	if err := calculator.ValidateShares(total, shares); err != nil {
		return nil, fromCalculator(err)
	}

	date := in.Date
	if date == 0 {
		date = e.now().Unix()
	}
	return &models.Expense{
		GroupID:   in.Group.ID,
		Name:      name,
		Total:     total,
		Date:      date,
		PayerID:   in.PayerID,
		Split:     shares,
		CreatedBy: in.CreatedBy,
	}, nil
}

// expenseDeltas returns one delta per member with a positive share other
// than the payer, in group member order, then any remaining IDs sorted.
func expenseDeltas(expense *models.Expense, memberOrder []string) []BalanceDelta {
	var deltas []BalanceDelta
	seen := make(map[string]bool, len(expense.Split))
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		amount, ok := expense.Split[id]
		if !ok || id == expense.PayerID || !amount.IsPositive() {
			return
		}
		deltas = append(deltas, BalanceDelta{Creditor: expense.PayerID, Debtor: id, Amount: amount})
	}
	for _, id := range memberOrder {
		add(id)
	}
	for _, id := range sortedKeys(expense.Split) {
		add(id)
	}
	return deltas
}
