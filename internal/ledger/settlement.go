package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// SettlementInput describes a payment from FromUserID to ToUserID.
type SettlementInput struct {
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal

	// Method defaults to models.MethodCash.
	Method string
	Note   string

	GroupID   string
	CreatedBy string
}

// RecordSettlement stores a completed settlement and reduces what
// FromUserID owes ToUserID by Amount.
//
// A settlement may not exceed the debt in its own scope; such a payment is
// rejected with Overpayment rather than flipping the balance. With a
// GroupID the cap is what FromUserID owes in that group, computed from the
// group's records. Without one it is the stored pair balance.
// On *PartialFailure the stored settlement is returned along with the error.
func (e *Engine) RecordSettlement(ctx context.Context, in SettlementInput) (*models.Settlement, error) {
	start := time.Now()
	defer e.observe("record_settlement", start)

	ctx, span := tracer.Start(ctx, "ledger.RecordSettlement")
	defer span.End()
	span.SetAttributes(
		attribute.String("from_user_id", in.FromUserID),
		attribute.String("to_user_id", in.ToUserID),
	)

	amount := calculator.RoundCents(in.Amount)
	switch {
	case in.FromUserID == "" || in.ToUserID == "":
		return nil, invalid(MissingParty, "settlement needs both a payer and a payee")
	case in.FromUserID == in.ToUserID:
		return nil, invalid(SameParty, "cannot settle with yourself")
	case !amount.IsPositive():
		return nil, invalid(InvalidAmount, "amount must be positive, got %s", in.Amount.String())
	}

	owed, err := e.owed(ctx, in.GroupID, in.FromUserID, in.ToUserID)
	if err != nil {
		return nil, e.persistence(ctx, span, "get_owed", err)
	}
	if amount.GreaterThan(owed) {
		return nil, invalid(Overpayment, "%s exceeds the %s owed", amount.StringFixed(2), owed.StringFixed(2))
	}

	method := in.Method
	if method == "" {
		method = models.MethodCash
	}
	settlement := &models.Settlement{
		GroupID:    in.GroupID,
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Amount:     amount,
		Method:     method,
		Note:       in.Note,
		Status:     models.SettlementCompleted,
		CreatedAt:  e.now().Unix(),
		CreatedBy:  in.CreatedBy,
	}
	if err := e.store.PutSettlement(ctx, settlement); err != nil {
		return nil, e.persistence(ctx, span, "put_settlement", err)
	}
	if e.metrics != nil {
		e.metrics.IncrSettlement()
	}

	if _, pending, err := e.applyDeltas(ctx, settlement.ID, []BalanceDelta{settlementDelta(settlement)}); err != nil {
		fail := &PartialFailure{Op: "record_settlement", RecordID: settlement.ID, Pending: pending, Err: err}
		e.partial(ctx, span, fail)
		return settlement, fail
	}

	e.logger.InfoContext(ctx, "settlement recorded",
		"settlement_id", settlement.ID,
		"from_user_id", settlement.FromUserID,
		"to_user_id", settlement.ToUserID,
		"amount", amount.StringFixed(2),
	)
	return settlement, nil
}

// owed returns what from currently owes to, negative when to owes from.
// With a groupID it is computed from that group's records, otherwise it is
// read from the stored pair balance.
func (e *Engine) owed(ctx context.Context, groupID, from, to string) (decimal.Decimal, error) {
	if groupID != "" {
		expenses, settlements, err := e.load(ctx, storage.GroupScope(groupID))
		if err != nil {
			return decimal.Zero, err
		}
		result := calculator.ComputeBalances(from, expenses, settlements)
		e.reportSkipped(ctx, result.Skipped)
		return result.Get(to).Neg(), nil
	}

	b, err := e.store.GetBalance(ctx, from, to)
	if isNotFound(err) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return b.OwedTo(to), nil
}

// settlementDelta is the balance change of a completed settlement: the
// payer gains credit against the payee.
func settlementDelta(s *models.Settlement) BalanceDelta {
	return BalanceDelta{Creditor: s.FromUserID, Debtor: s.ToUserID, Amount: s.Amount}
}

// SettleGroup clears userID's balance with every other member of group.
// The amounts come from the group's own expenses and settlements. Each
// non-zero one gets a completed Cash settlement in the debtor to creditor
// direction, applied to the stored pair balance like any other delta.
// Debt from other groups and friend expenses stays on the pair balance.
//
// This is the bulk "settle all" path and is distinct from RecordSettlement:
// it never checks for overpayment and leaves the group at exactly zero for
// userID. The settlements created so far are returned even on error.
func (e *Engine) SettleGroup(ctx context.Context, group *models.Group, userID string) ([]*models.Settlement, error) {
	start := time.Now()
	defer e.observe("settle_group", start)

	ctx, span := tracer.Start(ctx, "ledger.SettleGroup")
	defer span.End()

	if group == nil || group.IsFriendGroup() {
		return nil, invalid(UnknownGroup, "settle group needs a stored group")
	}
	if !group.HasMember(userID) {
		return nil, invalid(MemberNotInGroup, "%s is not a member of %s", userID, group.Name)
	}
	span.SetAttributes(attribute.String("group_id", group.ID), attribute.String("user_id", userID))

	expenses, settlements, err := e.load(ctx, storage.GroupScope(group.ID))
	if err != nil {
		return nil, e.persistence(ctx, span, "load_records", err)
	}
	balances := calculator.ComputeBalances(userID, expenses, settlements)
	e.reportSkipped(ctx, balances.Skipped)

	note := fmt.Sprintf("Group settlement in %s", group.Name)
	var created []*models.Settlement
	for _, member := range group.Members {
		if member == userID {
			continue
		}
		owedToUser := balances.Get(member)
		if calculator.IsSettled(owedToUser) {
			continue
		}

		from, to, amount := member, userID, owedToUser
		if owedToUser.IsNegative() {
			from, to, amount = userID, member, owedToUser.Neg()
		}

		settlement := &models.Settlement{
			GroupID:    group.ID,
			FromUserID: from,
			ToUserID:   to,
			Amount:     amount,
			Method:     models.MethodCash,
			Note:       note,
			Status:     models.SettlementCompleted,
			CreatedAt:  e.now().Unix(),
			CreatedBy:  userID,
		}
		if err := e.store.PutSettlement(ctx, settlement); err != nil {
			return created, e.persistence(ctx, span, "put_settlement", err)
		}
		created = append(created, settlement)
		if e.metrics != nil {
			e.metrics.IncrSettlement()
		}

		if _, pending, err := e.applyDeltas(ctx, settlement.ID, []BalanceDelta{settlementDelta(settlement)}); err != nil {
			fail := &PartialFailure{Op: "settle_group", RecordID: settlement.ID, Pending: pending, Err: err}
			e.partial(ctx, span, fail)
			return created, fail
		}
	}

	e.logger.InfoContext(ctx, "group settled",
		"group_id", group.ID,
		"user_id", userID,
		"settlements", len(created),
	)
	return created, nil
}
