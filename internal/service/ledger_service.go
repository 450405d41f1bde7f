package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// LedgerService implements api.LedgerServiceHandler on top of a ledger.Engine.
type LedgerService struct {
	store    storage.Store
	engine   *ledger.Engine
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewLedgerService creates a LedgerService. The engine must share store.
func NewLedgerService(store storage.Store, engine *ledger.Engine, notifier notify.Notifier, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		store:    store,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// RecordExpense records an expense in a group or with a friend.
//
// If the expense is stored but some balance updates fail, the error is
// Aborted and carries the expense ID; pass it to RetryBalanceUpdate.
func (s *LedgerService) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	msg := req.Msg
	s.logger.InfoContext(ctx, "RecordExpense request received",
		"group_id", msg.GroupID,
		"friend_id", msg.FriendID,
		"split_type", msg.SplitType,
	)

	group, err := s.expenseGroup(ctx, userID, msg.GroupID, msg.FriendID)
	if err != nil {
		return nil, err
	}

	split, err := splitPolicy(msg)
	if err != nil {
		return nil, err
	}

	payerID := msg.PayerID
	if payerID == "" {
		payerID = userID
	}

	expense, err := s.engine.RecordExpense(ctx, ledger.ExpenseInput{
		Group:     group,
		Name:      msg.Name,
		Total:     msg.Total,
		Date:      msg.Date,
		PayerID:   payerID,
		Split:     split,
		CreatedBy: userID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RecordExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// expenseGroup resolves the group an expense is recorded in. A friend
// expense uses a pseudo-group of the caller and the friend.
func (s *LedgerService) expenseGroup(ctx context.Context, userID, groupID, friendID string) (*models.Group, error) {
	switch {
	case groupID != "":
		return memberGroup(ctx, s.store, groupID)
	case friendID == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errNoCounterpart)
	case friendID == userID:
		return nil, connect.NewError(connect.CodeInvalidArgument, ledger.ErrSameParty)
	}
	if _, err := s.store.GetUserByID(ctx, friendID); err != nil {
		return nil, toConnectError(err)
	}
	return models.FriendGroup(userID, friendID), nil
}

func splitPolicy(msg *api.RecordExpenseRequest) (ledger.SplitPolicy, error) {
	switch msg.SplitType {
	case "", api.SplitEqual:
		return ledger.EqualSplit(msg.Members...), nil
	case api.SplitCustom:
		return ledger.CustomSplit(msg.Shares), nil
	case api.SplitItemized:
		return ledger.ItemizedSplit(fromAPIItems(msg.Items)), nil
	}
	return nil, connect.NewError(connect.CodeInvalidArgument, errUnknownSplit)
}

// ListExpenses returns a group's expenses and settlements, oldest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	s.logger.InfoContext(ctx, "ListExpenses request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	var (
		expenses    []models.Expense
		settlements []models.Settlement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.GetExpenses(gctx, storage.GroupScope(group.ID))
		return err
	})
	g.Go(func() error {
		var err error
		settlements, err = s.store.GetSettlements(gctx, storage.GroupScope(group.ID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.ListExpensesResponse{
		Expenses:    make([]*api.Expense, len(expenses)),
		Settlements: make([]*api.Settlement, len(settlements)),
	}
	for i := range expenses {
		resp.Expenses[i] = toAPIExpense(&expenses[i])
	}
	for i := range settlements {
		resp.Settlements[i] = toAPISettlement(&settlements[i])
	}
	return connect.NewResponse(resp), nil
}

// RecordSettlement records a payment the caller made or received.
func (s *LedgerService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	userID := middleware.GetUserID(ctx)
	msg := req.Msg
	s.logger.InfoContext(ctx, "RecordSettlement request received",
		"to_user_id", msg.ToUserID,
		"group_id", msg.GroupID,
	)

	from := msg.FromUserID
	if from == "" {
		from = userID
	}
	if from != userID && msg.ToUserID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotParty)
	}
	if msg.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, msg.GroupID); err != nil {
			return nil, err
		}
	}

	settlement, err := s.engine.RecordSettlement(ctx, ledger.SettlementInput{
		FromUserID: from,
		ToUserID:   msg.ToUserID,
		Amount:     msg.Amount,
		Method:     msg.Method,
		Note:       msg.Note,
		GroupID:    msg.GroupID,
		CreatedBy:  userID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RecordSettlementResponse{Settlement: toAPISettlement(settlement)}), nil
}

// SettleGroup settles the caller's balance with every other group member.
func (s *LedgerService) SettleGroup(ctx context.Context, req *connect.Request[api.SettleGroupRequest]) (*connect.Response[api.SettleGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "SettleGroup request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	settlements, err := s.engine.SettleGroup(ctx, group, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "SettleGroup stopped early",
			"group_id", group.ID,
			"settled", len(settlements),
			"error", err,
		)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SettleGroupResponse{Settlements: toAPISettlements(settlements)}), nil
}

// RetryBalanceUpdate finishes the balance step of a stored expense or
// settlement left incomplete by a partial failure. The caller must take
// part in the record; a record with nothing pending is FailedPrecondition.
func (s *LedgerService) RetryBalanceUpdate(ctx context.Context, req *connect.Request[api.RetryBalanceUpdateRequest]) (*connect.Response[api.RetryBalanceUpdateResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "RetryBalanceUpdate request received", "record_id", req.Msg.RecordID)

	if req.Msg.RecordID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNoRecord)
	}

	applied, err := s.engine.ResumeBalanceUpdate(ctx, req.Msg.RecordID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RetryBalanceUpdateResponse{Applied: applied}), nil
}

// GetBalances computes the caller's balances from the stored records.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "GetBalances request received", "friend_id", req.Msg.FriendID)

	scope := storage.UserScope(userID)
	if req.Msg.FriendID != "" {
		scope = storage.PairScope(userID, req.Msg.FriendID)
	}

	result, err := s.engine.ComputeBalances(ctx, userID, scope)
	if err != nil {
		return nil, toConnectError(err)
	}

	outstanding := result.Outstanding()
	users, err := s.store.GetUsersByIDs(ctx, partyIDs(outstanding))
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetBalancesResponse{
		Balances: toAPIBalances(outstanding, users),
		Skipped:  len(result.Skipped),
	}), nil
}

// GetGroupBalances returns the caller's balance panel for a group.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "GetGroupBalances request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.GroupSummary(ctx, group, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	outstanding := summary.Balances.Outstanding()
	ids := partyIDs(outstanding)
	for _, m := range summary.Members {
		ids = append(ids, m.MemberID)
	}
	users, err := s.store.GetUsersByIDs(ctx, models.UniqueIDs(ids))
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.GetGroupBalancesResponse{
		Balances:     toAPIBalances(outstanding, users),
		Members:      make([]*api.MemberBalance, len(summary.Members)),
		Suggested:    make([]*api.DebtEdge, len(summary.Suggested)),
		ExpenseCount: summary.ExpenseCount,
		TotalSpent:   summary.TotalSpent,
		Skipped:      len(summary.Balances.Skipped),
	}
	for i, m := range summary.Members {
		resp.Members[i] = &api.MemberBalance{
			UserID:    m.MemberID,
			Name:      displayName(users, m.MemberID),
			TotalPaid: m.TotalPaid,
			TotalOwed: m.TotalOwed,
			Net:       m.Net,
		}
	}
	for i, edge := range summary.Suggested {
		resp.Suggested[i] = &api.DebtEdge{From: edge.From, To: edge.To, Amount: edge.Amount}
	}
	return connect.NewResponse(resp), nil
}

// SendReminder asks a debtor to pay what they owe the caller. Within a
// group the amount is the group balance, otherwise the stored pair balance.
func (s *LedgerService) SendReminder(ctx context.Context, req *connect.Request[api.SendReminderRequest]) (*connect.Response[api.SendReminderResponse], error) {
	userID := middleware.GetUserID(ctx)
	msg := req.Msg
	s.logger.InfoContext(ctx, "SendReminder request received",
		"to_user_id", msg.ToUserID,
		"group_id", msg.GroupID,
	)

	if msg.ToUserID == "" || msg.ToUserID == userID {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("to_user_id must name another user"))
	}

	var (
		owed      decimal.Decimal
		groupName string
	)
	if msg.GroupID != "" {
		group, err := memberGroup(ctx, s.store, msg.GroupID)
		if err != nil {
			return nil, err
		}
		result, err := s.engine.ComputeBalances(ctx, userID, storage.GroupScope(group.ID))
		if err != nil {
			return nil, toConnectError(err)
		}
		owed, groupName = result.Get(msg.ToUserID), group.Name
	} else {
		balance, err := s.store.GetBalance(ctx, userID, msg.ToUserID)
		switch {
		case isNotFound(err):
			owed = decimal.Zero
		case err != nil:
			return nil, toConnectError(err)
		default:
			owed = balance.OwedTo(userID)
		}
	}
	if !owed.IsPositive() || calculator.IsSettled(owed) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errNothingOwed)
	}

	creditor, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	notice := notify.Notice{
		FromUserID: userID,
		ToUserID:   msg.ToUserID,
		GroupID:    msg.GroupID,
		GroupName:  groupName,
		Amount:     owed,
		Message:    notify.ReminderMessage(creditor.FullName(), groupName, owed),
	}
	id, err := s.notifier.Notify(ctx, notice)
	if err != nil {
		s.logger.ErrorContext(ctx, "SendReminder failed", "error", err)
		return nil, toConnectError(err)
	}

	reminder := &api.Reminder{
		ID:         id,
		FromUserID: notice.FromUserID,
		ToUserID:   notice.ToUserID,
		GroupID:    notice.GroupID,
		GroupName:  notice.GroupName,
		Amount:     notice.Amount,
		Message:    notice.Message,
		Type:       models.ReminderPayment,
		Status:     models.ReminderSent,
		CreatedAt:  time.Now().Unix(),
	}
	if notice.GroupID != "" {
		reminder.Type = models.ReminderGroupPayment
	}
	return connect.NewResponse(&api.SendReminderResponse{Reminder: reminder}), nil
}

// ListReminders returns the reminders sent to the caller, newest first.
func (s *LedgerService) ListReminders(ctx context.Context, req *connect.Request[api.ListRemindersRequest]) (*connect.Response[api.ListRemindersResponse], error) {
	userID := middleware.GetUserID(ctx)

	reminders, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := make([]*api.Reminder, len(reminders))
	for i, r := range reminders {
		out[i] = toAPIReminder(r)
	}
	return connect.NewResponse(&api.ListRemindersResponse{Reminders: out}), nil
}

// MarkReminderRead marks one of the caller's reminders as read.
func (s *LedgerService) MarkReminderRead(ctx context.Context, req *connect.Request[api.MarkReminderReadRequest]) (*connect.Response[api.MarkReminderReadResponse], error) {
	userID := middleware.GetUserID(ctx)

	reminders, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	owned := false
	for _, r := range reminders {
		if r.ID == req.Msg.ReminderID {
			owned = true
			break
		}
	}
	if !owned {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("reminder %s: %w", req.Msg.ReminderID, storage.ErrNotFound))
	}

	if err := s.store.MarkReminderRead(ctx, req.Msg.ReminderID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.MarkReminderReadResponse{}), nil
}

func partyIDs(balances []calculator.PartyBalance) []string {
	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.UserID
	}
	return ids
}
