package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/pkg/api"
)

func TestLedgerService_RecordExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	carol := env.register(t, "Carol", "carol@example.com")
	group := env.createGroup(t, alice, "Trip", bob, carol)

	tests := []struct {
		name      string
		req       *api.RecordExpenseRequest
		wantSplit map[string]string
		code      connect.Code
	}{
		{
			name: "equal split over all members",
			req:  &api.RecordExpenseRequest{GroupID: group.ID, Name: "Dinner", Total: dec("100")},
			wantSplit: map[string]string{
				alice.user.ID: "33.33",
				bob.user.ID:   "33.33",
				carol.user.ID: "33.34",
			},
		},
		{
			name: "custom split",
			req: &api.RecordExpenseRequest{
				GroupID:   group.ID,
				Name:      "Hotel",
				Total:     dec("50"),
				SplitType: api.SplitCustom,
				Shares:    map[string]decimal.Decimal{bob.user.ID: dec("20"), carol.user.ID: dec("30")},
			},
			wantSplit: map[string]string{bob.user.ID: "20.00", carol.user.ID: "30.00"},
		},
		{
			name: "itemized split",
			req: &api.RecordExpenseRequest{
				GroupID:   group.ID,
				Name:      "Bar",
				Total:     dec("33"),
				SplitType: api.SplitItemized,
				Items: []api.Item{
					{Description: "Pizza", Amount: dec("20"), AssignedTo: []string{alice.user.ID, bob.user.ID}},
					{Description: "Beer", Amount: dec("10"), AssignedTo: []string{bob.user.ID}},
				},
			},
			wantSplit: map[string]string{alice.user.ID: "11.00", bob.user.ID: "22.00"},
		},
		{
			name: "custom split mismatch",
			req: &api.RecordExpenseRequest{
				GroupID:   group.ID,
				Name:      "Taxi",
				Total:     dec("40"),
				SplitType: api.SplitCustom,
				Shares:    map[string]decimal.Decimal{bob.user.ID: dec("10")},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown split type",
			req:  &api.RecordExpenseRequest{GroupID: group.ID, Name: "Taxi", Total: dec("40"), SplitType: "percent"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "no group or friend",
			req:  &api.RecordExpenseRequest{Name: "Taxi", Total: dec("40")},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "payer outside group",
			req:  &api.RecordExpenseRequest{GroupID: group.ID, Name: "Taxi", Total: dec("40"), PayerID: "ghost"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "non-positive total",
			req:  &api.RecordExpenseRequest{GroupID: group.ID, Name: "Taxi", Total: dec("0")},
			code: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.ledger.RecordExpense(ctx, authed(alice, tt.req))
			if tt.code != 0 {
				wantCode(t, err, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("RecordExpense failed: %v", err)
			}
			got := resp.Msg.Expense
			if got.PayerID != alice.user.ID {
				t.Errorf("payer = %q, want caller", got.PayerID)
			}
			if len(got.Split) != len(tt.wantSplit) {
				t.Fatalf("split = %v, want %v", got.Split, tt.wantSplit)
			}
			for id, want := range tt.wantSplit {
				if s := got.Split[id].StringFixed(2); s != want {
					t.Errorf("split[%s] = %s, want %s", id, s, want)
				}
			}
		})
	}

	// Outsiders cannot record into the group.
	outsider := env.register(t, "Dave", "dave@example.com")
	_, err := env.ledger.RecordExpense(ctx, authed(outsider, &api.RecordExpenseRequest{
		GroupID: group.ID, Name: "Sneaky", Total: dec("10"),
	}))
	wantCode(t, err, connect.CodePermissionDenied)
}

func TestLedgerService_BalancesAndSettlement(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	carol := env.register(t, "Carol", "carol@example.com")
	group := env.createGroup(t, alice, "Trip", bob, carol)

	if _, err := env.ledger.RecordExpense(ctx, authed(alice, &api.RecordExpenseRequest{
		GroupID: group.ID, Name: "Dinner", Total: dec("30"),
	})); err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	got := env.balances(t, alice)
	if got[bob.user.ID] != "10.00" || got[carol.user.ID] != "10.00" {
		t.Errorf("alice balances = %v, want bob and carol at 10.00", got)
	}
	if got := env.balances(t, bob); got[alice.user.ID] != "-10.00" {
		t.Errorf("bob balances = %v, want alice at -10.00", got)
	}

	summary, err := env.ledger.GetGroupBalances(ctx, authed(bob, &api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if summary.Msg.ExpenseCount != 1 || summary.Msg.TotalSpent.StringFixed(2) != "30.00" {
		t.Errorf("summary = %d expenses %s spent, want 1 and 30.00", summary.Msg.ExpenseCount, summary.Msg.TotalSpent)
	}
	if len(summary.Msg.Suggested) != 2 {
		t.Errorf("suggested = %+v, want 2 payments", summary.Msg.Suggested)
	}
	for _, m := range summary.Msg.Members {
		if m.Name == "" {
			t.Errorf("member %s has no display name", m.UserID)
		}
	}

	// Overpayment is rejected before anything is written.
	_, err = env.ledger.RecordSettlement(ctx, authed(bob, &api.RecordSettlementRequest{
		ToUserID: alice.user.ID, Amount: dec("10.01"),
	}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	// Third parties cannot record a payment between others.
	_, err = env.ledger.RecordSettlement(ctx, authed(carol, &api.RecordSettlementRequest{
		FromUserID: bob.user.ID, ToUserID: alice.user.ID, Amount: dec("5"),
	}))
	wantCode(t, err, connect.CodePermissionDenied)

	resp, err := env.ledger.RecordSettlement(ctx, authed(bob, &api.RecordSettlementRequest{
		ToUserID: alice.user.ID, Amount: dec("10"), Method: "PayPal", GroupID: group.ID,
	}))
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	if resp.Msg.Settlement.Status != "completed" || resp.Msg.Settlement.Method != "PayPal" {
		t.Errorf("settlement = %+v", resp.Msg.Settlement)
	}

	got = env.balances(t, alice)
	if _, ok := got[bob.user.ID]; ok {
		t.Errorf("bob should be settled, balances = %v", got)
	}
	if got[carol.user.ID] != "10.00" {
		t.Errorf("carol = %s, want 10.00", got[carol.user.ID])
	}

	activity, err := env.ledger.ListExpenses(ctx, authed(carol, &api.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(activity.Msg.Expenses) != 1 || len(activity.Msg.Settlements) != 1 {
		t.Errorf("activity = %d expenses %d settlements, want 1 and 1",
			len(activity.Msg.Expenses), len(activity.Msg.Settlements))
	}
}

func TestLedgerService_SettleGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	carol := env.register(t, "Carol", "carol@example.com")
	group := env.createGroup(t, alice, "Trip", bob, carol)

	for _, payer := range []session{alice, bob} {
		if _, err := env.ledger.RecordExpense(ctx, authed(payer, &api.RecordExpenseRequest{
			GroupID: group.ID, Name: "Round", Total: dec("30"),
		})); err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
	}

	resp, err := env.ledger.SettleGroup(ctx, authed(carol, &api.SettleGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("SettleGroup failed: %v", err)
	}
	if len(resp.Msg.Settlements) != 2 {
		t.Fatalf("settlements = %d, want 2", len(resp.Msg.Settlements))
	}
	for _, s := range resp.Msg.Settlements {
		if s.FromUserID != carol.user.ID || s.Amount.StringFixed(2) != "10.00" {
			t.Errorf("settlement = %+v, want carol paying 10.00", s)
		}
		if !strings.Contains(s.Note, "Trip") {
			t.Errorf("note = %q, want group name", s.Note)
		}
	}

	if got := env.balances(t, carol); len(got) != 0 {
		t.Errorf("carol balances after settle = %v, want none", got)
	}
}

func TestLedgerService_SettleGroupLeavesFriendDebt(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	group := env.createGroup(t, alice, "Trip", bob)

	for _, req := range []*api.RecordExpenseRequest{
		{GroupID: group.ID, Name: "Hotel", Total: dec("20")},
		{FriendID: bob.user.ID, Name: "Lunch", Total: dec("10")},
	} {
		if _, err := env.ledger.RecordExpense(ctx, authed(alice, req)); err != nil {
			t.Fatalf("RecordExpense %s failed: %v", req.Name, err)
		}
	}

	resp, err := env.ledger.SettleGroup(ctx, authed(bob, &api.SettleGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("SettleGroup failed: %v", err)
	}
	if len(resp.Msg.Settlements) != 1 || resp.Msg.Settlements[0].Amount.StringFixed(2) != "10.00" {
		t.Fatalf("settlements = %+v, want one 10.00 payment", resp.Msg.Settlements)
	}

	summary, err := env.ledger.GetGroupBalances(ctx, authed(bob, &api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(summary.Msg.Balances) != 0 {
		t.Errorf("group balances after settle = %+v, want none", summary.Msg.Balances)
	}
	_, err = env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID, GroupID: group.ID}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	// The friend lunch is outside the group and still owed.
	if got := env.balances(t, bob); got[alice.user.ID] != "-5.00" {
		t.Errorf("bob balances = %v, want alice at -5.00", got)
	}
	sent, err := env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID}))
	if err != nil {
		t.Fatalf("SendReminder failed: %v", err)
	}
	if want := "Reminder: You owe Alice $5.00"; sent.Msg.Reminder.Message != want {
		t.Errorf("message = %q, want %q", sent.Msg.Reminder.Message, want)
	}
}

func TestLedgerService_PartialFailureAndRetry(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	group := env.createGroup(t, alice, "Flat", bob)

	env.store.setFailing(true)
	_, err := env.ledger.RecordExpense(ctx, authed(alice, &api.RecordExpenseRequest{
		GroupID: group.ID, Name: "Rent", Total: dec("1000"),
	}))
	wantCode(t, err, connect.CodeAborted)

	recordID, ok := api.PendingRecord(err)
	if !ok {
		t.Fatal("aborted error carries no record ID")
	}
	pending, ok := api.PendingDeltas(err)
	if !ok || len(pending) != 1 {
		t.Fatalf("pending = %+v, want one delta", pending)
	}
	if pending[0].Creditor != alice.user.ID || pending[0].Debtor != bob.user.ID || pending[0].Amount.StringFixed(2) != "500.00" {
		t.Errorf("pending = %+v", pending[0])
	}

	// The expense is stored even though its balance update is not.
	activity, err := env.ledger.ListExpenses(ctx, authed(alice, &api.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(activity.Msg.Expenses) != 1 || activity.Msg.Expenses[0].ID != recordID {
		t.Fatalf("expenses = %+v, want the aborted expense %s", activity.Msg.Expenses, recordID)
	}

	outsider := env.register(t, "Eve", "eve@example.com")
	_, err = env.ledger.RetryBalanceUpdate(ctx, authed(outsider, &api.RetryBalanceUpdateRequest{RecordID: recordID}))
	wantCode(t, err, connect.CodePermissionDenied)

	// Reminders read the stored balance, which the failed update never wrote.
	_, err = env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	env.store.setFailing(false)
	retried, err := env.ledger.RetryBalanceUpdate(ctx, authed(alice, &api.RetryBalanceUpdateRequest{RecordID: recordID}))
	if err != nil {
		t.Fatalf("RetryBalanceUpdate failed: %v", err)
	}
	if retried.Msg.Applied != 1 {
		t.Errorf("applied = %d, want 1", retried.Msg.Applied)
	}

	// A replay of the same record must not add the rent again.
	_, err = env.ledger.RetryBalanceUpdate(ctx, authed(bob, &api.RetryBalanceUpdateRequest{RecordID: recordID}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	sent, err := env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID}))
	if err != nil {
		t.Fatalf("SendReminder after retry failed: %v", err)
	}
	if want := "Reminder: You owe Alice $500.00"; sent.Msg.Reminder.Message != want {
		t.Errorf("message = %q, want %q", sent.Msg.Reminder.Message, want)
	}
}

func TestLedgerService_RetryRejectsUnbackedDebt(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	group := env.createGroup(t, alice, "Flat", bob)

	tests := []struct {
		name     string
		recordID string
		want     connect.Code
	}{
		{"missing record ID", "", connect.CodeInvalidArgument},
		{"made-up record", "no-such-expense", connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.RetryBalanceUpdate(ctx, authed(alice, &api.RetryBalanceUpdateRequest{RecordID: tt.recordID}))
			wantCode(t, err, tt.want)
		})
	}

	// A fully applied expense cannot be replayed into extra debt.
	recorded, err := env.ledger.RecordExpense(ctx, authed(alice, &api.RecordExpenseRequest{
		GroupID: group.ID, Name: "Rent", Total: dec("1000"),
	}))
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := env.ledger.RetryBalanceUpdate(ctx, authed(alice, &api.RetryBalanceUpdateRequest{RecordID: recorded.Msg.Expense.ID}))
		wantCode(t, err, connect.CodeFailedPrecondition)
	}

	sent, err := env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID}))
	if err != nil {
		t.Fatalf("SendReminder failed: %v", err)
	}
	if want := "Reminder: You owe Alice $500.00"; sent.Msg.Reminder.Message != want {
		t.Errorf("message = %q, want %q", sent.Msg.Reminder.Message, want)
	}
}

func TestLedgerService_Reminders(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	group := env.createGroup(t, alice, "Trip", bob)

	_, err := env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	if _, err := env.ledger.RecordExpense(ctx, authed(alice, &api.RecordExpenseRequest{
		GroupID: group.ID, Name: "Tickets", Total: dec("50"),
	})); err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	// Bob owes Alice, not the other way round.
	_, err = env.ledger.SendReminder(ctx, authed(bob, &api.SendReminderRequest{ToUserID: alice.user.ID}))
	wantCode(t, err, connect.CodeFailedPrecondition)

	sent, err := env.ledger.SendReminder(ctx, authed(alice, &api.SendReminderRequest{ToUserID: bob.user.ID, GroupID: group.ID}))
	if err != nil {
		t.Fatalf("SendReminder failed: %v", err)
	}
	if want := "Reminder from Trip: You owe Alice $25.00"; sent.Msg.Reminder.Message != want {
		t.Errorf("message = %q, want %q", sent.Msg.Reminder.Message, want)
	}

	list, err := env.ledger.ListReminders(ctx, authed(bob, &api.ListRemindersRequest{}))
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if len(list.Msg.Reminders) != 1 || list.Msg.Reminders[0].ID != sent.Msg.Reminder.ID {
		t.Fatalf("reminders = %+v, want the sent one", list.Msg.Reminders)
	}
	if list.Msg.Reminders[0].Type != "group_payment_reminder" {
		t.Errorf("type = %q", list.Msg.Reminders[0].Type)
	}

	// Only the recipient may mark it read.
	_, err = env.ledger.MarkReminderRead(ctx, authed(alice, &api.MarkReminderReadRequest{ReminderID: sent.Msg.Reminder.ID}))
	wantCode(t, err, connect.CodeNotFound)

	if _, err := env.ledger.MarkReminderRead(ctx, authed(bob, &api.MarkReminderReadRequest{ReminderID: sent.Msg.Reminder.ID})); err != nil {
		t.Fatalf("MarkReminderRead failed: %v", err)
	}
	list, err = env.ledger.ListReminders(ctx, authed(bob, &api.ListRemindersRequest{}))
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if list.Msg.Reminders[0].Status != "read" || list.Msg.Reminders[0].ReadAt == 0 {
		t.Errorf("reminder after read = %+v", list.Msg.Reminders[0])
	}
}
