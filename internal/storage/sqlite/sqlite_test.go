package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("Alice", "Smith", "alice@example.com", "555-0100", "hash")
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := models.NewUser("Other", "", "alice@example.com", "", "hash")
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("lookup by email and ID", func(t *testing.T) {
		byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail.ID != alice.ID || byEmail.Phone != "555-0100" {
			t.Errorf("Unexpected user: %+v", byEmail)
		}

		byID, err := store.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.FullName() != "Alice Smith" {
			t.Errorf("Expected 'Alice Smith', got %q", byID.FullName())
		}
	})

	t.Run("missing user returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetUsersByIDs omits unknown IDs", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "ghost"})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 1 || users[alice.ID] == nil {
			t.Errorf("Expected only alice, got %v", users)
		}
	})
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Type: "Trip", CreatedBy: "A", Members: []string{"A", "B", "A"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == "" || group.CreatedAt == 0 {
		t.Fatal("Expected ID and CreatedAt to be set")
	}

	if err := store.AddGroupMembers(ctx, group.ID, []string{"B", "C"}); err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	want := []string{"A", "B", "C"}
	if len(got.Members) != len(want) {
		t.Fatalf("Expected members %v, got %v", want, got.Members)
	}
	for i := range want {
		if got.Members[i] != want[i] {
			t.Errorf("Member %d: expected %s, got %s", i, want[i], got.Members[i])
		}
	}

	groups, err := store.ListGroupsByMember(ctx, "C")
	if err != nil {
		t.Fatalf("ListGroupsByMember failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Errorf("Expected the trip group, got %v", groups)
	}

	if _, err := store.GetGroup(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.AddGroupMembers(ctx, "missing", []string{"A"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Friends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddFriend(ctx, "A", "B"); err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	// Idempotent
	if err := store.AddFriend(ctx, "B", "A"); err != nil {
		t.Fatalf("AddFriend (repeat) failed: %v", err)
	}

	for user, friend := range map[string]string{"A": "B", "B": "A"} {
		friends, err := store.ListFriends(ctx, user)
		if err != nil {
			t.Fatalf("ListFriends failed: %v", err)
		}
		if len(friends) != 1 || friends[0] != friend {
			t.Errorf("ListFriends(%s) = %v, want [%s]", user, friends, friend)
		}
	}
}

func TestSQLiteStore_ExpensesByScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expenses := []*models.Expense{
		{GroupID: "g1", Name: "Dinner", Total: dec("30"), Date: 100, PayerID: "A",
			Split: map[string]decimal.Decimal{"A": dec("10"), "B": dec("10"), "C": dec("10")}},
		{GroupID: "g1", Name: "Taxi", Total: dec("12.50"), Date: 200, PayerID: "B",
			Split: map[string]decimal.Decimal{"B": dec("6.25"), "C": dec("6.25")}},
		{GroupID: "", Name: "Coffee", Total: dec("4"), Date: 50, PayerID: "C",
			Split: map[string]decimal.Decimal{"D": dec("4")}},
	}
	for _, e := range expenses {
		if err := store.PutExpense(ctx, e); err != nil {
			t.Fatalf("PutExpense failed: %v", err)
		}
	}

	tests := []struct {
		name  string
		scope storage.Scope
		want  []string
	}{
		{"group", storage.GroupScope("g1"), []string{"Dinner", "Taxi"}},
		{"user as payer or debtor", storage.UserScope("C"), []string{"Coffee", "Dinner", "Taxi"}},
		{"user only as debtor", storage.UserScope("D"), []string{"Coffee"}},
		{"pair", storage.PairScope("A", "B"), []string{"Dinner"}},
		{"pair with no shared expense", storage.PairScope("A", "D"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetExpenses(ctx, tt.scope)
			if err != nil {
				t.Fatalf("GetExpenses failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d expenses, got %d", len(tt.want), len(got))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("Expense %d: expected %s, got %s", i, name, got[i].Name)
				}
			}
		})
	}

	t.Run("split survives round trip", func(t *testing.T) {
		got, err := store.GetExpenses(ctx, storage.GroupScope("g1"))
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		taxi := got[1]
		if !taxi.Total.Equal(dec("12.5")) {
			t.Errorf("Expected total 12.50, got %s", taxi.Total)
		}
		if len(taxi.Split) != 2 || !taxi.Split["C"].Equal(dec("6.25")) {
			t.Errorf("Unexpected split: %v", taxi.Split)
		}
	})

	t.Run("lookup by ID", func(t *testing.T) {
		got, err := store.GetExpense(ctx, expenses[1].ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Name != "Taxi" || len(got.Split) != 2 {
			t.Errorf("Unexpected expense: %+v", got)
		}
		if _, err := store.GetExpense(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty scope is rejected", func(t *testing.T) {
		if _, err := store.GetExpenses(ctx, storage.Scope{}); err == nil {
			t.Error("Expected error for empty scope")
		}
	})
}

func TestSQLiteStore_Settlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s1 := &models.Settlement{GroupID: "g1", FromUserID: "B", ToUserID: "A", Amount: dec("10"), Method: models.MethodCash}
	s2 := &models.Settlement{FromUserID: "C", ToUserID: "B", Amount: dec("5.5"), Note: "lunch", Status: models.SettlementPending}
	for _, s := range []*models.Settlement{s1, s2} {
		if err := store.PutSettlement(ctx, s); err != nil {
			t.Fatalf("PutSettlement failed: %v", err)
		}
	}
	if s1.Status != models.SettlementCompleted {
		t.Errorf("Expected default status completed, got %s", s1.Status)
	}

	pair, err := store.GetSettlements(ctx, storage.PairScope("A", "B"))
	if err != nil {
		t.Fatalf("GetSettlements failed: %v", err)
	}
	if len(pair) != 1 || pair[0].ID != s1.ID || !pair[0].Amount.Equal(dec("10")) {
		t.Errorf("Unexpected pair settlements: %+v", pair)
	}

	byID, err := store.GetSettlement(ctx, s2.ID)
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if byID.Note != "lunch" || byID.Status != models.SettlementPending {
		t.Errorf("Unexpected settlement: %+v", byID)
	}
	if _, err := store.GetSettlement(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	forB, err := store.GetSettlements(ctx, storage.UserScope("B"))
	if err != nil {
		t.Fatalf("GetSettlements failed: %v", err)
	}
	if len(forB) != 2 {
		t.Errorf("Expected 2 settlements for B, got %d", len(forB))
	}

	group, err := store.GetSettlements(ctx, storage.GroupScope("g1"))
	if err != nil {
		t.Fatalf("GetSettlements failed: %v", err)
	}
	if len(group) != 1 || group[0].Method != models.MethodCash {
		t.Errorf("Unexpected group settlements: %+v", group)
	}
}

func TestSQLiteStore_Balances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("missing balance returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetBalance(ctx, "A", "B")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateBalance creates and accumulates", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := store.UpdateBalance(ctx, "", "B", "A", func(b *models.Balance) error {
				b.Credit("A", "B", dec("7.5"))
				return nil
			})
			if err != nil {
				t.Fatalf("UpdateBalance failed: %v", err)
			}
		}

		b, err := store.GetBalance(ctx, "B", "A")
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if b.UserA != "A" || b.UserB != "B" {
			t.Errorf("Expected canonical pair (A, B), got (%s, %s)", b.UserA, b.UserB)
		}
		if !b.OwedTo("A").Equal(dec("15")) {
			t.Errorf("Expected B to owe A 15, got %s", b.OwedTo("A"))
		}
		if b.Version != 2 {
			t.Errorf("Expected version 2, got %d", b.Version)
		}
	})

	t.Run("failed update leaves balance untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.UpdateBalance(ctx, "k1", "A", "B", func(b *models.Balance) error {
			b.Net = dec("999")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}

		b, err := store.GetBalance(ctx, "A", "B")
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if !b.Net.Equal(dec("15")) {
			t.Errorf("Expected net 15, got %s", b.Net)
		}
	})

	t.Run("keyed update lands once", func(t *testing.T) {
		// k1 was rolled back with the failed update above, so it is free.
		for i, want := range []error{nil, storage.ErrAlreadyApplied} {
			_, err := store.UpdateBalance(ctx, "k1", "A", "B", func(b *models.Balance) error {
				b.Credit("A", "B", dec("5"))
				return nil
			})
			if !errors.Is(err, want) {
				t.Fatalf("Attempt %d: expected %v, got %v", i, want, err)
			}
		}

		b, err := store.GetBalance(ctx, "A", "B")
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if !b.Net.Equal(dec("20")) {
			t.Errorf("Expected net 20, got %s", b.Net)
		}
	})
}

func TestSQLiteStore_Reminders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := &models.Reminder{
		FromUserID: "A",
		ToUserID:   "B",
		Amount:     dec("12.34"),
		Message:    "Reminder: You owe Alice $12.34",
		Type:       models.ReminderPayment,
		Status:     models.ReminderSent,
	}
	if err := store.PutReminder(ctx, r); err != nil {
		t.Fatalf("PutReminder failed: %v", err)
	}

	if err := store.MarkReminderRead(ctx, r.ID); err != nil {
		t.Fatalf("MarkReminderRead failed: %v", err)
	}

	list, err := store.ListReminders(ctx, "B")
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 reminder, got %d", len(list))
	}
	if list[0].Status != models.ReminderRead || list[0].ReadAt == 0 {
		t.Errorf("Expected read reminder, got %+v", list[0])
	}
	if !list[0].Amount.Equal(dec("12.34")) {
		t.Errorf("Expected amount 12.34, got %s", list[0].Amount)
	}

	if err := store.MarkReminderRead(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
