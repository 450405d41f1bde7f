// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent writer changed a record
	// between read and write and the store gave up retrying.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrAlreadyExists is returned on a unique-key violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyApplied is returned by UpdateBalance when its key was
	// stored by an earlier update.
	ErrAlreadyApplied = errors.New("balance update already applied")
)

// Scope selects the expense and settlement records an aggregation runs on.
// Exactly one of GroupID or UserIDs is set.
type Scope struct {
	// GroupID selects every record of one group.
	GroupID string

	// UserIDs with one ID selects every record involving that user. With
	// two IDs it selects the records that create debt between them.
	UserIDs []string
}

// GroupScope selects the records of a group.
func GroupScope(groupID string) Scope { return Scope{GroupID: groupID} }

// UserScope selects every record involving userID.
func UserScope(userID string) Scope { return Scope{UserIDs: []string{userID}} }

// PairScope selects the records between two users.
func PairScope(a, b string) Scope { return Scope{UserIDs: []string{a, b}} }

// LedgerStore is the persistence contract the ledger engine depends on.
type LedgerStore interface {
	// PutExpense persists a new expense with its split.
	// The expense.ID and CreatedAt fields are populated when empty.
	PutExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense returns one expense with its split, or ErrNotFound.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// GetExpenses returns the expenses in scope, oldest first.
	GetExpenses(ctx context.Context, scope Scope) ([]models.Expense, error)

	// PutSettlement persists a new settlement.
	PutSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement returns one settlement, or ErrNotFound.
	GetSettlement(ctx context.Context, id string) (*models.Settlement, error)

	// GetSettlements returns the settlements in scope, oldest first.
	GetSettlements(ctx context.Context, scope Scope) ([]models.Settlement, error)

	// GetBalance returns the balance between two users, or ErrNotFound.
	GetBalance(ctx context.Context, userA, userB string) (*models.Balance, error)

	// UpdateBalance runs fn on the current balance for the pair (a zero
	// balance if none exists) and stores the result as one atomic
	// read-modify-write. No update is stored if fn returns an error.
	//
	// A non-empty key is recorded in the same write. If key was recorded
	// before, fn is not run and ErrAlreadyApplied is returned, so a
	// keyed update lands at most once.
	UpdateBalance(ctx context.Context, key, userA, userB string, fn func(*models.Balance) error) (*models.Balance, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, MongoDB)
// without changing the service layer.
type Store interface {
	LedgerStore

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs returns a map of user ID to user. Unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)
	// AddGroupMembers adds members with set semantics; existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// AddFriend links two users in both directions.
	AddFriend(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]string, error)

	PutReminder(ctx context.Context, reminder *models.Reminder) error
	ListReminders(ctx context.Context, toUserID string) ([]*models.Reminder, error)
	MarkReminderRead(ctx context.Context, reminderID string) error

	// Close releases any resources held by the store.
	Close() error
}
