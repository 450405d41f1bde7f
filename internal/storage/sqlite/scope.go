package sqlite

import (
	"errors"

	"github.com/mmynk/splitledger/internal/storage"
)

var errBadScope = errors.New("scope needs a group ID or one or two user IDs")

// expenseFilter returns the WHERE clause selecting expenses (aliased e) in scope.
func expenseFilter(scope storage.Scope) (string, []any, error) {
	const owes = `e.id IN (SELECT expense_id FROM expense_splits WHERE user_id = ?)`

	switch {
	case scope.GroupID != "":
		return `e.group_id = ?`, []any{scope.GroupID}, nil
	case len(scope.UserIDs) == 1:
		u := scope.UserIDs[0]
		return `(e.payer_id = ? OR ` + owes + `)`, []any{u, u}, nil
	case len(scope.UserIDs) == 2:
		a, b := scope.UserIDs[0], scope.UserIDs[1]
		return `((e.payer_id = ? AND ` + owes + `) OR (e.payer_id = ? AND ` + owes + `))`,
			[]any{a, b, b, a}, nil
	}
	return "", nil, errBadScope
}

// settlementFilter returns the WHERE clause selecting settlements in scope.
func settlementFilter(scope storage.Scope) (string, []any, error) {
	switch {
	case scope.GroupID != "":
		return `group_id = ?`, []any{scope.GroupID}, nil
	case len(scope.UserIDs) == 1:
		u := scope.UserIDs[0]
		return `(from_user_id = ? OR to_user_id = ?)`, []any{u, u}, nil
	case len(scope.UserIDs) == 2:
		a, b := scope.UserIDs[0], scope.UserIDs[1]
		return `((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))`,
			[]any{a, b, b, a}, nil
	}
	return "", nil, errBadScope
}
