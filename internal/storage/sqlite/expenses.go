package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// PutExpense inserts an expense and its split rows in one transaction.
func (s *SQLiteStore) PutExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, name, total, date, payer_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		expense.ID,
		expense.GroupID,
		expense.Name,
		expense.Total.String(),
		expense.Date,
		expense.PayerID,
		expense.CreatedBy,
		expense.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for userID, amount := range expense.Split {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, user_id, amount) VALUES (?, ?, ?)`,
			expense.ID, userID, amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense returns one expense with its split.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expenses, err := s.queryExpenses(ctx, "e.id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	return &expenses[0], nil
}

// GetExpenses returns the expenses in scope with their splits, oldest first.
func (s *SQLiteStore) GetExpenses(ctx context.Context, scope storage.Scope) ([]models.Expense, error) {
	where, args, err := expenseFilter(scope)
	if err != nil {
		return nil, err
	}
	return s.queryExpenses(ctx, where, args)
}

func (s *SQLiteStore) queryExpenses(ctx context.Context, where string, args []any) ([]models.Expense, error) {
	// A single join keeps one cursor open at a time.
	query := `
		SELECT e.id, e.group_id, e.name, e.total, e.date, e.payer_id, e.created_by, e.created_at,
		       es.user_id, es.amount
		FROM expenses e
		LEFT JOIN expense_splits es ON es.expense_id = e.id
		WHERE ` + where + `
		ORDER BY e.date, e.created_at, e.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	index := make(map[string]int)
	for rows.Next() {
		var (
			e      models.Expense
			userID sql.NullString
			amount decimal.NullDecimal
		)
		err := rows.Scan(
			&e.ID, &e.GroupID, &e.Name, &e.Total, &e.Date, &e.PayerID, &e.CreatedBy, &e.CreatedAt,
			&userID, &amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		i, ok := index[e.ID]
		if !ok {
			e.Split = make(map[string]decimal.Decimal)
			expenses = append(expenses, e)
			i = len(expenses) - 1
			index[e.ID] = i
		}
		if userID.Valid && amount.Valid {
			expenses[i].Split[userID.String] = amount.Decimal
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}
