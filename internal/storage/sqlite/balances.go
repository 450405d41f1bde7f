package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// GetBalance returns the stored balance for a pair, or storage.ErrNotFound.
func (s *SQLiteStore) GetBalance(ctx context.Context, userA, userB string) (*models.Balance, error) {
	return getBalance(ctx, s.db, userA, userB)
}

// UpdateBalance applies fn to the pair's balance inside a transaction. The
// key row is inserted in the same transaction.
func (s *SQLiteStore) UpdateBalance(ctx context.Context, key, userA, userB string, fn func(*models.Balance) error) (*models.Balance, error) {
	lo, hi := models.OrderedPair(userA, userB)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if key != "" {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO applied_updates (key, user_a, user_b, applied_at) VALUES (?, ?, ?, ?)`,
			key, lo, hi, time.Now().Unix(),
		)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update %s: %w", key, storage.ErrAlreadyApplied)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to record update key: %w", err)
		}
	}

	balance, err := getBalance(ctx, tx, lo, hi)
	if errors.Is(err, storage.ErrNotFound) {
		balance = models.NewBalance(lo, hi)
	} else if err != nil {
		return nil, err
	}

	if err := fn(balance); err != nil {
		return nil, err
	}
	balance.UserA, balance.UserB = lo, hi
	balance.Version++
	balance.UpdatedAt = time.Now().Unix()

	if err := putBalance(ctx, tx, balance); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return balance, nil
}

func getBalance(ctx context.Context, q querier, userA, userB string) (*models.Balance, error) {
	lo, hi := models.OrderedPair(userA, userB)
	balance := &models.Balance{}
	err := q.QueryRowContext(ctx,
		`SELECT user_a, user_b, net, version, updated_at FROM balances WHERE user_a = ? AND user_b = ?`,
		lo, hi,
	).Scan(&balance.UserA, &balance.UserB, &balance.Net, &balance.Version, &balance.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func putBalance(ctx context.Context, q querier, balance *models.Balance) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO balances (user_a, user_b, net, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_a, user_b) DO UPDATE SET
			net = excluded.net,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, balance.UserA, balance.UserB, balance.Net.String(), balance.Version, balance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store balance: %w", err)
	}
	return nil
}
