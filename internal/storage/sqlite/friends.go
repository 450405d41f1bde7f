package sqlite

import (
	"context"
	"fmt"
	"time"
)

// AddFriend links two users in both directions. Adding an existing friend is a no-op.
func (s *SQLiteStore) AddFriend(ctx context.Context, userID, friendID string) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO friends (user_id, friend_id, added_at) VALUES (?, ?, ?)`,
			pair[0], pair[1], now,
		)
		if err != nil {
			return fmt.Errorf("failed to add friend: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListFriends returns the friend IDs of userID, oldest first.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_id FROM friends WHERE user_id = ? ORDER BY added_at, friend_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}
