package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// PutReminder inserts a reminder.
func (s *SQLiteStore) PutReminder(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if reminder.CreatedAt == 0 {
		reminder.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, from_user_id, to_user_id, group_id, group_name, amount, message, type, status, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		reminder.ID,
		reminder.FromUserID,
		reminder.ToUserID,
		reminder.GroupID,
		reminder.GroupName,
		reminder.Amount.String(),
		reminder.Message,
		reminder.Type,
		reminder.Status,
		reminder.CreatedAt,
		reminder.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// ListReminders returns the reminders addressed to toUserID, newest first.
func (s *SQLiteStore) ListReminders(ctx context.Context, toUserID string) ([]*models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_user_id, to_user_id, group_id, group_name, amount, message, type, status, created_at, read_at
		FROM reminders
		WHERE to_user_id = ?
		ORDER BY created_at DESC, id
	`, toUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r := &models.Reminder{}
		err := rows.Scan(
			&r.ID,
			&r.FromUserID,
			&r.ToUserID,
			&r.GroupID,
			&r.GroupName,
			&r.Amount,
			&r.Message,
			&r.Type,
			&r.Status,
			&r.CreatedAt,
			&r.ReadAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderRead flags a reminder as read.
func (s *SQLiteStore) MarkReminderRead(ctx context.Context, reminderID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ?, read_at = ? WHERE id = ?`,
		models.ReminderRead, time.Now().Unix(), reminderID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark reminder read: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reminder %s: %w", reminderID, storage.ErrNotFound)
	}
	return nil
}
