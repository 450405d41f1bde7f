package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// PutSettlement inserts a new settlement record.
func (s *SQLiteStore) PutSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementCompleted
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount, method, note, status, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		settlement.ID,
		settlement.GroupID,
		settlement.FromUserID,
		settlement.ToUserID,
		settlement.Amount.String(),
		settlement.Method,
		settlement.Note,
		string(settlement.Status),
		settlement.CreatedAt,
		settlement.CreatedBy,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("settlement %s: %w", settlement.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

// GetSettlement returns one settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	settlements, err := s.querySettlements(ctx, "id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(settlements) == 0 {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	return &settlements[0], nil
}

// GetSettlements returns the settlements in scope, oldest first.
func (s *SQLiteStore) GetSettlements(ctx context.Context, scope storage.Scope) ([]models.Settlement, error) {
	where, args, err := settlementFilter(scope)
	if err != nil {
		return nil, err
	}
	return s.querySettlements(ctx, where, args)
}

func (s *SQLiteStore) querySettlements(ctx context.Context, where string, args []any) ([]models.Settlement, error) {
	query := `
		SELECT id, group_id, from_user_id, to_user_id, amount, method, note, status, created_at, created_by
		FROM settlements
		WHERE ` + where + `
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		var st models.Settlement
		var status string
		err := rows.Scan(
			&st.ID,
			&st.GroupID,
			&st.FromUserID,
			&st.ToUserID,
			&st.Amount,
			&st.Method,
			&st.Note,
			&status,
			&st.CreatedAt,
			&st.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		st.Status = models.SettlementStatus(status)
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}

	return settlements, nil
}
