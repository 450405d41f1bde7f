package mongo

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Amounts are stored as integer cents.

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// ==================== User models ====================

type userModel struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Phone        string `bson:"phone"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func toUserModel(u *models.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) *models.User {
	return &models.User{
		ID:           m.ID,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ==================== Group models ====================

type groupModel struct {
	ID        string   `bson:"_id"`
	Name      string   `bson:"name"`
	Type      string   `bson:"type,omitempty"`
	CreatedBy string   `bson:"created_by"`
	Members   []string `bson:"members"`
	CreatedAt int64    `bson:"created_at"`
}

func toGroupModel(g *models.Group) *groupModel {
	return &groupModel{
		ID:        g.ID,
		Name:      g.Name,
		Type:      g.Type,
		CreatedBy: g.CreatedBy,
		Members:   append([]string{}, g.Members...),
		CreatedAt: g.CreatedAt,
	}
}

func fromGroupModel(m *groupModel) *models.Group {
	return &models.Group{
		ID:        m.ID,
		Name:      m.Name,
		Type:      m.Type,
		CreatedBy: m.CreatedBy,
		Members:   m.Members,
		CreatedAt: m.CreatedAt,
	}
}

type friendModel struct {
	ID       string `bson:"_id"`
	UserID   string `bson:"user_id"`
	FriendID string `bson:"friend_id"`
	AddedAt  int64  `bson:"added_at"`
}

// ==================== Ledger models ====================

type shareModel struct {
	UserID      string `bson:"user_id"`
	AmountCents int64  `bson:"amount_cents"`
}

type expenseModel struct {
	ID         string       `bson:"_id"`
	GroupID    string       `bson:"group_id"`
	Name       string       `bson:"name"`
	TotalCents int64        `bson:"total_cents"`
	Date       int64        `bson:"date"`
	PayerID    string       `bson:"payer_id"`
	Split      []shareModel `bson:"split"`
	CreatedBy  string       `bson:"created_by"`
	CreatedAt  int64        `bson:"created_at"`
}

func toExpenseModel(e *models.Expense) *expenseModel {
	split := make([]shareModel, 0, len(e.Split))
	for userID, amount := range e.Split {
		split = append(split, shareModel{UserID: userID, AmountCents: toCents(amount)})
	}
	return &expenseModel{
		ID:         e.ID,
		GroupID:    e.GroupID,
		Name:       e.Name,
		TotalCents: toCents(e.Total),
		Date:       e.Date,
		PayerID:    e.PayerID,
		Split:      split,
		CreatedBy:  e.CreatedBy,
		CreatedAt:  e.CreatedAt,
	}
}

func fromExpenseModel(m *expenseModel) models.Expense {
	split := make(map[string]decimal.Decimal, len(m.Split))
	for _, s := range m.Split {
		split[s.UserID] = fromCents(s.AmountCents)
	}
	return models.Expense{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Name:      m.Name,
		Total:     fromCents(m.TotalCents),
		Date:      m.Date,
		PayerID:   m.PayerID,
		Split:     split,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

type settlementModel struct {
	ID          string `bson:"_id"`
	GroupID     string `bson:"group_id"`
	FromUserID  string `bson:"from_user_id"`
	ToUserID    string `bson:"to_user_id"`
	AmountCents int64  `bson:"amount_cents"`
	Method      string `bson:"method,omitempty"`
	Note        string `bson:"note,omitempty"`
	Status      string `bson:"status"`
	CreatedAt   int64  `bson:"created_at"`
	CreatedBy   string `bson:"created_by"`
}

func toSettlementModel(s *models.Settlement) *settlementModel {
	return &settlementModel{
		ID:          s.ID,
		GroupID:     s.GroupID,
		FromUserID:  s.FromUserID,
		ToUserID:    s.ToUserID,
		AmountCents: toCents(s.Amount),
		Method:      s.Method,
		Note:        s.Note,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		CreatedBy:   s.CreatedBy,
	}
}

func fromSettlementModel(m *settlementModel) models.Settlement {
	return models.Settlement{
		ID:         m.ID,
		GroupID:    m.GroupID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Amount:     fromCents(m.AmountCents),
		Method:     m.Method,
		Note:       m.Note,
		Status:     models.SettlementStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		CreatedBy:  m.CreatedBy,
	}
}

type balanceModel struct {
	ID        string `bson:"_id"`
	UserA     string `bson:"user_a"`
	UserB     string `bson:"user_b"`
	NetCents  int64  `bson:"net_cents"`
	Version   int64  `bson:"version"`
	UpdatedAt int64  `bson:"updated_at"`
}

func balanceID(userA, userB string) string {
	lo, hi := models.OrderedPair(userA, userB)
	return lo + ":" + hi
}

func toBalanceModel(b *models.Balance) *balanceModel {
	lo, hi := models.OrderedPair(b.UserA, b.UserB)
	return &balanceModel{
		ID:        balanceID(lo, hi),
		UserA:     lo,
		UserB:     hi,
		NetCents:  toCents(b.Net),
		Version:   b.Version,
		UpdatedAt: b.UpdatedAt,
	}
}

func fromBalanceModel(m *balanceModel) *models.Balance {
	return &models.Balance{
		UserA:     m.UserA,
		UserB:     m.UserB,
		Net:       fromCents(m.NetCents),
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
	}
}

// appliedModel marks a keyed balance update as applied.
type appliedModel struct {
	ID        string `bson:"_id"`
	BalanceID string `bson:"balance_id"`
	AppliedAt int64  `bson:"applied_at"`
}

// ==================== Reminder models ====================

type reminderModel struct {
	ID          string `bson:"_id"`
	FromUserID  string `bson:"from_user_id"`
	ToUserID    string `bson:"to_user_id"`
	GroupID     string `bson:"group_id,omitempty"`
	GroupName   string `bson:"group_name,omitempty"`
	AmountCents int64  `bson:"amount_cents"`
	Message     string `bson:"message"`
	Type        string `bson:"type"`
	Status      string `bson:"status"`
	CreatedAt   int64  `bson:"created_at"`
	ReadAt      int64  `bson:"read_at,omitempty"`
}

func toReminderModel(r *models.Reminder) *reminderModel {
	return &reminderModel{
		ID:          r.ID,
		FromUserID:  r.FromUserID,
		ToUserID:    r.ToUserID,
		GroupID:     r.GroupID,
		GroupName:   r.GroupName,
		AmountCents: toCents(r.Amount),
		Message:     r.Message,
		Type:        r.Type,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		ReadAt:      r.ReadAt,
	}
}

func fromReminderModel(m *reminderModel) *models.Reminder {
	return &models.Reminder{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		GroupID:    m.GroupID,
		GroupName:  m.GroupName,
		Amount:     fromCents(m.AmountCents),
		Message:    m.Message,
		Type:       m.Type,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		ReadAt:     m.ReadAt,
	}
}
