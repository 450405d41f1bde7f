package service

import (
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	if u == nil {
		return nil
	}
	return &api.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Type:      g.Type,
		CreatedBy: g.CreatedBy,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:        e.ID,
		GroupID:   e.GroupID,
		Name:      e.Name,
		Total:     e.Total,
		Date:      e.Date,
		PayerID:   e.PayerID,
		Split:     e.Split,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:         s.ID,
		GroupID:    s.GroupID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount,
		Method:     s.Method,
		Note:       s.Note,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
		CreatedBy:  s.CreatedBy,
	}
}

func toAPISettlements(settlements []*models.Settlement) []*api.Settlement {
	out := make([]*api.Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = toAPISettlement(s)
	}
	return out
}

func toAPIReminder(r *models.Reminder) *api.Reminder {
	return &api.Reminder{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		GroupID:    r.GroupID,
		GroupName:  r.GroupName,
		Amount:     r.Amount,
		Message:    r.Message,
		Type:       r.Type,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		ReadAt:     r.ReadAt,
	}
}

func toAPIDeltas(deltas []ledger.BalanceDelta) []api.BalanceDelta {
	out := make([]api.BalanceDelta, len(deltas))
	for i, d := range deltas {
		out[i] = api.BalanceDelta{Creditor: d.Creditor, Debtor: d.Debtor, Amount: d.Amount}
	}
	return out
}

func fromAPIItems(items []api.Item) []calculator.Item {
	out := make([]calculator.Item, len(items))
	for i, it := range items {
		out[i] = calculator.Item{Description: it.Description, Amount: it.Amount, AssignedTo: it.AssignedTo}
	}
	return out
}

// toAPIBalances converts outstanding balances, filling in display names.
func toAPIBalances(balances []calculator.PartyBalance, users map[string]*models.User) []*api.Balance {
	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = &api.Balance{UserID: b.UserID, Name: displayName(users, b.UserID), Amount: b.Amount}
	}
	return out
}

func displayName(users map[string]*models.User, id string) string {
	if u, ok := users[id]; ok {
		return u.FullName()
	}
	return ""
}
