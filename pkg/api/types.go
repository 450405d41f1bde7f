package api

import "github.com/shopspring/decimal"

// Amounts are decimal strings on the wire ("12.50").

// ==================== Users ====================

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// ==================== Groups and friends ====================

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type,omitempty"`
	CreatedBy string   `json:"created_by"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	// Members are user IDs. The caller is always added.
	Members []string `json:"members,omitempty"`
}

type GroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// AddMembersRequest adds users by ID or by registered email.
type AddMembersRequest struct {
	GroupID string   `json:"group_id"`
	UserIDs []string `json:"user_ids,omitempty"`
	Emails  []string `json:"emails,omitempty"`
}

type AddFriendRequest struct {
	Email string `json:"email"`
}

// Friend is a friend with the caller's signed net balance across every
// shared record. Positive means the friend owes the caller.
type Friend struct {
	User    *User           `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

type AddFriendResponse struct {
	Friend *Friend `json:"friend"`
}

type ListFriendsRequest struct{}

type ListFriendsResponse struct {
	Friends []*Friend `json:"friends"`
}

// ==================== Ledger ====================

// Split types for RecordExpenseRequest.
const (
	SplitEqual    = "equal"
	SplitCustom   = "custom"
	SplitItemized = "itemized"
)

type Item struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AssignedTo  []string        `json:"assigned_to"`
}

// RecordExpenseRequest records an expense in GroupID, or with FriendID
// when GroupID is empty.
type RecordExpenseRequest struct {
	GroupID  string          `json:"group_id,omitempty"`
	FriendID string          `json:"friend_id,omitempty"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Date     int64           `json:"date,omitempty"`
	// PayerID defaults to the caller.
	PayerID string `json:"payer_id,omitempty"`

	// SplitType defaults to equal. Members narrows an equal split; Shares
	// carries a custom split; Items an itemized one.
	SplitType string                     `json:"split_type,omitempty"`
	Members   []string                   `json:"members,omitempty"`
	Shares    map[string]decimal.Decimal `json:"shares,omitempty"`
	Items     []Item                     `json:"items,omitempty"`
}

type Expense struct {
	ID        string                     `json:"id"`
	GroupID   string                     `json:"group_id,omitempty"`
	Name      string                     `json:"name"`
	Total     decimal.Decimal            `json:"total"`
	Date      int64                      `json:"date"`
	PayerID   string                     `json:"payer_id"`
	Split     map[string]decimal.Decimal `json:"split"`
	CreatedBy string                     `json:"created_by,omitempty"`
	CreatedAt int64                      `json:"created_at"`
}

type RecordExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses    []*Expense    `json:"expenses"`
	Settlements []*Settlement `json:"settlements"`
}

// RecordSettlementRequest records a payment to ToUserID. FromUserID
// defaults to the caller.
type RecordSettlementRequest struct {
	FromUserID string          `json:"from_user_id,omitempty"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method,omitempty"`
	Note       string          `json:"note,omitempty"`
	GroupID    string          `json:"group_id,omitempty"`
}

type Settlement struct {
	ID         string          `json:"id"`
	GroupID    string          `json:"group_id,omitempty"`
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Note       string          `json:"note,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  int64           `json:"created_at"`
	CreatedBy  string          `json:"created_by,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type SettleGroupRequest struct {
	GroupID string `json:"group_id"`
}

type SettleGroupResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

// BalanceDelta is a balance update that still has to be applied after a
// partial failure: Debtor owes Creditor Amount more.
type BalanceDelta struct {
	Creditor string          `json:"creditor"`
	Debtor   string          `json:"debtor"`
	Amount   decimal.Decimal `json:"amount"`
}

// RetryBalanceUpdateRequest finishes the balance step of a stored expense
// or settlement. RecordID comes from PendingRecord.
type RetryBalanceUpdateRequest struct {
	RecordID string `json:"record_id"`
}

type RetryBalanceUpdateResponse struct {
	Applied int `json:"applied"`
}

// GetBalancesRequest returns the caller's balances with everyone, or with
// one friend when FriendID is set.
type GetBalancesRequest struct {
	FriendID string `json:"friend_id,omitempty"`
}

// Balance is the caller's signed net with one other user. Positive means
// the other user owes the caller.
type Balance struct {
	UserID string          `json:"user_id"`
	Name   string          `json:"name,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type GetBalancesResponse struct {
	// Balances lists non-zero balances, largest first.
	Balances []*Balance `json:"balances"`
	// Skipped counts malformed records left out of the computation.
	Skipped int `json:"skipped,omitempty"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type MemberBalance struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"name,omitempty"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalOwed decimal.Decimal `json:"total_owed"`
	Net       decimal.Decimal `json:"net"`
}

type DebtEdge struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type GetGroupBalancesResponse struct {
	Balances     []*Balance       `json:"balances"`
	Members      []*MemberBalance `json:"members"`
	Suggested    []*DebtEdge      `json:"suggested"`
	ExpenseCount int              `json:"expense_count"`
	TotalSpent   decimal.Decimal  `json:"total_spent"`
	Skipped      int              `json:"skipped,omitempty"`
}

// ==================== Reminders ====================

type Reminder struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	GroupID    string          `json:"group_id,omitempty"`
	GroupName  string          `json:"group_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	CreatedAt  int64           `json:"created_at"`
	ReadAt     int64           `json:"read_at,omitempty"`
}

// SendReminderRequest asks ToUserID to pay what they owe the caller,
// within GroupID when set.
type SendReminderRequest struct {
	ToUserID string `json:"to_user_id"`
	GroupID  string `json:"group_id,omitempty"`
}

type SendReminderResponse struct {
	Reminder *Reminder `json:"reminder"`
}

type ListRemindersRequest struct{}

type ListRemindersResponse struct {
	Reminders []*Reminder `json:"reminders"`
}

type MarkReminderReadRequest struct {
	ReminderID string `json:"reminder_id"`
}

type MarkReminderReadResponse struct{}
