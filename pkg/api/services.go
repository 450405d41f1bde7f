package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	AuthServiceName   = "splitledger.v1.AuthService"
	GroupServiceName  = "splitledger.v1.GroupService"
	LedgerServiceName = "splitledger.v1.LedgerService"
)

const (
	AuthServiceRegisterProcedure       = "/splitledger.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/splitledger.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/splitledger.v1.AuthService/GetCurrentUser"

	GroupServiceCreateGroupProcedure = "/splitledger.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure    = "/splitledger.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure  = "/splitledger.v1.GroupService/ListGroups"
	GroupServiceAddMembersProcedure  = "/splitledger.v1.GroupService/AddMembers"
	GroupServiceAddFriendProcedure   = "/splitledger.v1.GroupService/AddFriend"
	GroupServiceListFriendsProcedure = "/splitledger.v1.GroupService/ListFriends"

	LedgerServiceRecordExpenseProcedure      = "/splitledger.v1.LedgerService/RecordExpense"
	LedgerServiceListExpensesProcedure       = "/splitledger.v1.LedgerService/ListExpenses"
	LedgerServiceRecordSettlementProcedure   = "/splitledger.v1.LedgerService/RecordSettlement"
	LedgerServiceSettleGroupProcedure        = "/splitledger.v1.LedgerService/SettleGroup"
	LedgerServiceRetryBalanceUpdateProcedure = "/splitledger.v1.LedgerService/RetryBalanceUpdate"
	LedgerServiceGetBalancesProcedure        = "/splitledger.v1.LedgerService/GetBalances"
	LedgerServiceGetGroupBalancesProcedure   = "/splitledger.v1.LedgerService/GetGroupBalances"
	LedgerServiceSendReminderProcedure       = "/splitledger.v1.LedgerService/SendReminder"
	LedgerServiceListRemindersProcedure      = "/splitledger.v1.LedgerService/ListReminders"
	LedgerServiceMarkReminderReadProcedure   = "/splitledger.v1.LedgerService/MarkReminderRead"
)

// ==================== Handlers ====================

type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
}

type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error)
	AddFriend(context.Context, *connect.Request[AddFriendRequest]) (*connect.Response[AddFriendResponse], error)
	ListFriends(context.Context, *connect.Request[ListFriendsRequest]) (*connect.Response[ListFriendsResponse], error)
}

type LedgerServiceHandler interface {
	RecordExpense(context.Context, *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	RecordSettlement(context.Context, *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error)
	SettleGroup(context.Context, *connect.Request[SettleGroupRequest]) (*connect.Response[SettleGroupResponse], error)
	RetryBalanceUpdate(context.Context, *connect.Request[RetryBalanceUpdateRequest]) (*connect.Response[RetryBalanceUpdateResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	SendReminder(context.Context, *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error)
	ListReminders(context.Context, *connect.Request[ListRemindersRequest]) (*connect.Response[ListRemindersResponse], error)
	MarkReminderRead(context.Context, *connect.Request[MarkReminderReadRequest]) (*connect.Response[MarkReminderReadResponse], error)
}

// NewAuthServiceHandler returns the mount path and handler for svc.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + AuthServiceName + "/", mux
}

// NewGroupServiceHandler returns the mount path and handler for svc.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddMembersProcedure, connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(GroupServiceAddFriendProcedure, connect.NewUnaryHandler(GroupServiceAddFriendProcedure, svc.AddFriend, opts...))
	mux.Handle(GroupServiceListFriendsProcedure, connect.NewUnaryHandler(GroupServiceListFriendsProcedure, svc.ListFriends, opts...))
	return "/" + GroupServiceName + "/", mux
}

// NewLedgerServiceHandler returns the mount path and handler for svc.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceRecordExpenseProcedure, connect.NewUnaryHandler(LedgerServiceRecordExpenseProcedure, svc.RecordExpense, opts...))
	mux.Handle(LedgerServiceListExpensesProcedure, connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(LedgerServiceRecordSettlementProcedure, connect.NewUnaryHandler(LedgerServiceRecordSettlementProcedure, svc.RecordSettlement, opts...))
	mux.Handle(LedgerServiceSettleGroupProcedure, connect.NewUnaryHandler(LedgerServiceSettleGroupProcedure, svc.SettleGroup, opts...))
	mux.Handle(LedgerServiceRetryBalanceUpdateProcedure, connect.NewUnaryHandler(LedgerServiceRetryBalanceUpdateProcedure, svc.RetryBalanceUpdate, opts...))
	mux.Handle(LedgerServiceGetBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(LedgerServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(LedgerServiceSendReminderProcedure, connect.NewUnaryHandler(LedgerServiceSendReminderProcedure, svc.SendReminder, opts...))
	mux.Handle(LedgerServiceListRemindersProcedure, connect.NewUnaryHandler(LedgerServiceListRemindersProcedure, svc.ListReminders, opts...))
	mux.Handle(LedgerServiceMarkReminderReadProcedure, connect.NewUnaryHandler(LedgerServiceMarkReminderReadProcedure, svc.MarkReminderRead, opts...))
	return "/" + LedgerServiceName + "/", mux
}
