package api

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// ==================== Clients ====================

type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       connect.NewClient[RegisterRequest, AuthResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

type GroupServiceClient struct {
	createGroup *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup    *connect.Client[GetGroupRequest, GroupResponse]
	listGroups  *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers  *connect.Client[AddMembersRequest, GroupResponse]
	addFriend   *connect.Client[AddFriendRequest, AddFriendResponse]
	listFriends *connect.Client[ListFriendsRequest, ListFriendsResponse]
}

func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:    connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:  connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMembers:  connect.NewClient[AddMembersRequest, GroupResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		addFriend:   connect.NewClient[AddFriendRequest, AddFriendResponse](httpClient, baseURL+GroupServiceAddFriendProcedure, opts...),
		listFriends: connect.NewClient[ListFriendsRequest, ListFriendsResponse](httpClient, baseURL+GroupServiceListFriendsProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddFriend(ctx context.Context, req *connect.Request[AddFriendRequest]) (*connect.Response[AddFriendResponse], error) {
	return c.addFriend.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListFriends(ctx context.Context, req *connect.Request[ListFriendsRequest]) (*connect.Response[ListFriendsResponse], error) {
	return c.listFriends.CallUnary(ctx, req)
}

type LedgerServiceClient struct {
	recordExpense      *connect.Client[RecordExpenseRequest, RecordExpenseResponse]
	listExpenses       *connect.Client[ListExpensesRequest, ListExpensesResponse]
	recordSettlement   *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	settleGroup        *connect.Client[SettleGroupRequest, SettleGroupResponse]
	retryBalanceUpdate *connect.Client[RetryBalanceUpdateRequest, RetryBalanceUpdateResponse]
	getBalances        *connect.Client[GetBalancesRequest, GetBalancesResponse]
	getGroupBalances   *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	sendReminder       *connect.Client[SendReminderRequest, SendReminderResponse]
	listReminders      *connect.Client[ListRemindersRequest, ListRemindersResponse]
	markReminderRead   *connect.Client[MarkReminderReadRequest, MarkReminderReadResponse]
}

func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &LedgerServiceClient{
		recordExpense:      connect.NewClient[RecordExpenseRequest, RecordExpenseResponse](httpClient, baseURL+LedgerServiceRecordExpenseProcedure, opts...),
		listExpenses:       connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		recordSettlement:   connect.NewClient[RecordSettlementRequest, RecordSettlementResponse](httpClient, baseURL+LedgerServiceRecordSettlementProcedure, opts...),
		settleGroup:        connect.NewClient[SettleGroupRequest, SettleGroupResponse](httpClient, baseURL+LedgerServiceSettleGroupProcedure, opts...),
		retryBalanceUpdate: connect.NewClient[RetryBalanceUpdateRequest, RetryBalanceUpdateResponse](httpClient, baseURL+LedgerServiceRetryBalanceUpdateProcedure, opts...),
		getBalances:        connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		getGroupBalances:   connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+LedgerServiceGetGroupBalancesProcedure, opts...),
		sendReminder:       connect.NewClient[SendReminderRequest, SendReminderResponse](httpClient, baseURL+LedgerServiceSendReminderProcedure, opts...),
		listReminders:      connect.NewClient[ListRemindersRequest, ListRemindersResponse](httpClient, baseURL+LedgerServiceListRemindersProcedure, opts...),
		markReminderRead:   connect.NewClient[MarkReminderReadRequest, MarkReminderReadResponse](httpClient, baseURL+LedgerServiceMarkReminderReadProcedure, opts...),
	}
}

func (c *LedgerServiceClient) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleGroup(ctx context.Context, req *connect.Request[SettleGroupRequest]) (*connect.Response[SettleGroupResponse], error) {
	return c.settleGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RetryBalanceUpdate(ctx context.Context, req *connect.Request[RetryBalanceUpdateRequest]) (*connect.Response[RetryBalanceUpdateResponse], error) {
	return c.retryBalanceUpdate.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SendReminder(ctx context.Context, req *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error) {
	return c.sendReminder.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListReminders(ctx context.Context, req *connect.Request[ListRemindersRequest]) (*connect.Response[ListRemindersResponse], error) {
	return c.listReminders.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) MarkReminderRead(ctx context.Context, req *connect.Request[MarkReminderReadRequest]) (*connect.Response[MarkReminderReadResponse], error) {
	return c.markReminderRead.CallUnary(ctx, req)
}
