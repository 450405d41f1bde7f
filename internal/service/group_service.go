package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// GroupService implements api.GroupServiceHandler.
type GroupService struct {
	store  storage.Store
	engine *ledger.Engine
	logger *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
// Friend balances are computed by engine.
func NewGroupService(store storage.Store, engine *ledger.Engine, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{store: store, engine: engine, logger: logger}
}

// CreateGroup creates a new group with the caller as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group name is required"))
	}

	group := &models.Group{
		Name:      name,
		Type:      strings.TrimSpace(req.Msg.Type),
		CreatedBy: userID,
		Members:   []string{userID},
	}
	group.AddMembers(req.Msg.Members...)
	if err := s.requireUsers(ctx, group.Members); err != nil {
		return nil, err
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.ErrorContext(ctx, "CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.InfoContext(ctx, "Group created", "group_id", group.ID)
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	s.logger.InfoContext(ctx, "GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group)
	}

	s.logger.InfoContext(ctx, "ListGroups successful", "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds users to a group by ID or email.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.GroupResponse], error) {
	s.logger.InfoContext(ctx, "AddMembers request received",
		"group_id", req.Msg.GroupID,
		"user_ids", len(req.Msg.UserIDs),
		"emails", len(req.Msg.Emails),
	)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	ids := append([]string(nil), req.Msg.UserIDs...)
	for _, email := range req.Msg.Emails {
		user, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(email))
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no user with email %s", email))
		}
		ids = append(ids, user.ID)
	}
	ids = models.UniqueIDs(ids)
	if err := s.requireUsers(ctx, ids); err != nil {
		return nil, err
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, ids); err != nil {
		s.logger.ErrorContext(ctx, "AddMembers failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}
	added := group.AddMembers(ids...)

	s.logger.InfoContext(ctx, "Members added", "group_id", group.ID, "added", len(added))
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// AddFriend links the caller with the user registered under an email.
func (s *GroupService) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "AddFriend request received", "user_id", userID)

	friend, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(req.Msg.Email))
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no user with email %s", req.Msg.Email))
	}
	if friend.ID == userID {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("cannot add yourself as a friend"))
	}

	if err := s.store.AddFriend(ctx, userID, friend.ID); err != nil {
		s.logger.ErrorContext(ctx, "AddFriend failed", "error", err)
		return nil, toConnectError(err)
	}

	result, err := s.engine.ComputeBalances(ctx, userID, storage.PairScope(userID, friend.ID))
	if err != nil {
		return nil, toConnectError(err)
	}
	balance := result.Get(friend.ID)

	s.logger.InfoContext(ctx, "Friend added", "user_id", userID, "friend_id", friend.ID)
	return connect.NewResponse(&api.AddFriendResponse{
		Friend: &api.Friend{User: toAPIUser(friend), Balance: balance},
	}), nil
}

// ListFriends returns the caller's friends, each with the caller's net
// balance across every record they share.
func (s *GroupService) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.InfoContext(ctx, "ListFriends request received", "user_id", userID)

	ids, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	result, err := s.engine.ComputeBalances(ctx, userID, storage.UserScope(userID))
	if err != nil {
		return nil, toConnectError(err)
	}

	friends := make([]*api.Friend, 0, len(ids))
	for _, id := range ids {
		balance := result.Get(id)
		if calculator.IsSettled(balance) {
			balance = decimal.Zero
		}
		friends = append(friends, &api.Friend{User: toAPIUser(users[id]), Balance: balance})
	}

	s.logger.InfoContext(ctx, "ListFriends successful", "count", len(friends))
	return connect.NewResponse(&api.ListFriendsResponse{Friends: friends}), nil
}

// requireUsers fails with InvalidArgument if any ID is not a registered user.
func (s *GroupService) requireUsers(ctx context.Context, ids []string) error {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return toConnectError(err)
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown user %q", id))
		}
	}
	return nil
}

// memberGroup loads a group and checks that the caller belongs to it.
func memberGroup(ctx context.Context, store storage.Store, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group_id is required"))
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !group.HasMember(middleware.GetUserID(ctx)) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return group, nil
}
