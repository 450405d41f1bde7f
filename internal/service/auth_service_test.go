package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	alice := env.register(t, "Alice", "Alice@Example.com")
	if alice.token == "" {
		t.Fatal("expected token")
	}
	if alice.user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", alice.user.Email)
	}

	_, err := env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		FirstName: "Other",
		Email:     "alice@example.com",
		Password:  "password123",
	}))
	wantCode(t, err, connect.CodeAlreadyExists)

	_, err = env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		FirstName: "Bob",
		Email:     "bob@example.com",
		Password:  "short",
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	resp, err := env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Msg.User.ID != alice.user.ID {
		t.Errorf("login user = %q, want %q", resp.Msg.User.ID, alice.user.ID)
	}

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}))
	wantCode(t, err, connect.CodeUnauthenticated)
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")

	resp, err := env.auth.GetCurrentUser(ctx, authed(alice, &api.GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.FirstName != "Alice" {
		t.Errorf("first name = %q, want Alice", resp.Msg.User.FirstName)
	}

	_, err = env.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	wantCode(t, err, connect.CodeUnauthenticated)
}

func TestProtectedServicesRequireToken(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	wantCode(t, err, connect.CodeUnauthenticated)

	_, err = env.ledger.GetBalances(ctx, connect.NewRequest(&api.GetBalancesRequest{}))
	wantCode(t, err, connect.CodeUnauthenticated)
}
