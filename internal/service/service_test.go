package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api"
)

var errBackend = errors.New("backend unavailable")

// flakyStore fails UpdateBalance while failBalances is set.
type flakyStore struct {
	storage.Store

	mu           sync.Mutex
	failBalances bool
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failBalances = v
}

func (f *flakyStore) UpdateBalance(ctx context.Context, key, a, b string, fn func(*models.Balance) error) (*models.Balance, error) {
	f.mu.Lock()
	failing := f.failBalances
	f.mu.Unlock()
	if failing {
		return nil, errBackend
	}
	return f.Store.UpdateBalance(ctx, key, a, b, fn)
}

type testEnv struct {
	store  *flakyStore
	auth   *api.AuthServiceClient
	groups *api.GroupServiceClient
	ledger *api.LedgerServiceClient
}

// session is a registered user and their bearer token.
type session struct {
	user  *api.User
	token string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	inner, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store := &flakyStore{Store: inner}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	engine := ledger.NewEngine(store, nil, nil)

	r := chi.NewRouter()
	Services{
		Auth:   NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, nil),
		Group:  NewGroupService(store, engine, nil),
		Ledger: NewLedgerService(store, engine, notify.NewStoreNotifier(store, nil), nil),
	}.Mount(r, jwtManager, nil)

	server := httptest.NewServer(r)
	t.Cleanup(func() {
		server.Close()
		inner.Close()
	})

	return &testEnv{
		store:  store,
		auth:   api.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups: api.NewGroupServiceClient(http.DefaultClient, server.URL),
		ledger: api.NewLedgerServiceClient(http.DefaultClient, server.URL),
	}
}

func (e *testEnv) register(t *testing.T, firstName, email string) session {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		FirstName: firstName,
		Email:     email,
		Password:  "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return session{user: resp.Msg.User, token: resp.Msg.Token}
}

func authed[T any](s session, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+s.token)
	return req
}

func (e *testEnv) createGroup(t *testing.T, owner session, name string, members ...session) *api.Group {
	t.Helper()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.user.ID
	}
	resp, err := e.groups.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{Name: name, Members: ids}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func (e *testEnv) balances(t *testing.T, s session) map[string]string {
	t.Helper()
	resp, err := e.ledger.GetBalances(context.Background(), authed(s, &api.GetBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	out := make(map[string]string, len(resp.Msg.Balances))
	for _, b := range resp.Msg.Balances {
		out[b.UserID] = b.Amount.StringFixed(2)
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %v, want %v (err: %v)", got, code, err)
	}
}
