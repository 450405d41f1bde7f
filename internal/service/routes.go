package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/pkg/api"
)

// Services bundles the RPC handlers served by the API.
type Services struct {
	Auth   *AuthService
	Group  *GroupService
	Ledger *LedgerService
}

// Mount registers every service on r. The auth service accepts anonymous
// callers; the others require a bearer token.
func (s Services) Mount(r chi.Router, jwtManager *auth.JWTManager, logger *slog.Logger) {
	logging := middleware.LoggingInterceptor(logger)
	public := connect.WithInterceptors(middleware.OptionalAuth(jwtManager), logging)
	private := connect.WithInterceptors(middleware.RequireAuth(jwtManager), logging)

	handle(r)(api.NewAuthServiceHandler(s.Auth, public))
	handle(r)(api.NewGroupServiceHandler(s.Group, private))
	handle(r)(api.NewLedgerServiceHandler(s.Ledger, private))
}

func handle(r chi.Router) func(string, http.Handler) {
	return func(path string, h http.Handler) {
		r.Handle(path+"*", h)
	}
}
