package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	a := NewPasswordAuthenticator(store)
	a.cost = bcrypt.MinCost
	return a
}

func TestPasswordAuthenticator_Register(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	user, err := a.Register(ctx, Registration{
		FirstName:  "Alice",
		LastName:   "Smith",
		Email:      "  Alice@Example.com ",
		Phone:      "555-0100",
		Credential: "password123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "password123" {
		t.Error("Password must be hashed")
	}

	tests := []struct {
		name string
		reg  Registration
		want error
	}{
		{"duplicate email", Registration{FirstName: "A", Email: "alice@example.com", Credential: "password123"}, ErrEmailExists},
		{"weak password", Registration{FirstName: "B", Email: "b@example.com", Credential: "short"}, ErrWeakPassword},
		{"bad email", Registration{FirstName: "C", Email: "not-an-email", Credential: "password123"}, ErrInvalidEmail},
		{"missing name", Registration{Email: "d@example.com", Credential: "password123"}, ErrMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Register(ctx, tt.reg); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPasswordAuthenticator_Authenticate(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	registered, err := a.Register(ctx, Registration{FirstName: "Bob", Email: "bob@example.com", Credential: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := a.Authenticate(ctx, "BOB@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Expected %s, got %s", registered.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "u1", Email: "u1@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if claims.Subject != "u1" || claims.Issuer != Issuer {
		t.Errorf("Unexpected registered claims: %+v", claims.RegisteredClaims)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	stale, err := expired.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(stale); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := m.Generate(&models.User{}); err == nil {
		t.Error("Expected error generating a token without a user ID")
	}
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	now := time.Now()

	tests := []struct {
		name   string
		method jwt.SigningMethod
		claims Claims
	}{
		{
			name:   "wrong issuer",
			method: jwt.SigningMethodHS256,
			claims: Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
				Issuer: "someone-else", Subject: "u1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}},
		},
		{
			name:   "no expiry",
			method: jwt.SigningMethodHS256,
			claims: Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "u1"}},
		},
		{
			name:   "subject mismatch",
			method: jwt.SigningMethodHS256,
			claims: Claims{UserID: "u2", RegisteredClaims: jwt.RegisteredClaims{
				Issuer: Issuer, Subject: "u1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}},
		},
		{
			name:   "HS512 not allowed",
			method: jwt.SigningMethodHS512,
			claims: Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
				Issuer: Issuer, Subject: "u1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tt.method, &tt.claims).SignedString([]byte("test-secret"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
