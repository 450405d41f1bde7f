package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Registration is the profile and credential for a new account.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string

	// Credential format depends on the Authenticator (e.g., a password).
	Credential string
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
