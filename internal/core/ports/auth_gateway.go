package ports

import (
	"context"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
)

// RegisterInput carries the fields the backend registration endpoint accepts.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// ValidationResult is the backend's verdict on a held access token.
// Valid == false is a normal signal ("no session"), not an error.
type ValidationResult struct {
	Valid bool
	User  *domain.User
}

// AuthGateway exchanges credentials with the backend. Implementations are
// stateless boundary adapters: they never touch the credential store or the
// session state, so they can be tested against a fake backend with no storage
// or routing side effects.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, input RegisterInput) (*domain.Session, error)
	Validate(ctx context.Context, accessToken string) (*ValidationResult, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}
