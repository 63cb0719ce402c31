package ports

import (
	"context"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AccessToken is the bearer credential returned by Login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenVerifier resolves a bearer token into the caller it was issued to.
type TokenVerifier interface {
	Verify(token string) (domain.Caller, error)
}

type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*AccessToken, error)
}
