package ports

import (
	"context"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// UserRepository defines the interface for user account persistence.
// Emails are compared lower-cased.
type UserRepository interface {
	// Create stores a new user and returns it with its ID set.
	// Returns domain.ErrUserExists when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// ProfileRepository persists the single client profile owned by each user.
type ProfileRepository interface {
	// FindByUserID returns domain.ErrProfileNotFound when the user has none yet.
	FindByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error)
	// Upsert creates the profile keyed by p.UserID or overwrites it in place.
	Upsert(ctx context.Context, p *domain.ClientProfile) (*domain.ClientProfile, error)
	// CreateIfAbsent inserts p only when the user has no profile yet.
	CreateIfAbsent(ctx context.Context, p *domain.ClientProfile) error
}
