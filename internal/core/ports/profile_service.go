package ports

import (
	"context"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FirstName        string
	LastName         string
	DateOfBirth      *string
	Phone            *string
	Income           *int64
	MainGoal         *string
	TimeHorizonYears *int
	RiskProfile      *string
}

type ProfileService interface {
	GetMyProfile(ctx context.Context, caller domain.Caller) (*domain.ClientProfile, error)
	UpsertMyProfile(ctx context.Context, caller domain.Caller, in ProfileInput) (*domain.ClientProfile, error)
}
