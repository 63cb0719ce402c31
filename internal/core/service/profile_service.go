package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/policy"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const dateOfBirthLayout = "2006-01-02"

type ProfileService struct {
	repo   ports.ProfileRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewProfileService(repo ports.ProfileRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger, now: time.Now}
}

// GetMyProfile returns the caller's profile, or domain.ErrProfileNotFound when
// it has not been filled in yet.
func (s *ProfileService) GetMyProfile(ctx context.Context, caller domain.Caller) (*domain.ClientProfile, error) {
	if err := policy.Authorize(policy.OpReadProfile, caller, caller.UserID); err != nil {
		return nil, err
	}
	return s.repo.FindByUserID(ctx, caller.UserID)
}

// UpsertMyProfile creates the caller's profile or overwrites every field of
// the existing one. The owner always comes from the caller.
func (s *ProfileService) UpsertMyProfile(ctx context.Context, caller domain.Caller, in ports.ProfileInput) (*domain.ClientProfile, error) {
	if err := policy.Authorize(policy.OpWriteProfile, caller, caller.UserID); err != nil {
		return nil, err
	}

	p, err := s.buildProfile(caller.UserID, in)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Upsert(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", caller.UserID).Msg("failed to save profile")
		return nil, err
	}
	s.logger.Info().Str("user_id", caller.UserID).Msg("profile saved")
	return saved, nil
}

func (s *ProfileService) buildProfile(userID string, in ports.ProfileInput) (*domain.ClientProfile, error) {
	p := &domain.ClientProfile{
		UserID:      userID,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DateOfBirth: trimmedOrNil(in.DateOfBirth),
		Phone:       trimmedOrNil(in.Phone),
		Income:      in.Income,
		MainGoal:    trimmedOrNil(in.MainGoal),
		UpdatedAt:   s.now().UTC(),
	}

	if p.FirstName == "" {
		return nil, domain.Validationf("first_name is required")
	}
	if p.LastName == "" {
		return nil, domain.Validationf("last_name is required")
	}
	if p.DateOfBirth != nil {
		if _, err := time.Parse(dateOfBirthLayout, *p.DateOfBirth); err != nil {
			return nil, domain.Validationf("date_of_birth must be formatted as YYYY-MM-DD")
		}
	}
	if p.Income != nil && *p.Income < 0 {
		return nil, domain.Validationf("income must not be negative")
	}
	if in.TimeHorizonYears != nil {
		if *in.TimeHorizonYears < domain.MinTimeHorizonYears {
			return nil, domain.Validationf("time_horizon_years must be at least %d", domain.MinTimeHorizonYears)
		}
		years := *in.TimeHorizonYears
		p.TimeHorizonYears = &years
	}
	if in.RiskProfile != nil && strings.TrimSpace(*in.RiskProfile) != "" {
		risk := domain.RiskProfile(strings.TrimSpace(*in.RiskProfile))
		if !risk.Valid() {
			return nil, domain.Validationf("risk_profile must be one of: low medium high")
		}
		p.RiskProfile = &risk
	}
	return p, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
