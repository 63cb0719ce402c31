package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/policy"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const (
	defaultListLimit = 25
	maxListLimit     = 200
)

type RequestService struct {
	repo   ports.RequestRepository
	idem   ports.IdempotencyStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewRequestService returns a RequestService. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRequestService(repo ports.RequestRepository, idem ports.IdempotencyStore, logger zerolog.Logger) *RequestService {
	return &RequestService{repo: repo, idem: idem, logger: logger, now: time.Now}
}

// CreateRequest opens a pending request for the calling client and records
// the initial history entry.
//
// With an Idempotency-Key the key is reserved before the insert, so only one
// of several concurrent calls creates the request. Later calls get that
// request back, and calls racing the first one get a conflict until it
// finishes.
func (s *RequestService) CreateRequest(ctx context.Context, caller domain.Caller, in ports.CreateRequestInput) (*ports.CreateRequestResult, error) {
	if err := policy.Authorize(policy.OpCreateRequest, caller, ""); err != nil {
		return nil, err
	}

	req, err := s.buildRequest(caller, in)
	if err != nil {
		return nil, err
	}

	claimed, existing, err := s.claim(ctx, caller, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ports.CreateRequestResult{Request: existing, AlreadyExisted: true}, nil
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error().Err(err).Str("user_id", caller.UserID).Msg("failed to create request")
		if claimed {
			s.release(ctx, caller, in.IdempotencyKey)
		}
		return nil, err
	}

	if claimed {
		if err := s.idem.Remember(ctx, caller.UserID, in.IdempotencyKey, req.ID); err != nil {
			s.logger.Warn().Err(err).Str("request_id", req.ID).Msg("failed to store idempotency key")
			s.release(ctx, caller, in.IdempotencyKey)
		}
	}

	s.logger.Info().Str("request_id", req.ID).Str("user_id", caller.UserID).Msg("request created")
	return &ports.CreateRequestResult{Request: req}, nil
}

// claim reserves key for the caller. claimed is true when this call owns the
// key and must create the request. existing is set when an earlier call with
// the same key already created one. If the store cannot be reached the
// create goes ahead without idempotency.
func (s *RequestService) claim(ctx context.Context, caller domain.Caller, key string) (claimed bool, existing *domain.AdvisoryRequest, err error) {
	if key == "" || s.idem == nil {
		return false, nil, nil
	}

	won, err := s.idem.Reserve(ctx, caller.UserID, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, creating anyway")
		return false, nil, nil
	}
	if won {
		return true, nil, nil
	}

	id, ok, err := s.idem.Lookup(ctx, caller.UserID, key)
	if err != nil {
		return false, nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if !ok || id == ports.IdempotencyPending {
		return false, nil, domain.Conflictf("a request with this Idempotency-Key is still being processed")
	}

	existing, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return false, nil, err
	}
	if !caller.Owns(existing.UserID) {
		return false, nil, domain.Conflictf("Idempotency-Key already used")
	}
	s.logger.Info().Str("idempotency_key", key).Str("request_id", id).Msg("idempotent replay")
	return false, existing, nil
}

func (s *RequestService) release(ctx context.Context, caller domain.Caller, key string) {
	if err := s.idem.Release(ctx, caller.UserID, key); err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func (s *RequestService) buildRequest(caller domain.Caller, in ports.CreateRequestInput) (*domain.AdvisoryRequest, error) {
	goal := strings.TrimSpace(in.Goal)
	switch {
	case goal == "":
		return nil, domain.Validationf("goal is required")
	case utf8.RuneCountInString(goal) > domain.MaxGoalLength:
		return nil, domain.Validationf("goal must be at most %d characters", domain.MaxGoalLength)
	case in.Amount <= 0:
		return nil, domain.Validationf("amount must be a positive integer")
	case in.MonthlyContribution != nil && *in.MonthlyContribution < 0:
		return nil, domain.Validationf("monthly_contribution must not be negative")
	case in.TimeHorizonYears < domain.MinTimeHorizonYears || in.TimeHorizonYears > domain.MaxTimeHorizonYears:
		return nil, domain.Validationf("time_horizon_years must be between %d and %d",
			domain.MinTimeHorizonYears, domain.MaxTimeHorizonYears)
	}
	risk := domain.RiskProfile(strings.TrimSpace(in.RiskProfile))
	if !risk.Valid() {
		return nil, domain.Validationf("risk_profile must be one of: low medium high")
	}

	now := s.now().UTC()
	return &domain.AdvisoryRequest{
		UserID:              caller.UserID,
		Goal:                goal,
		Amount:              in.Amount,
		MonthlyContribution: in.MonthlyContribution,
		TimeHorizonYears:    in.TimeHorizonYears,
		RiskProfile:         risk,
		Notes:               trimmedOrNil(in.Notes),
		Status:              domain.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
		History: []domain.StatusHistoryEntry{{
			NewStatus: domain.StatusPending,
			ChangedBy: caller.UserID,
			ChangedAt: now,
		}},
	}, nil
}

// ListMyRequests returns the caller's own requests, newest first.
func (s *RequestService) ListMyRequests(ctx context.Context, caller domain.Caller) ([]*domain.AdvisoryRequest, error) {
	if err := policy.Authorize(policy.OpListOwnRequests, caller, ""); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, caller.UserID)
}

// GetMyRequest returns one of the caller's requests. Requests of other users
// are reported as not found.
func (s *RequestService) GetMyRequest(ctx context.Context, caller domain.Caller, id string) (*domain.AdvisoryRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.OpReadOwnRequest, caller, req.UserID); err != nil {
		return nil, err
	}
	return req, nil
}

// ListAllRequests returns a page of requests of every client for staff.
// Limit defaults to 25 and is capped at 200.
func (s *RequestService) ListAllRequests(ctx context.Context, caller domain.Caller, in ports.ListRequestsInput) (*ports.ListRequestsResult, error) {
	if err := policy.Authorize(policy.OpListAllRequests, caller, ""); err != nil {
		return nil, err
	}
	if in.Status != "" && !domain.RequestStatus(in.Status).Valid() {
		return nil, domain.Validationf("status must be one of: pending in_review completed cancelled")
	}

	skip := in.Skip
	if skip < 0 {
		skip = 0
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, total, err := s.repo.List(ctx, ports.ListRequestsFilter{
		Status: in.Status,
		Query:  strings.TrimSpace(in.Query),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	return &ports.ListRequestsResult{Items: items, Total: total, Skip: skip, Limit: limit}, nil
}

// UpdateStatus writes a new status and appends the history entry atomically.
//
// Clients may only cancel their own pending requests. Advisors and admins may
// set any status on a request that is not yet completed or cancelled.
func (s *RequestService) UpdateStatus(ctx context.Context, caller domain.Caller, id string, status string) (*domain.AdvisoryRequest, error) {
	to := domain.RequestStatus(status)
	if !to.Valid() {
		return nil, domain.Validationf("status must be one of: pending in_review completed cancelled")
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.ForStatusUpdate(caller), caller, req.UserID); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus
	}

	from := []domain.RequestStatus{domain.StatusPending, domain.StatusInReview}
	if !caller.Role.IsStaff() {
		if to != domain.StatusCancelled {
			return nil, domain.Forbiddenf("clients may only cancel their requests")
		}
		if !req.Status.ClientCanCancel() {
			return nil, domain.Conflictf("a request in status %s can no longer be cancelled", req.Status)
		}
		from = []domain.RequestStatus{domain.StatusPending}
	}

	updated, err := s.repo.UpdateStatus(ctx, ports.StatusUpdate{
		RequestID: id,
		From:      from,
		To:        to,
		ChangedBy: caller.UserID,
		At:        s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("request_id", id).
		Str("from", string(req.Status)).
		Str("to", string(to)).
		Str("changed_by", caller.UserID).
		Msg("request status updated")
	return updated, nil
}

// GetHistory returns the status history of a request, oldest first.
func (s *RequestService) GetHistory(ctx context.Context, caller domain.Caller, id string) ([]domain.StatusHistoryEntry, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.OpReadHistory, caller, req.UserID); err != nil {
		return nil, err
	}
	history := make([]domain.StatusHistoryEntry, len(req.History))
	copy(history, req.History)
	return history, nil
}

// Stats counts requests per status.
func (s *RequestService) Stats(ctx context.Context, caller domain.Caller) (*ports.RequestStats, error) {
	if err := policy.Authorize(policy.OpReadStats, caller, ""); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("request stats: %w", err)
	}

	stats := &ports.RequestStats{
		Pending:   counts[domain.StatusPending],
		InReview:  counts[domain.StatusInReview],
		Completed: counts[domain.StatusCompleted],
		Cancelled: counts[domain.StatusCancelled],
	}
	stats.Total = stats.Pending + stats.InReview + stats.Completed + stats.Cancelled
	return stats, nil
}
