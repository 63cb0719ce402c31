package ports

import (
	"context"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// CreateRequestInput carries all data needed to open an advisory request.
type CreateRequestInput struct {
	Goal                string
	Amount              int64
	MonthlyContribution *int64
	TimeHorizonYears    int
	RiskProfile         string
	Notes               *string
	IdempotencyKey      string
}

// CreateRequestResult is returned by the service after creating a request.
type CreateRequestResult struct {
	Request *domain.AdvisoryRequest
	// AlreadyExisted is true when the Idempotency-Key matched an earlier request.
	AlreadyExisted bool
}

// ListRequestsInput carries the parameters of the staff listing endpoint.
type ListRequestsInput struct {
	Status string
	Query  string
	Skip   int
	Limit  int
}

// ListRequestsResult is returned by ListAllRequests.
type ListRequestsResult struct {
	Items []RequestWithOwner
	Total int64
	Skip  int
	Limit int
}

// RequestStats summarises request counts for the advisor panel.
type RequestStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	InReview  int64 `json:"in_review"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// RequestService defines the advisory request use cases.
type RequestService interface {
	CreateRequest(ctx context.Context, caller domain.Caller, in CreateRequestInput) (*CreateRequestResult, error)
	ListMyRequests(ctx context.Context, caller domain.Caller) ([]*domain.AdvisoryRequest, error)
	GetMyRequest(ctx context.Context, caller domain.Caller, id string) (*domain.AdvisoryRequest, error)
	ListAllRequests(ctx context.Context, caller domain.Caller, in ListRequestsInput) (*ListRequestsResult, error)
	UpdateStatus(ctx context.Context, caller domain.Caller, id string, status string) (*domain.AdvisoryRequest, error)
	GetHistory(ctx context.Context, caller domain.Caller, id string) ([]domain.StatusHistoryEntry, error)
	Stats(ctx context.Context, caller domain.Caller) (*RequestStats, error)
}
