package ports

import (
	"context"
	"time"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// ListRequestsFilter carries the query parameters of the staff listing.
type ListRequestsFilter struct {
	Status string // optional: exact match on status
	Query  string // optional: case-insensitive match on goal, notes or owner email
	Skip   int
	Limit  int
}

// RequestWithOwner is a request annotated with its owner for staff listings.
type RequestWithOwner struct {
	Request *domain.AdvisoryRequest
	Owner   domain.RequestOwner
}

// StatusUpdate describes one atomic status write.
type StatusUpdate struct {
	RequestID string
	// From lists the statuses the request must currently be in for the write
	// to apply. Terminal statuses are never accepted regardless of From.
	From      []domain.RequestStatus
	To        domain.RequestStatus
	ChangedBy string
	At        time.Time
}

// RequestRepository defines persistence operations for advisory requests and
// their status history.
type RequestRepository interface {
	// Create inserts r together with its initial history entries and sets r.ID.
	Create(ctx context.Context, r *domain.AdvisoryRequest) error
	// FindByID returns the request with its full history, oldest first.
	FindByID(ctx context.Context, id string) (*domain.AdvisoryRequest, error)
	// ListByUser returns the requests owned by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.AdvisoryRequest, error)
	// List returns a page of requests of every owner and the total match count.
	List(ctx context.Context, filter ListRequestsFilter) ([]RequestWithOwner, int64, error)
	// UpdateStatus writes the new status and appends the matching history
	// entry as one atomic operation. It returns domain.ErrRequestNotFound when
	// the request does not exist and a conflict error when its current status
	// is terminal or not listed in u.From.
	UpdateStatus(ctx context.Context, u StatusUpdate) (*domain.AdvisoryRequest, error)
	// CountByStatus returns the number of requests per status.
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
}

// IdempotencyPending is the value of a reserved key whose request is still
// being created.
const IdempotencyPending = "pending"

// IdempotencyStore remembers which request an Idempotency-Key produced.
// Keys are scoped, so the same key from two users never collides.
type IdempotencyStore interface {
	// Reserve claims key with IdempotencyPending. It reports false when the
	// key is already held, whether pending or completed.
	Reserve(ctx context.Context, scope, key string) (bool, error)
	Lookup(ctx context.Context, scope, key string) (string, bool, error)
	// Remember replaces the reservation with the id of the created request.
	Remember(ctx context.Context, scope, key, value string) error
	// Release drops a reservation whose request was never created.
	Release(ctx context.Context, scope, key string) error
}
