package domain

import "time"

// RequestStatus represents the lifecycle state of an advisory request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusInReview  RequestStatus = "in_review"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []RequestStatus{StatusPending, StatusInReview, StatusCompleted, StatusCancelled}

// TerminalStatuses are the statuses no transition may leave.
var TerminalStatuses = []RequestStatus{StatusCompleted, StatusCancelled}

const (
	MinTimeHorizonYears = 1
	MaxTimeHorizonYears = 50
	MaxGoalLength       = 255
)

func (s RequestStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is completed or cancelled.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ClientCanCancel reports whether the owning client may still cancel a
// request in status s. Once an advisor has picked it up it is theirs to close.
func (s RequestStatus) ClientCanCancel() bool {
	return s == StatusPending
}

// StatusHistoryEntry is one immutable record of a status write.
// OldStatus is nil for the entry appended at creation.
type StatusHistoryEntry struct {
	RequestID string         `json:"request_id"`
	OldStatus *RequestStatus `json:"old_status"`
	NewStatus RequestStatus  `json:"new_status"`
	ChangedBy string         `json:"changed_by_user_id"`
	ChangedAt time.Time      `json:"changed_at"`
}

// AdvisoryRequest is a client's consulting request.
type AdvisoryRequest struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"user_id"`
	Goal                string        `json:"goal"`
	Amount              int64         `json:"amount"`
	MonthlyContribution *int64        `json:"monthly_contribution,omitempty"`
	TimeHorizonYears    int           `json:"time_horizon_years"`
	RiskProfile         RiskProfile   `json:"risk_profile"`
	Notes               *string       `json:"notes,omitempty"`
	Status              RequestStatus `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	// History is ordered oldest first.
	History []StatusHistoryEntry `json:"-"`
}

// RequestOwner is the display annotation attached to requests in staff listings.
type RequestOwner struct {
	Email string
	Role  Role
}
