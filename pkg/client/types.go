package client

import "time"

const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type RegisterInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type ProfileInput struct {
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	DateOfBirth      *string `json:"date_of_birth,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Income           *int64  `json:"income,omitempty"`
	MainGoal         *string `json:"main_goal,omitempty"`
	TimeHorizonYears *int    `json:"time_horizon_years,omitempty"`
	RiskProfile      *string `json:"risk_profile,omitempty"`
}

type Profile struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      *string   `json:"date_of_birth"`
	Phone            *string   `json:"phone"`
	Income           *int64    `json:"income"`
	MainGoal         *string   `json:"main_goal"`
	TimeHorizonYears *int      `json:"time_horizon_years"`
	RiskProfile      *string   `json:"risk_profile"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateRequestInput struct {
	Goal                string  `json:"goal"`
	Amount              int64   `json:"amount"`
	MonthlyContribution *int64  `json:"monthly_contribution,omitempty"`
	TimeHorizonYears    int     `json:"time_horizon_years"`
	RiskProfile         string  `json:"risk_profile"`
	Notes               *string `json:"notes,omitempty"`
}

// Request is an advisory request. OwnerEmail and OwnerRole are only filled
// in staff listings.
type Request struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	Goal                string    `json:"goal"`
	Amount              int64     `json:"amount"`
	MonthlyContribution *int64    `json:"monthly_contribution"`
	TimeHorizonYears    int       `json:"time_horizon_years"`
	RiskProfile         string    `json:"risk_profile"`
	Notes               *string   `json:"notes"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	OwnerEmail          string    `json:"owner_email,omitempty"`
	OwnerRole           string    `json:"owner_role,omitempty"`
}

type ListOptions struct {
	Status string
	Query  string
	Skip   int
	Limit  int
}

type RequestPage struct {
	Items []Request `json:"items"`
	Total int64     `json:"total"`
	Skip  int       `json:"skip"`
	Limit int       `json:"limit"`
}

type HistoryEntry struct {
	RequestID       string    `json:"request_id"`
	OldStatus       *string   `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	ChangedByUserID string    `json:"changed_by_user_id"`
	ChangedAt       time.Time `json:"changed_at"`
}

type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	InReview  int64 `json:"in_review"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}
