package handler

import "time"

// ErrorResponse is the error envelope returned on all 4xx/5xx responses.
type ErrorResponse struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// --- Auth ---

type registerRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"  validate:"required"`
	Password  string `json:"password"   validate:"required"`
}

// loginRequest accepts the OAuth2 password form (username, password) and the
// equivalent JSON body. email is accepted as an alias of username.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Profile ---

type profileRequest struct {
	FirstName        string  `json:"first_name"         validate:"required"`
	LastName         string  `json:"last_name"          validate:"required"`
	DateOfBirth      *string `json:"date_of_birth"`
	Phone            *string `json:"phone"`
	Income           *int64  `json:"income"             validate:"omitempty,min=0"`
	MainGoal         *string `json:"main_goal"`
	TimeHorizonYears *int    `json:"time_horizon_years" validate:"omitempty,min=1"`
	RiskProfile      *string `json:"risk_profile"       validate:"omitempty,oneof=low medium high"`
}

type profileResponse struct {
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

// --- Requests ---

type createRequestRequest struct {
	Goal                string  `json:"goal"                 validate:"required,max=255"`
	Amount              int64   `json:"amount"               validate:"required,gt=0"`
	MonthlyContribution *int64  `json:"monthly_contribution" validate:"omitempty,min=0"`
	TimeHorizonYears    int     `json:"time_horizon_years"   validate:"required,min=1,max=50"`
	RiskProfile         string  `json:"risk_profile"         validate:"required,oneof=low medium high"`
	Notes               *string `json:"notes"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_review completed cancelled"`
}

type cancelRequest struct {
	Status string `json:"status" validate:"required,eq=cancelled"`
}

type requestResponse struct {
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
}

// staffRequestResponse is the listing item shown to advisors; it carries the
// owner annotation.
type staffRequestResponse struct {
	requestResponse
	OwnerEmail string `json:"owner_email"`
	OwnerRole  string `json:"owner_role"`
}

type listRequestsResponse struct {
	Items []staffRequestResponse `json:"items"`
	Total int64                  `json:"total"`
	Skip  int                    `json:"skip"`
	Limit int                    `json:"limit"`
}

type historyEntryResponse struct {
	RequestID       string    `json:"request_id"`
	OldStatus       *string   `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	ChangedByUserID string    `json:"changed_by_user_id"`
	ChangedAt       time.Time `json:"changed_at"`
}

type statsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	InReview  int64 `json:"in_review"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}
