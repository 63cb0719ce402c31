package domain

import "time"

// RiskProfile is the investor's risk appetite.
type RiskProfile string

const (
	RiskLow    RiskProfile = "low"
	RiskMedium RiskProfile = "medium"
	RiskHigh   RiskProfile = "high"
)

func (r RiskProfile) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ClientProfile holds the personal and financial data of a client. Each user
// owns at most one.
type ClientProfile struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	DateOfBirth      *string      `json:"date_of_birth,omitempty"`
	Phone            *string      `json:"phone,omitempty"`
	Income           *int64       `json:"income,omitempty"`
	MainGoal         *string      `json:"main_goal,omitempty"`
	TimeHorizonYears *int         `json:"time_horizon_years,omitempty"`
	RiskProfile      *RiskProfile `json:"risk_profile,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
