package domain

import "time"

// Role is the access level of a user account.
type Role string

const (
	RoleClient  Role = "client"
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdvisor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r can work on requests of any client.
func (r Role) IsStaff() bool {
	return r == RoleAdvisor || r == RoleAdmin
}

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Caller is the identity resolved from a verified bearer token. It is passed
// explicitly to every service operation.
type Caller struct {
	UserID string
	Role   Role
	Email  string
}

// Owns reports whether the caller is the owner identified by userID.
func (c Caller) Owns(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}
