package models

import "time"

// Role grants access to staff endpoints
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOfficer     Role = "officer"
	RoleUnderwriter Role = "underwriter"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOfficer || r == RoleUnderwriter
}

// User represents a staff member in the system
type User struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"` // Not serialized
	Active       bool       `json:"active"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
