package auth

import (
	"strings"
	"time"
)

// RoleName is the closed set of role identifiers the platform recognises.
type RoleName string

const (
	RoleAdmin      RoleName = "admin"
	RoleModerator  RoleName = "moderator"
	RoleInstructor RoleName = "instructor"
	RoleStudent    RoleName = "student"
)

// AllRoleNames lists every valid role name in seed order.
func AllRoleNames() []RoleName {
	return []RoleName{RoleAdmin, RoleModerator, RoleInstructor, RoleStudent}
}

// Valid reports whether the role name belongs to the closed set.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleInstructor, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRoleName normalises and validates a raw role name string.
func ParseRoleName(raw string) (RoleName, bool) {
	name := RoleName(strings.TrimSpace(strings.ToLower(raw)))
	return name, name.Valid()
}

// User is a platform account. PasswordHash never leaves the server.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	RoleID        string    `json:"role_id"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Role groups an ordered list of permission strings under a named identity.
// Names are constrained to the closed RoleName set; permissions stay an open
// string list so new capabilities do not require a schema change.
type Role struct {
	ID          string    `json:"id"`
	Name        RoleName  `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
