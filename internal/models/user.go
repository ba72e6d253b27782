// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role is a capability granted to a user through the user_roles table.
type Role string

const (
	RoleAdmin Role = "admin"
)

// User represents an account that can sign in to the admin panel.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	DisplayName  string    `json:"display_name"`
	TOTPSecret   *string   `json:"-"` // Nullable; set during 2FA enrollment
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Roles is populated by the store from user_roles.
	Roles []Role `json:"roles"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Requires2FA returns true if the user enrolled a TOTP second factor and
// must present a code after the password.
func (u *User) Requires2FA() bool {
	return u.TOTPEnabled && u.TOTPSecret != nil
}
