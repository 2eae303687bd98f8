package model

import (
	"fmt"
	"time"
)

// Role is advisory: it decides which actions clients offer, not what the
// core accepts.
type Role string

// Roles.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is a person who can act on the inventory or borrow items.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether starting a session requires a password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Snapshot returns the value copy embedded into ledger entries.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSnapshot is a user as they were when a movement or loan was written.
type UserSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks a new password against the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
