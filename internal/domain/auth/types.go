package auth

// Package auth contains domain-level types for authentication, sessions and actors.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence, cookies and token claims.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperations Role = "operations"
	RoleTraining   Role = "training"
	RoleQCManager  Role = "qc_manager"
	RoleGuest      Role = "guest"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperations, RoleTraining, RoleQCManager, RoleGuest:
		return true
	default:
		return false
	}
}

// IsStaff reports whether r is a field role that can work assigned jobs.
func (r Role) IsStaff() bool {
	return r == RoleOperations || r == RoleTraining || r == RoleQCManager
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., samAccountName or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsGuest returns true if the session role is guest.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// Actor returns the identity the job lifecycle rules are evaluated against.
func (s Session) Actor() Actor { return Actor{ID: s.UserID, Role: s.Role} }

// Actor is the caller of a mutation: who they are and what role they hold.
type Actor struct {
	ID   string
	Role Role
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool { return a.ID != "" }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
