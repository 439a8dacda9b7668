//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is a staff member. ID is the identity provider's stable user id so that
// sessions and API tokens resolve directly to a row.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     *string   `json:"email"      db:"email"`
	Role      string    `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertUserRequest creates or replaces a staff record.
type UpsertUserRequest struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Role  string  `json:"role"`
}

// Validate normalizes the request. Role validity is checked by the caller against the
// auth role set.
func (r *UpsertUserRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return errors.New("id is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required and cannot be empty")
	}
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if r.Role == "" {
		return errors.New("role is required")
	}
	r.Email = trimOptional(r.Email)
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			return errors.New("email is invalid")
		}
	}
	return nil
}

// UserListOptions controls filtering for staff listings.
type UserListOptions struct {
	Role   *string
	Q      *string // substring match on name or email
	Limit  int
	Offset int
}
