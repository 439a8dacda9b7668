//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const maxCustomerNameLen = 255

// Customer is the party a job is performed for.
type Customer struct {
	ID        string    `json:"id"                db:"id"`
	Name      string    `json:"name"              db:"name"`
	Email     *string   `json:"email,omitempty"   db:"email"`
	Phone     *string   `json:"phone,omitempty"   db:"phone"`
	Address   *string   `json:"address,omitempty" db:"address"`
	CreatedAt time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"        db:"updated_at"`
}

// CreateCustomerRequest represents parameters to create a Customer.
type CreateCustomerRequest struct {
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Validate validates CreateCustomerRequest.
func (r *CreateCustomerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Name) > maxCustomerNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	r.Email = trimOptional(r.Email)
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			return errors.New("email is invalid")
		}
	}
	r.Phone = trimOptional(r.Phone)
	r.Address = trimOptional(r.Address)
	return nil
}

// CustomerListOptions controls paging and search for customers.
type CustomerListOptions struct {
	Q      *string // substring match on name or email
	Limit  int
	Offset int
}
