// Package model defines the core data types shared by the CRM's services, repositories and
// HTTP handlers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxJobTitleLen    = 255
	maxServiceTypeLen = 64
)

// JobStatus represents the lifecycle status of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusNew is the initial status of an unassigned job.
	JobStatusNew JobStatus = "NEW"
	// JobStatusAssigned indicates a staff member has been assigned.
	JobStatusAssigned JobStatus = "ASSIGNED"
	// JobStatusInProgress indicates work has started.
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	// JobStatusOnHold indicates work is paused and may resume.
	JobStatusOnHold JobStatus = "ON_HOLD"
	// JobStatusCompleted is terminal.
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusCancelled is terminal.
	JobStatusCancelled JobStatus = "CANCELLED"
	// JobStatusDone is a legacy alias of JobStatusCompleted still present in older rows.
	JobStatusDone JobStatus = "DONE"
)

// Canonical maps legacy aliases onto their canonical status.
func (s JobStatus) Canonical() JobStatus {
	if s == JobStatusDone {
		return JobStatusCompleted
	}
	return s
}

// Valid reports whether s is a known status, aliases included.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusNew, JobStatusAssigned, JobStatusInProgress, JobStatusOnHold,
		JobStatusCompleted, JobStatusCancelled, JobStatusDone:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so statuses decode case-insensitively
// from JSON bodies and query strings.
func (s *JobStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseJobStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseJobStatus normalizes v (trim, upper-case, "-"/" " to "_") and validates it.
func ParseJobStatus(v string) (JobStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(v))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := JobStatus(norm)
	if !st.Valid() {
		return "", fmt.Errorf("invalid job status: %q", v)
	}
	return st, nil
}

// Job is a unit of work for a customer.
type Job struct {
	ID                   string          `json:"id"                               db:"id"`
	CustomerID           string          `json:"customer_id"                      db:"customer_id"`
	Title                string          `json:"title"                            db:"title"`
	ServiceType          string          `json:"service_type"                     db:"service_type"`
	Notes                *string         `json:"notes,omitempty"                  db:"notes"`
	ScheduledFor         *time.Time      `json:"scheduled_for,omitempty"          db:"scheduled_for"`
	Status               JobStatus       `json:"status"                           db:"status"`
	AssignedUserID       *string         `json:"assigned_user_id,omitempty"       db:"assigned_user_id"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"           db:"completed_at"`
	ChecklistTemplateID  *string         `json:"checklist_template_id,omitempty"  db:"checklist_template_id"`
	ItemStatus           map[string]bool `json:"item_status"                      db:"item_status"`
	ChecklistCompletedAt *time.Time      `json:"checklist_completed_at,omitempty" db:"checklist_completed_at"`
	CreatedAt            time.Time       `json:"created_at"                       db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"                       db:"updated_at"`
}

// IsAssigned reports whether the job has an assignee.
func (j *Job) IsAssigned() bool {
	return j.AssignedUserID != nil && *j.AssignedUserID != ""
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	CustomerID     string     `json:"customer_id"`
	Title          string     `json:"title"`
	ServiceType    string     `json:"service_type"`
	Notes          *string    `json:"notes,omitempty"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	AssignedUserID *string    `json:"assigned_user_id,omitempty"`
}

// Validate validates and normalizes the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	if r.CustomerID == "" {
		return errors.New("customer_id is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return errors.New("title is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Title) > maxJobTitleLen {
		return errors.New("title cannot exceed 255 characters")
	}
	st, err := NormalizeServiceType(r.ServiceType)
	if err != nil {
		return err
	}
	r.ServiceType = st
	if r.AssignedUserID != nil {
		id := strings.TrimSpace(*r.AssignedUserID)
		if id == "" {
			r.AssignedUserID = nil
		} else {
			r.AssignedUserID = &id
		}
	}
	return nil
}

// InitialStatus returns ASSIGNED when the job is created with an assignee, NEW otherwise.
func (r *CreateJobRequest) InitialStatus() JobStatus {
	if r.AssignedUserID != nil && *r.AssignedUserID != "" {
		return JobStatusAssigned
	}
	return JobStatusNew
}

// UpdateJobRequest is a partial update. AssignedUserID and Status go through the
// authorization and transition checks; the other fields are plain field updates.
type UpdateJobRequest struct {
	Title          *string    `json:"title,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	AssignedUserID *string    `json:"assigned_user_id,omitempty"`
	Status         *JobStatus `json:"status,omitempty"`
}

// HasUpdates reports whether any field is set in UpdateJobRequest.
func (r *UpdateJobRequest) HasUpdates() bool {
	return r.Title != nil || r.Notes != nil || r.ScheduledFor != nil || r.AssignedUserID != nil || r.Status != nil
}

// Validate validates UpdateJobRequest, ensuring at least one field is set and values are sane.
func (r *UpdateJobRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		if t == "" {
			return errors.New("title cannot be empty")
		}
		if utf8.RuneCountInString(t) > maxJobTitleLen {
			return errors.New("title cannot exceed 255 characters")
		}
		r.Title = &t
	}
	if r.AssignedUserID != nil {
		id := strings.TrimSpace(*r.AssignedUserID)
		if id == "" {
			return errors.New("assigned_user_id cannot be empty")
		}
		r.AssignedUserID = &id
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("invalid job status: %q", *r.Status)
	}
	return nil
}

// UpdateJobStatusRequest is the body of a status change.
type UpdateJobStatusRequest struct {
	Status JobStatus `json:"status"`
}

// UpdateChecklistProgressRequest carries the full item map; there is no partial form.
type UpdateChecklistProgressRequest struct {
	ItemStatus map[string]bool `json:"item_status"`
}

// Validate rejects a missing map and blank item keys.
func (r *UpdateChecklistProgressRequest) Validate() error {
	if r.ItemStatus == nil {
		return errors.New("item_status is required")
	}
	for k := range r.ItemStatus {
		if strings.TrimSpace(k) == "" {
			return errors.New("item_status keys cannot be empty")
		}
	}
	return nil
}

// AttachTemplateRequest attaches a template, or detaches when TemplateID is null.
type AttachTemplateRequest struct {
	TemplateID *string `json:"template_id"`
}

// JobWrite is the repository-level mutation applied by the job service after all
// authorization and transition checks have passed. ExpectedStatus guards against
// concurrent writers: the write only applies if the stored status still matches.
type JobWrite struct {
	ExpectedStatus JobStatus
	Title          *string
	Notes          *string
	ScheduledFor   *time.Time
	AssignedUserID *string
	Status         *JobStatus
	CompletedAt    *time.Time
}

// ChecklistWrite replaces a job's checklist columns wholesale.
type ChecklistWrite struct {
	TemplateID           *string
	ItemStatus           map[string]bool
	ChecklistCompletedAt *time.Time
}

// NormalizeServiceType lower-cases and trims a service type and validates its length.
func NormalizeServiceType(v string) (string, error) {
	st := strings.ToLower(strings.TrimSpace(v))
	if st == "" {
		return "", errors.New("service_type is required")
	}
	if utf8.RuneCountInString(st) > maxServiceTypeLen {
		return "", errors.New("service_type cannot exceed 64 characters")
	}
	return st, nil
}
