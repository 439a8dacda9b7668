//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTemplateNameLen = 255
	maxTemplateItemLen = 500
	maxTemplateItems   = 200
)

// ChecklistTemplate is a reusable, ordered list of quality-control items for one service type.
type ChecklistTemplate struct {
	ID          string    `json:"id"                    db:"id"`
	Name        string    `json:"name"                  db:"name"`
	ServiceType string    `json:"service_type"          db:"service_type"`
	Description *string   `json:"description,omitempty" db:"description"`
	Items       []string  `json:"items"                 db:"items"`
	IsActive    bool      `json:"is_active"             db:"is_active"`
	CreatedAt   time.Time `json:"created_at"            db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"            db:"updated_at"`
}

// CreateChecklistTemplateRequest represents parameters to create a template.
type CreateChecklistTemplateRequest struct {
	Name        string   `json:"name"`
	ServiceType string   `json:"service_type"`
	Description *string  `json:"description,omitempty"`
	Items       []string `json:"items"`
}

// Validate normalizes and validates the request. Items are trimmed and blank entries dropped.
func (r *CreateChecklistTemplateRequest) Validate() error {
	name, err := normalizeTemplateName(r.Name)
	if err != nil {
		return err
	}
	r.Name = name

	st, err := NormalizeServiceType(r.ServiceType)
	if err != nil {
		return err
	}
	r.ServiceType = st

	items, err := NormalizeChecklistItems(r.Items)
	if err != nil {
		return err
	}
	r.Items = items
	r.Description = trimOptional(r.Description)
	return nil
}

// UpdateChecklistTemplateRequest represents a partial update; nil fields are left unchanged.
type UpdateChecklistTemplateRequest struct {
	Name        *string  `json:"name,omitempty"`
	ServiceType *string  `json:"service_type,omitempty"`
	Description *string  `json:"description,omitempty"`
	Items       []string `json:"items,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// HasUpdates reports whether any field is set.
func (r *UpdateChecklistTemplateRequest) HasUpdates() bool {
	return r.Name != nil || r.ServiceType != nil || r.Description != nil || r.Items != nil || r.IsActive != nil
}

// Validate validates supplied fields only.
func (r *UpdateChecklistTemplateRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil {
		name, err := normalizeTemplateName(*r.Name)
		if err != nil {
			return err
		}
		r.Name = &name
	}
	if r.ServiceType != nil {
		st, err := NormalizeServiceType(*r.ServiceType)
		if err != nil {
			return err
		}
		r.ServiceType = &st
	}
	if r.Items != nil {
		items, err := NormalizeChecklistItems(r.Items)
		if err != nil {
			return err
		}
		r.Items = items
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
	}
	return nil
}

// TemplateListOptions controls filtering and paging for template listings.
type TemplateListOptions struct {
	ServiceType *string
	Active      *bool
	Q           *string // substring match on name or description (ILIKE)
	Sort        string  // "name", "created_at", "updated_at"
	Dir         string  // "asc", "desc"
	Limit       int
	Offset      int
}

// TemplateDeleteResult tells the caller whether the row was removed or only deactivated.
type TemplateDeleteResult struct {
	Deleted        bool   `json:"deleted"`
	Deactivated    bool   `json:"deactivated"`
	ReferenceCount int    `json:"reference_count"`
	Message        string `json:"message"`
}

// NormalizeChecklistItems trims every item, drops blanks and requires at least one left.
func NormalizeChecklistItems(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if utf8.RuneCountInString(it) > maxTemplateItemLen {
			return nil, errors.New("checklist items cannot exceed 500 characters")
		}
		// Item text keys the per-job status map, so duplicates would collapse.
		if _, dup := seen[it]; dup {
			return nil, errors.New("checklist items must be unique")
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one checklist item is required")
	}
	if len(out) > maxTemplateItems {
		return nil, errors.New("a checklist template cannot have more than 200 items")
	}
	return out, nil
}

func normalizeTemplateName(v string) (string, error) {
	name := strings.TrimSpace(v)
	if name == "" {
		return "", errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxTemplateNameLen {
		return "", errors.New("name cannot exceed 255 characters")
	}
	return name, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// ChecklistItemState is one template item with its completion on a job.
type ChecklistItemState struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// JobChecklistState combines a job's item status with its template's items. It is derived on
// read and never stored.
type JobChecklistState struct {
	JobID        string               `json:"job_id"`
	TemplateID   *string              `json:"template_id,omitempty"`
	TemplateName string               `json:"template_name,omitempty"`
	Items        []ChecklistItemState `json:"items"`
	Completed    int                  `json:"completed"`
	Total        int                  `json:"total"`
	Percent      int                  `json:"percent"`
	IsComplete   bool                 `json:"is_complete"`
	CanMutate    bool                 `json:"can_mutate"`
}
