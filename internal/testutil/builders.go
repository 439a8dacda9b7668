// Package testutil provides testing utilities and helpers for the opscrm API.
package testutil

import (
	"time"

	"github.com/target/opscrm-api/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults. The customer id
// must be set before the request is used against a database.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Title:       "Office deep clean",
			ServiceType: "cleaning",
		},
	}
}

// WithCustomer sets the customer id.
func (b *JobRequestBuilder) WithCustomer(id string) *JobRequestBuilder {
	b.req.CustomerID = id
	return b
}

// WithTitle sets the title.
func (b *JobRequestBuilder) WithTitle(title string) *JobRequestBuilder {
	b.req.Title = title
	return b
}

// WithServiceType sets the service type.
func (b *JobRequestBuilder) WithServiceType(st string) *JobRequestBuilder {
	b.req.ServiceType = st
	return b
}

// WithAssignee sets the assigned staff member.
func (b *JobRequestBuilder) WithAssignee(userID string) *JobRequestBuilder {
	b.req.AssignedUserID = &userID
	return b
}

// WithNotes sets free-form notes.
func (b *JobRequestBuilder) WithNotes(notes string) *JobRequestBuilder {
	b.req.Notes = &notes
	return b
}

// WithScheduledFor sets the scheduled time.
func (b *JobRequestBuilder) WithScheduledFor(at time.Time) *JobRequestBuilder {
	b.req.ScheduledFor = &at
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// NewTemplateRequest returns a valid template request for serviceType.
func NewTemplateRequest(name, serviceType string, items ...string) *model.CreateChecklistTemplateRequest {
	if len(items) == 0 {
		items = []string{"Inspect site", "Sign off"}
	}
	return &model.CreateChecklistTemplateRequest{
		Name:        name,
		ServiceType: serviceType,
		Items:       items,
	}
}

// JobFixture returns an in-memory job for unit tests that never touch a database.
func JobFixture(status model.JobStatus, assignee string) *model.Job {
	j := &model.Job{
		ID:          "11111111-1111-1111-1111-111111111111",
		CustomerID:  "22222222-2222-2222-2222-222222222222",
		Title:       "Office deep clean",
		ServiceType: "cleaning",
		Status:      status,
		ItemStatus:  map[string]bool{},
		CreatedAt:   TestTime(),
		UpdatedAt:   TestTime(),
	}
	if assignee != "" {
		j.AssignedUserID = &assignee
	}
	return j
}

// TemplateFixture returns an in-memory active template.
func TemplateFixture(id, serviceType string, items ...string) *model.ChecklistTemplate {
	if len(items) == 0 {
		items = []string{"Inspect site", "Sign off"}
	}
	return &model.ChecklistTemplate{
		ID:          id,
		Name:        "Standard " + serviceType,
		ServiceType: serviceType,
		Items:       items,
		IsActive:    true,
		CreatedAt:   TestTime(),
		UpdatedAt:   TestTime(),
	}
}
