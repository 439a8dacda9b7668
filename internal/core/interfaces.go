// Package core holds the ports between the service layer and its adapters plus the small
// amount of business logic that sits directly on top of them.
package core

import (
	"context"
	"time"

	"github.com/target/opscrm-api/internal/domain/model"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest, status model.JobStatus) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	// Update applies w only while the stored status equals w.ExpectedStatus.
	Update(ctx context.Context, id string, w model.JobWrite) (*model.Job, error)
	// UpdateChecklist replaces template id, item status and checklist completion together.
	UpdateChecklist(ctx context.Context, id string, w model.ChecklistWrite) (*model.Job, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ChecklistTemplateRepository defines the interface for checklist template data operations.
type ChecklistTemplateRepository interface {
	Create(ctx context.Context, req *model.CreateChecklistTemplateRequest) (*model.ChecklistTemplate, error)
	GetByID(ctx context.Context, id string) (*model.ChecklistTemplate, error)
	GetByNameAndServiceType(ctx context.Context, name, serviceType string) (*model.ChecklistTemplate, error)
	List(ctx context.Context, opts model.TemplateListOptions) ([]*model.ChecklistTemplate, error)
	ListActiveByServiceType(ctx context.Context, serviceType string) ([]*model.ChecklistTemplate, error)
	Update(ctx context.Context, id string, req model.UpdateChecklistTemplateRequest) (*model.ChecklistTemplate, error)
	// DeleteOrDeactivate removes an unreferenced template or deactivates a referenced one.
	DeleteOrDeactivate(ctx context.Context, id string) (*model.TemplateDeleteResult, error)
	CountJobReferences(ctx context.Context, id string) (int, error)
}

// UserRepository defines the interface for staff records.
type UserRepository interface {
	Upsert(ctx context.Context, req *model.UpsertUserRequest) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, opts model.UserListOptions) ([]*model.User, error)
}

// CustomerRepository defines the interface for customer records.
type CustomerRepository interface {
	Create(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error)
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	List(ctx context.Context, opts model.CustomerListOptions) ([]*model.Customer, error)
}

// PurgeParams groups parameters for reaper purges.
type PurgeParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for background cleanup operations.
type ReaperRepository interface {
	// PurgeCancelledJobs deletes CANCELLED jobs untouched for MaxAge, at most BatchSize per call.
	PurgeCancelledJobs(ctx context.Context, params PurgeParams) (int64, error)

	// PurgeInactiveTemplates deletes inactive templates that no job references.
	PurgeInactiveTemplates(ctx context.Context, params PurgeParams) (int64, error)
}

// EventPublisher delivers job lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evt model.JobEvent) error
}
