// Package devseed loads a small, idempotent data set for local development.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/service"
)

// seedActor is the identity seed writes are attributed to.
//
//nolint:gochecknoglobals // fixed identity
var seedActor = domainauth.Actor{ID: "dev-admin", Role: domainauth.RoleAdmin}

// Services bundles the dependencies needed for development seeding.
type Services struct {
	staff     *service.StaffService
	customers *service.CustomerService
	templates *service.ChecklistTemplateService
	jobs      *service.JobService
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB, logger *slog.Logger) (Services, error) {
	users := data.NewUserRepo(db)
	customers := data.NewCustomerRepo(db)
	templates := data.NewChecklistTemplateRepo(db)

	staffSvc, err := service.NewStaffService(service.StaffServiceOptions{Repo: users, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	customerSvc, err := service.NewCustomerService(service.CustomerServiceOptions{Repo: customers, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	templateSvc, err := service.NewChecklistTemplateService(service.ChecklistTemplateServiceOptions{
		Repo:   templates,
		Logger: logger,
	})
	if err != nil {
		return Services{}, err
	}
	jobSvc, err := service.NewJobService(service.JobServiceOptions{
		Repo:      data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		Templates: templates,
		Users:     users,
		Customers: customers,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, err
	}

	return Services{staff: staffSvc, customers: customerSvc, templates: templateSvc, jobs: jobSvc}, nil
}

// Run executes the full development seeding workflow. Running it twice adds nothing new.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	failures += seedStaff(ctx, svcs.staff, logger)
	failures += seedTemplates(ctx, svcs.templates, logger)

	customerIDs, n := seedCustomers(ctx, svcs.customers, logger)
	failures += n
	failures += seedJobs(ctx, svcs.jobs, customerIDs, logger)

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func defaultStaff() []*model.UpsertUserRequest {
	return []*model.UpsertUserRequest{
		{ID: "dev-admin", Name: "Dev Admin", Email: ptr("dev@example.com"), Role: string(domainauth.RoleAdmin)},
		{ID: "ops-maria", Name: "Maria Lopez", Email: ptr("maria@example.com"), Role: string(domainauth.RoleOperations)},
		{ID: "ops-sam", Name: "Sam Chen", Email: ptr("sam@example.com"), Role: string(domainauth.RoleOperations)},
		{ID: "qc-jordan", Name: "Jordan Patel", Email: ptr("jordan@example.com"), Role: string(domainauth.RoleQCManager)},
		{ID: "trainee-alex", Name: "Alex Kim", Role: string(domainauth.RoleTraining)},
	}
}

func seedStaff(ctx context.Context, svc *service.StaffService, logger *slog.Logger) int {
	failures := 0
	for _, req := range defaultStaff() {
		if _, err := svc.Upsert(ctx, seedActor, req); err != nil {
			logger.ErrorContext(ctx, "failed to seed staff member", "id", req.ID, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded staff member", "id", req.ID, "role", req.Role)
	}
	return failures
}

func defaultTemplates() []*model.CreateChecklistTemplateRequest {
	return []*model.CreateChecklistTemplateRequest{
		{
			Name:        "Standard clean",
			ServiceType: "cleaning",
			Description: ptr("Routine residential clean"),
			Items:       []string{"Dust surfaces", "Vacuum floors", "Mop hard floors", "Clean bathrooms", "Empty bins"},
		},
		{
			Name:        "Deep clean",
			ServiceType: "cleaning",
			Items:       []string{"Inside oven", "Inside fridge", "Baseboards", "Window tracks", "Behind appliances"},
		},
		{
			Name:        "Move-out inspection",
			ServiceType: "inspection",
			Items:       []string{"Walls and paint", "Fixtures", "Appliances", "Keys returned", "Photos uploaded"},
		},
	}
}

func seedTemplates(ctx context.Context, svc *service.ChecklistTemplateService, logger *slog.Logger) int {
	failures := 0
	for _, req := range defaultTemplates() {
		_, err := svc.Create(ctx, seedActor, req)
		switch {
		case err == nil:
			logger.InfoContext(ctx, "created checklist template", "name", req.Name, "service_type", req.ServiceType)
		case apperrors.IsConflict(err):
			logger.InfoContext(ctx, "checklist template already exists", "name", req.Name)
		default:
			logger.ErrorContext(ctx, "failed to create checklist template", "name", req.Name, "error", err)
			failures++
		}
	}
	return failures
}

func defaultCustomers() []*model.CreateCustomerRequest {
	return []*model.CreateCustomerRequest{
		{Name: "Harbor View Apartments", Email: ptr("office@harborview.example.com"), Address: ptr("12 Quay St")},
		{Name: "Greenfield Dental", Phone: ptr("+1 555 0100")},
		{Name: "Oak Street Residence", Address: ptr("48 Oak St")},
	}
}

// seedCustomers returns the IDs of customers created by this run. Existing customers are
// matched by exact name and left alone.
func seedCustomers(ctx context.Context, svc *service.CustomerService, logger *slog.Logger) ([]string, int) {
	var (
		created  []string
		failures int
	)
	for _, req := range defaultCustomers() {
		exists, err := customerExists(ctx, svc, req.Name)
		if err != nil {
			logger.ErrorContext(ctx, "failed to look up customer", "name", req.Name, "error", err)
			failures++
			continue
		}
		if exists {
			logger.InfoContext(ctx, "customer already exists", "name", req.Name)
			continue
		}
		c, err := svc.Create(ctx, seedActor, req)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create customer", "name", req.Name, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "created customer", "id", c.ID, "name", c.Name)
		created = append(created, c.ID)
	}
	return created, failures
}

func customerExists(ctx context.Context, svc *service.CustomerService, name string) (bool, error) {
	found, err := svc.List(ctx, seedActor, model.CustomerListOptions{Q: &name, Limit: 50})
	if err != nil {
		return false, err
	}
	for _, c := range found {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// seedJobs books jobs only for customers created in this run.
func seedJobs(ctx context.Context, svc *service.JobService, customerIDs []string, logger *slog.Logger) int {
	failures := 0
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	for i, customerID := range customerIDs {
		reqs := []*model.CreateJobRequest{
			{CustomerID: customerID, Title: "Weekly clean", ServiceType: "cleaning", ScheduledFor: ptr(tomorrow)},
			{CustomerID: customerID, Title: "Quarterly inspection", ServiceType: "inspection"},
		}
		// Alternate assignees so the board shows both NEW and ASSIGNED work.
		if i%2 == 0 {
			reqs[0].AssignedUserID = ptr("ops-maria")
		} else {
			reqs[0].AssignedUserID = ptr("ops-sam")
		}
		for _, req := range reqs {
			job, err := svc.Create(ctx, seedActor, req)
			if err != nil {
				logger.ErrorContext(ctx, "failed to create job", "customer_id", customerID, "title", req.Title, "error", err)
				failures++
				continue
			}
			logger.InfoContext(ctx, "created job", "id", job.ID, "status", job.Status)
		}
	}
	return failures
}
