package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/observability/meter"
	"github.com/target/opscrm-api/internal/observability/tracing"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo      core.JobRepository               // Required: job repository
	Templates core.ChecklistTemplateRepository // Required: template lookups for checklists
	Users     core.UserRepository              // Required: assignee validation
	Customers core.CustomerRepository          // Required: customer validation
	Events    core.EventPublisher              // Optional: lifecycle event sink
	Metrics   meter.Sink                      // Optional: job.transition / job.duration
	Tracer    trace.Tracer                     // Optional: defaults to the global tracer
	Clock     data.TimeProvider                // Optional: defaults to wall clock
	Logger    *slog.Logger                     // Optional: structured logger
}

// JobService owns the job lifecycle: who may change a job, which status changes are legal,
// and the side effects (completion stamps, checklist seeding, events) that go with them.
type JobService struct {
	repo      core.JobRepository
	templates core.ChecklistTemplateRepository
	users     core.UserRepository
	customers core.CustomerRepository
	events    core.EventPublisher
	metrics   meter.Sink
	tracer    trace.Tracer
	clock     data.TimeProvider
	logger    *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Templates == nil {
		return nil, errors.New("ChecklistTemplateRepository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Customers == nil {
		return nil, errors.New("CustomerRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Tracer()
	}

	return &JobService{
		repo:      opts.Repo,
		templates: opts.Templates,
		users:     opts.Users,
		customers: opts.Customers,
		events:    opts.Events,
		metrics:   opts.Metrics,
		tracer:    tracer,
		clock:     clock,
		logger:    logger.With("component", "job_service"),
	}, nil
}

// MustNewJobService constructs a JobService and panics on error.
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor intentionally panics on invalid wiring
		panic(err)
	}
	return svc
}

// Create creates a job. Only admins create jobs; the job starts ASSIGNED when an assignee
// is supplied and NEW otherwise.
func (s *JobService) Create(
	ctx context.Context,
	actor domainauth.Actor,
	req *model.CreateJobRequest,
) (job *model.Job, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.create", attribute.String("actor.role", string(actor.Role)))
	defer func() { tracing.End(span, err) }()

	if err = requireAdmin(actor, "create jobs"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err = req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if err = s.checkReferences(ctx, req.CustomerID, req.AssignedUserID); err != nil {
		return nil, err
	}

	status := req.InitialStatus()
	job, err = s.repo.Create(ctx, req, status)
	if err != nil {
		return nil, translate("create job", err)
	}
	span.SetAttributes(attribute.String("job.id", job.ID))

	s.logger.DebugContext(ctx, "job created",
		"job_id", job.ID,
		"status", job.Status,
		"service_type", job.ServiceType,
		"actor_id", actor.ID,
	)
	s.recordTransition(job, "", job.Status, nil)
	s.publish(ctx, actor, model.JobEventCreated, job, map[string]any{"status": job.Status})
	return job, nil
}

// checkReferences verifies the customer and the optional assignee concurrently.
func (s *JobService) checkReferences(ctx context.Context, customerID string, assigneeID *string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.customers.GetByID(gctx, customerID); err != nil {
			return translate("get customer", err)
		}
		return nil
	})
	if assigneeID != nil {
		g.Go(func() error {
			return s.ensureAssignee(gctx, *assigneeID)
		})
	}
	return g.Wait()
}

func (s *JobService) ensureAssignee(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return apperrors.NotFoundf("assigned user %s not found", userID)
		}
		return translate("get assignee", err)
	}
	return nil
}

// GetByID returns a job by id to any authenticated actor.
func (s *JobService) GetByID(ctx context.Context, actor domainauth.Actor, id string) (*model.Job, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get job", err)
	}
	return job, nil
}

// List returns jobs matching opts to any authenticated actor.
func (s *JobService) List(
	ctx context.Context,
	actor domainauth.Actor,
	opts model.JobListOptions,
) ([]*model.Job, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, apperrors.Validation("limit and offset must not be negative")
	}
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, translate("list jobs", err)
	}
	return jobs, nil
}

// Delete removes a job. Admin only; a job that is IN_PROGRESS is refused with a conflict.
func (s *JobService) Delete(ctx context.Context, actor domainauth.Actor, id string) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.delete", attribute.String("job.id", id))
	defer func() { tracing.End(span, err) }()

	if err = requireAdmin(actor, "delete jobs"); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return translate("delete job", err)
	}
	if !deleted {
		return apperrors.NotFound("job not found")
	}
	s.logger.InfoContext(ctx, "job deleted", "job_id", id, "actor_id", actor.ID)
	s.publish(ctx, actor, model.JobEventDeleted, &model.Job{ID: id}, nil)
	return nil
}

func (s *JobService) publish(
	ctx context.Context,
	actor domainauth.Actor,
	typ model.JobEventType,
	job *model.Job,
	payload map[string]any,
) {
	if s.events == nil || job == nil {
		return
	}
	evt := model.JobEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		JobID:      job.ID,
		ActorID:    actor.ID,
		OccurredAt: s.clock.Now().UTC(),
		Data:       payload,
	}
	// Events go out after the write committed; a delivery failure never fails the request.
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "publish job event failed",
			"event_type", typ,
			"job_id", job.ID,
			"error", err,
		)
	}
}
