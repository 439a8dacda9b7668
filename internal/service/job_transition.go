package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	domainjob "github.com/target/opscrm-api/internal/domain/job"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/observability/metrics"
	"github.com/target/opscrm-api/internal/observability/tracing"
)

// Update applies a partial update. Field edits, reassignment and status changes all pass
// the same gate: the actor must be authenticated, allowed to mutate the job, and the
// resulting status change must be legal. Reassignment is admin only. Setting an assignee
// without a status requests ASSIGNED.
func (s *JobService) Update(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	req *model.UpdateJobRequest,
) (job *model.Job, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.update", attribute.String("job.id", id))
	defer func() { tracing.End(span, err) }()

	if err = requireActor(actor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err = req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	return s.mutate(ctx, actor, id, *req)
}

// UpdateStatus moves a job to status. It is Update restricted to the status field.
func (s *JobService) UpdateStatus(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	status model.JobStatus,
) (job *model.Job, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.update_status",
		attribute.String("job.id", id),
		attribute.String("job.requested_status", string(status)),
	)
	defer func() { tracing.End(span, err) }()

	if err = requireActor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.ValidationField("status", "invalid job status: "+string(status))
	}
	return s.mutate(ctx, actor, id, model.UpdateJobRequest{Status: &status})
}

// mutate runs load → authorize → validate → conditional write. When the stored status moved
// between the read and the write, the job is re-read and every check runs again.
func (s *JobService) mutate(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	req model.UpdateJobRequest,
) (*model.Job, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, translate("get job", err)
		}

		write, err := s.planWrite(ctx, actor, current, req)
		if err != nil {
			if apperrors.IsInvalidTransition(err) {
				s.recordTransition(current, current.Status, *write.Status, err)
			}
			return nil, err
		}

		updated, err := s.repo.Update(ctx, id, write)
		if err == nil {
			s.afterUpdate(ctx, actor, current, updated)
			return updated, nil
		}
		if !errors.Is(err, data.ErrStatusChanged) || attempt >= maxConditionalAttempts {
			return nil, translate("update job", err)
		}
		s.logger.DebugContext(ctx, "job changed during update, retrying",
			"job_id", id,
			"attempt", attempt,
		)
	}
}

// planWrite applies the authorization and transition rules to current and returns the write
// to issue. On an invalid transition the returned write still carries the requested status.
func (s *JobService) planWrite(
	ctx context.Context,
	actor domainauth.Actor,
	current *model.Job,
	req model.UpdateJobRequest,
) (model.JobWrite, error) {
	write := model.JobWrite{
		ExpectedStatus: current.Status,
		Title:          req.Title,
		Notes:          req.Notes,
		ScheduledFor:   req.ScheduledFor,
	}

	if !domainjob.CanMutateJob(actor, current) {
		return write, apperrors.Unauthorized("you are not allowed to modify this job")
	}

	if req.AssignedUserID != nil {
		reassigning := !current.IsAssigned() || *current.AssignedUserID != *req.AssignedUserID
		if reassigning && !actor.IsAdmin() {
			return write, apperrors.Unauthorized("only admins may reassign jobs")
		}
		if err := s.ensureAssignee(ctx, *req.AssignedUserID); err != nil {
			return write, err
		}
		write.AssignedUserID = req.AssignedUserID
	}

	requested := req.Status
	if requested == nil && req.AssignedUserID != nil {
		assigned := model.JobStatusAssigned
		requested = &assigned
	}
	if requested == nil {
		return write, nil
	}

	next := requested.Canonical()
	write.Status = &next
	if !domainjob.IsValidTransition(current.Status, next) {
		return write, invalidTransition(current.Status, next)
	}
	if domainjob.IsCompleted(next) && !domainjob.IsCompleted(current.Status) {
		now := s.clock.Now().UTC()
		write.CompletedAt = &now
	}
	return write, nil
}

func invalidTransition(current, requested model.JobStatus) error {
	next := domainjob.ValidNextStatuses(current)
	names := make([]string, len(next))
	for i, st := range next {
		names[i] = string(st)
	}
	return apperrors.InvalidTransition(
		domainjob.ExplainInvalidTransition(current, requested),
		apperrors.TransitionDetails{
			Current:   string(current),
			Requested: string(requested),
			ValidNext: names,
		},
	)
}

func (s *JobService) afterUpdate(ctx context.Context, actor domainauth.Actor, before, after *model.Job) {
	from, to := before.Status.Canonical(), after.Status.Canonical()
	s.logger.DebugContext(ctx, "job updated",
		"job_id", after.ID,
		"from_status", from,
		"to_status", to,
		"actor_id", actor.ID,
	)

	if from == to {
		s.publish(ctx, actor, model.JobEventUpdated, after, nil)
		return
	}
	s.recordTransition(after, from, to, nil)
	s.publish(ctx, actor, model.JobEventStatusChanged, after, map[string]any{
		"from": from,
		"to":   to,
	})
}

// recordTransition emits job.transition, plus job.duration when job reached a terminal status.
// An empty from marks creation.
func (s *JobService) recordTransition(job *model.Job, from, to model.JobStatus, err error) {
	m := metrics.JobMetric{
		ServiceType: job.ServiceType,
		From:        string(from),
		To:          string(to),
		Result:      metrics.ResultSuccess,
		Err:         err,
	}
	switch {
	case err != nil:
		m.Result = metrics.ResultRejected
	case from != "" && domainjob.IsTerminal(to) && !job.CreatedAt.IsZero():
		end := job.UpdatedAt
		if job.CompletedAt != nil {
			end = *job.CompletedAt
		}
		m.Duration = end.Sub(job.CreatedAt)
	}
	metrics.EmitJobLifecycle(s.metrics, m)
}
