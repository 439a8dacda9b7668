package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/checklist"
	domainjob "github.com/target/opscrm-api/internal/domain/job"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/observability/tracing"
)

// GetChecklistState returns the derived checklist view of a job for any authenticated actor.
func (s *JobService) GetChecklistState(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
) (*model.JobChecklistState, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get job", err)
	}
	tmpl, err := s.attachedTemplate(ctx, job)
	if err != nil {
		return nil, err
	}
	st := checklist.BuildState(job, tmpl, domainjob.CanViewMutationControl(actor, job))
	return &st, nil
}

// UpdateChecklistProgress replaces the job's item map with req.ItemStatus. The whole map is
// written; concurrent savers resolve last-write-wins. checklist_completed_at is set when every
// template item is done and cleared otherwise. Job status does not gate checklist edits.
func (s *JobService) UpdateChecklistProgress(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	req *model.UpdateChecklistProgressRequest,
) (state *model.JobChecklistState, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.update_checklist", attribute.String("job.id", id))
	defer func() { tracing.End(span, err) }()

	if err = requireActor(actor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err = req.Validate(); err != nil {
		return nil, apperrors.ValidationField("item_status", err.Error())
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get job", err)
	}
	if !domainjob.CanMutateJob(actor, job) {
		return nil, apperrors.Unauthorized("you are not allowed to modify this job's checklist")
	}
	tmpl, err := s.attachedTemplate(ctx, job)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, apperrors.ValidationField("checklist_template_id", "job has no checklist template attached")
	}

	items := make(map[string]bool, len(req.ItemStatus))
	for k, v := range req.ItemStatus {
		items[strings.TrimSpace(k)] = v
	}

	var completedAt *time.Time
	if checklist.AllDone(tmpl.Items, items) {
		if job.ChecklistCompletedAt != nil {
			completedAt = job.ChecklistCompletedAt
		} else {
			now := s.clock.Now().UTC()
			completedAt = &now
		}
	}

	updated, err := s.repo.UpdateChecklist(ctx, id, model.ChecklistWrite{
		TemplateID:           job.ChecklistTemplateID,
		ItemStatus:           items,
		ChecklistCompletedAt: completedAt,
	})
	if err != nil {
		return nil, translate("update checklist", err)
	}

	st := checklist.BuildState(updated, tmpl, true)
	s.logger.DebugContext(ctx, "checklist updated",
		"job_id", id,
		"completed", st.Completed,
		"total", st.Total,
		"actor_id", actor.ID,
	)
	s.publish(ctx, actor, model.JobEventChecklistUpdated, updated, map[string]any{
		"completed":   st.Completed,
		"total":       st.Total,
		"is_complete": st.IsComplete,
	})
	return &st, nil
}

// AttachTemplate attaches the template named by req.TemplateID and seeds every item as not
// done, replacing any previous progress. A nil TemplateID detaches and clears the checklist.
// The template must be active and share the job's service type.
func (s *JobService) AttachTemplate(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	req *model.AttachTemplateRequest,
) (state *model.JobChecklistState, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "job.attach_template", attribute.String("job.id", id))
	defer func() { tracing.End(span, err) }()

	if err = requireActor(actor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get job", err)
	}
	if !domainjob.CanMutateJob(actor, job) {
		return nil, apperrors.Unauthorized("you are not allowed to modify this job's checklist")
	}

	if req.TemplateID == nil || strings.TrimSpace(*req.TemplateID) == "" {
		return s.detach(ctx, actor, job)
	}

	tmpl, err := s.templates.GetByID(ctx, strings.TrimSpace(*req.TemplateID))
	if err != nil {
		return nil, translate("get checklist template", err)
	}
	if !tmpl.IsActive {
		return nil, apperrors.ValidationField("template_id", "checklist template is inactive")
	}
	if tmpl.ServiceType != job.ServiceType {
		return nil, apperrors.ValidationField("template_id",
			"checklist template is for service type "+tmpl.ServiceType+", job is "+job.ServiceType)
	}

	tmplID := tmpl.ID
	updated, err := s.repo.UpdateChecklist(ctx, id, model.ChecklistWrite{
		TemplateID: &tmplID,
		ItemStatus: checklist.SeedItems(tmpl.Items),
	})
	if err != nil {
		return nil, translate("attach checklist template", err)
	}

	s.logger.DebugContext(ctx, "checklist template attached", "job_id", id, "template_id", tmplID)
	s.publish(ctx, actor, model.JobEventTemplateAttached, updated, map[string]any{
		"template_id": tmplID,
		"items":       len(tmpl.Items),
	})
	st := checklist.BuildState(updated, tmpl, true)
	return &st, nil
}

func (s *JobService) detach(ctx context.Context, actor domainauth.Actor, job *model.Job) (*model.JobChecklistState, error) {
	updated, err := s.repo.UpdateChecklist(ctx, job.ID, model.ChecklistWrite{
		ItemStatus: map[string]bool{},
	})
	if err != nil {
		return nil, translate("detach checklist template", err)
	}
	var previous any
	if job.ChecklistTemplateID != nil {
		previous = *job.ChecklistTemplateID
	}
	s.logger.DebugContext(ctx, "checklist template detached", "job_id", job.ID)
	s.publish(ctx, actor, model.JobEventTemplateDetached, updated, map[string]any{
		"previous_template_id": previous,
	})
	st := checklist.BuildState(updated, nil, true)
	return &st, nil
}

// attachedTemplate loads the job's template, or nil when none is attached.
func (s *JobService) attachedTemplate(ctx context.Context, job *model.Job) (*model.ChecklistTemplate, error) {
	if job.ChecklistTemplateID == nil || *job.ChecklistTemplateID == "" {
		return nil, nil //nolint:nilnil // no template attached
	}
	tmpl, err := s.templates.GetByID(ctx, *job.ChecklistTemplateID)
	if err != nil {
		return nil, translate("get checklist template", err)
	}
	return tmpl, nil
}
