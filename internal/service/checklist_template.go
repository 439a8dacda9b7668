package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
)

// ChecklistTemplateServiceOptions groups dependencies for ChecklistTemplateService.
type ChecklistTemplateServiceOptions struct {
	Repo   core.ChecklistTemplateRepository // Required: template repository
	Cache  *core.TemplateCacheService       // Optional: read-through cache for active listings
	Logger *slog.Logger                     // Optional: structured logger
}

// ChecklistTemplateService manages checklist templates. Reads are open to any authenticated
// actor; every mutation is admin only.
type ChecklistTemplateService struct {
	repo   core.ChecklistTemplateRepository
	cache  *core.TemplateCacheService
	logger *slog.Logger
}

// NewChecklistTemplateService constructs a new ChecklistTemplateService.
func NewChecklistTemplateService(opts ChecklistTemplateServiceOptions) (*ChecklistTemplateService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ChecklistTemplateRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChecklistTemplateService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		logger: logger.With("component", "checklist_template_service"),
	}, nil
}

// MustNewChecklistTemplateService constructs a ChecklistTemplateService and panics on error.
func MustNewChecklistTemplateService(opts ChecklistTemplateServiceOptions) *ChecklistTemplateService {
	svc, err := NewChecklistTemplateService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor intentionally panics on invalid wiring
		panic(err)
	}
	return svc
}

// Create creates a template. The (name, service type) pair must be unique.
func (s *ChecklistTemplateService) Create(
	ctx context.Context,
	actor domainauth.Actor,
	req *model.CreateChecklistTemplateRequest,
) (*model.ChecklistTemplate, error) {
	if err := requireAdmin(actor, "manage checklist templates"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := s.ensureUniqueName(ctx, req.Name, req.ServiceType, ""); err != nil {
		return nil, err
	}

	tmpl, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, translate("create checklist template", err)
	}
	s.logger.InfoContext(ctx, "checklist template created",
		"template_id", tmpl.ID,
		"service_type", tmpl.ServiceType,
		"items", len(tmpl.Items),
	)
	s.invalidate(ctx, tmpl.ServiceType)
	return tmpl, nil
}

// GetByID returns a template, active or not.
func (s *ChecklistTemplateService) GetByID(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
) (*model.ChecklistTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get checklist template", err)
	}
	return tmpl, nil
}

// List returns templates matching opts.
func (s *ChecklistTemplateService) List(
	ctx context.Context,
	actor domainauth.Actor,
	opts model.TemplateListOptions,
) ([]*model.ChecklistTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if opts.ServiceType != nil {
		st, err := model.NormalizeServiceType(*opts.ServiceType)
		if err != nil {
			return nil, apperrors.ValidationField("service_type", err.Error())
		}
		opts.ServiceType = &st
	}
	out, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, translate("list checklist templates", err)
	}
	return out, nil
}

// GetByServiceType returns the active templates for serviceType ordered by name.
func (s *ChecklistTemplateService) GetByServiceType(
	ctx context.Context,
	actor domainauth.Actor,
	serviceType string,
) ([]*model.ChecklistTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	st, err := model.NormalizeServiceType(serviceType)
	if err != nil {
		return nil, apperrors.ValidationField("service_type", err.Error())
	}

	var out []*model.ChecklistTemplate
	if s.cache != nil {
		out, err = s.cache.ListActive(ctx, st)
	} else {
		out, err = s.repo.ListActiveByServiceType(ctx, st)
	}
	if err != nil {
		return nil, translate("list active checklist templates", err)
	}
	if out == nil {
		out = []*model.ChecklistTemplate{}
	}
	return out, nil
}

// Update applies a partial update. Renaming or moving a template to another service type is
// checked against the uniqueness rule first.
func (s *ChecklistTemplateService) Update(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
	req *model.UpdateChecklistTemplateRequest,
) (*model.ChecklistTemplate, error) {
	if err := requireAdmin(actor, "manage checklist templates"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get checklist template", err)
	}
	name, st := existing.Name, existing.ServiceType
	if req.Name != nil {
		name = *req.Name
	}
	if req.ServiceType != nil {
		st = *req.ServiceType
	}
	if name != existing.Name || st != existing.ServiceType {
		if err = s.ensureUniqueName(ctx, name, st, existing.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, *req)
	if err != nil {
		return nil, translate("update checklist template", err)
	}
	s.logger.InfoContext(ctx, "checklist template updated", "template_id", id, "actor_id", actor.ID)
	s.invalidate(ctx, existing.ServiceType, updated.ServiceType)
	return updated, nil
}

// Delete hard-deletes a template no job references and deactivates a referenced one.
func (s *ChecklistTemplateService) Delete(
	ctx context.Context,
	actor domainauth.Actor,
	id string,
) (*model.TemplateDeleteResult, error) {
	if err := requireAdmin(actor, "manage checklist templates"); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get checklist template", err)
	}
	res, err := s.repo.DeleteOrDeactivate(ctx, id)
	if err != nil {
		return nil, translate("delete checklist template", err)
	}
	res.Message = deleteMessage(res)

	s.logger.InfoContext(ctx, "checklist template removed",
		"template_id", id,
		"deleted", res.Deleted,
		"reference_count", res.ReferenceCount,
	)
	s.invalidate(ctx, existing.ServiceType)
	return res, nil
}

func deleteMessage(res *model.TemplateDeleteResult) string {
	if res.Deleted {
		return "Checklist template deleted."
	}
	noun := "jobs"
	if res.ReferenceCount == 1 {
		noun = "job"
	}
	return fmt.Sprintf("Checklist template is used by %d %s and was deactivated instead of deleted.",
		res.ReferenceCount, noun)
}

// ensureUniqueName returns a conflict when another template already uses name within
// serviceType. exceptID excludes the template being updated.
func (s *ChecklistTemplateService) ensureUniqueName(ctx context.Context, name, serviceType, exceptID string) error {
	other, err := s.repo.GetByNameAndServiceType(ctx, name, serviceType)
	switch {
	case errors.Is(err, data.ErrTemplateNotFound):
		return nil
	case err != nil:
		return translate("check checklist template name", err)
	case other.ID == exceptID:
		return nil
	}
	return translate("check checklist template name", data.ErrTemplateNameExists)
}

func (s *ChecklistTemplateService) invalidate(ctx context.Context, serviceTypes ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, serviceTypes...); err != nil {
		s.logger.WarnContext(ctx, "template cache invalidation failed", "error", err)
	}
}
