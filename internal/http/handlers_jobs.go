// Package httpx exposes the CRM's JSON API over net/http.
package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	jobauthz "github.com/target/opscrm-api/internal/domain/job"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc    *service.JobService
	Logger *slog.Logger
}

// jobResponse decorates a job with whether the caller may change it, so clients can hide
// controls the API would reject anyway.
type jobResponse struct {
	*model.Job
	CanMutate bool `json:"can_mutate"`
}

func newJobResponse(actor domainauth.Actor, j *model.Job) jobResponse {
	return jobResponse{Job: j, CanMutate: jobauthz.CanViewMutationControl(actor, j)}
}

type jobListResponse struct {
	Jobs   []jobResponse `json:"jobs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (h *JobHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteAppError(w, r, err, h.Logger)
}

// Create handles POST /api/jobs.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	actor := ActorFromContext(r.Context())
	job, err := h.Svc.Create(r.Context(), actor, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newJobResponse(actor, job))
}

// List handles GET /api/jobs.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	opts := model.JobListOptions{
		AssignedUserID: optionalQuery(r, "assigned_user_id"),
		CustomerID:     optionalQuery(r, "customer_id"),
		ServiceType:    optionalQuery(r, "service_type"),
		Q:              optionalQuery(r, "q"),
		Sort:           r.URL.Query().Get("sort"),
		Dir:            r.URL.Query().Get("dir"),
		Limit:          limit,
		Offset:         offset,
	}
	if raw := optionalQuery(r, "status"); raw != nil {
		st, err := model.ParseJobStatus(*raw)
		if err != nil {
			h.fail(w, r, apperrors.ValidationField("status", err.Error()))
			return
		}
		opts.Status = &st
	}

	actor := ActorFromContext(r.Context())
	jobs, err := h.Svc.List(r.Context(), actor, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, newJobResponse(actor, j))
	}
	WriteJSON(w, http.StatusOK, jobListResponse{Jobs: out, Limit: limit, Offset: offset})
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	job, err := h.Svc.GetByID(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newJobResponse(actor, job))
}

// Update handles PATCH /api/jobs/{id}.
func (h *JobHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	actor := ActorFromContext(r.Context())
	job, err := h.Svc.Update(r.Context(), actor, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newJobResponse(actor, job))
}

// UpdateStatus handles POST /api/jobs/{id}/status.
func (h *JobHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateJobStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		h.fail(w, r, apperrors.ValidationField("status", "status is required"))
		return
	}
	actor := ActorFromContext(r.Context())
	job, err := h.Svc.UpdateStatus(r.Context(), actor, r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newJobResponse(actor, job))
}

// Delete handles DELETE /api/jobs/{id}.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetChecklist handles GET /api/jobs/{id}/checklist.
func (h *JobHandlers) GetChecklist(w http.ResponseWriter, r *http.Request) {
	state, err := h.Svc.GetChecklistState(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// UpdateChecklist handles PUT /api/jobs/{id}/checklist. The body replaces the whole item map.
func (h *JobHandlers) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateChecklistProgressRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	state, err := h.Svc.UpdateChecklistProgress(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// AttachTemplate handles PUT /api/jobs/{id}/template. A null template_id detaches.
func (h *JobHandlers) AttachTemplate(w http.ResponseWriter, r *http.Request) {
	var req model.AttachTemplateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	state, err := h.Svc.AttachTemplate(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, state)
}
