package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/opscrm-api/internal/domain/model"
	"github.com/target/opscrm-api/internal/service"
)

// TemplateHandlers serves checklist template CRUD.
type TemplateHandlers struct {
	Svc    *service.ChecklistTemplateService
	Logger *slog.Logger
}

type templateListResponse struct {
	Templates []*model.ChecklistTemplate `json:"templates"`
	Limit     int                        `json:"limit,omitempty"`
	Offset    int                        `json:"offset,omitempty"`
}

func (h *TemplateHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateChecklistTemplateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	tpl, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	opts := model.TemplateListOptions{
		ServiceType: optionalQuery(r, "service_type"),
		Active:      optionalBoolQuery(r, "active"),
		Q:           optionalQuery(r, "q"),
		Sort:        r.URL.Query().Get("sort"),
		Dir:         r.URL.Query().Get("dir"),
		Limit:       limit,
		Offset:      offset,
	}
	tpls, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()), opts)
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	if tpls == nil {
		tpls = []*model.ChecklistTemplate{}
	}
	WriteJSON(w, http.StatusOK, templateListResponse{Templates: tpls, Limit: limit, Offset: offset})
}

// ByServiceType returns the active templates a job of the given service type may attach.
func (h *TemplateHandlers) ByServiceType(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.Svc.GetByServiceType(r.Context(), ActorFromContext(r.Context()), r.PathValue("serviceType"))
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	if tpls == nil {
		tpls = []*model.ChecklistTemplate{}
	}
	WriteJSON(w, http.StatusOK, templateListResponse{Templates: tpls})
}

func (h *TemplateHandlers) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.Svc.GetByID(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateChecklistTemplateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	tpl, err := h.Svc.Update(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), &req)
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, tpl)
}

// Delete removes an unreferenced template, or deactivates a referenced one. Both are 200 with
// a body saying which happened.
func (h *TemplateHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Delete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
