package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/service"
)

// StaffHandlers serves the staff directory.
type StaffHandlers struct {
	Svc    *service.StaffService
	Logger *slog.Logger
}

func (h *StaffHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	users, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()), model.UserListOptions{
		Role:   optionalQuery(r, "role"),
		Q:      optionalQuery(r, "q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"staff": users, "limit": limit, "offset": offset})
}

func (h *StaffHandlers) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Svc.GetByID(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Upsert handles PUT /api/staff/{id}. The path id wins; a conflicting body id is rejected.
func (h *StaffHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if body := strings.TrimSpace(req.ID); body != "" && body != id {
		WriteAppError(w, r, apperrors.ValidationField("id", "id in body does not match the path"), h.Logger)
		return
	}
	req.ID = id
	u, err := h.Svc.Upsert(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}
