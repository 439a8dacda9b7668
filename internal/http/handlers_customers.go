package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/opscrm-api/internal/domain/model"
	"github.com/target/opscrm-api/internal/service"
)

// CustomerHandlers serves the customer directory.
type CustomerHandlers struct {
	Svc    *service.CustomerService
	Logger *slog.Logger
}

func (h *CustomerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCustomerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	c, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	customers, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()), model.CustomerListOptions{
		Q:      optionalQuery(r, "q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	if customers == nil {
		customers = []*model.Customer{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"customers": customers, "limit": limit, "offset": offset})
}

func (h *CustomerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetByID(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err, h.Logger)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}
