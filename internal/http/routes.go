package httpx

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/target/opscrm-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      *service.JobService
	Templates *service.ChecklistTemplateService
	Customers *service.CustomerService
	Staff     *service.StaffService
	Auth      AuthServiceInterface

	CookieDomain string
	// LogoutURL is the identity provider's end-session endpoint (optional).
	LogoutURL    string
	MaxBodyBytes int64
	// HealthChecks are run by /healthz; any failure answers 503.
	HealthChecks map[string]HealthCheck
	Tracer       trace.Tracer
	Logger       *slog.Logger
}

// NewRouter creates the HTTP handler. Every /api route requires an authenticated staff caller,
// and cookie-authenticated writes must pass the CSRF check.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	health := &healthHandler{checks: services.HealthChecks, logger: logger}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	api := func(h http.HandlerFunc) http.Handler {
		return recordRoute(RequireAuth(services.Auth)(RequireStaff(h)))
	}
	if services.Auth == nil {
		api = func(http.HandlerFunc) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeUnauthenticated(w, errAuthNotConfigured)
			})
		}
	} else {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			LogoutURL:    services.LogoutURL,
			Logger:       logger,
		})
	}

	if services.Jobs != nil {
		registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs, Logger: logger}, api)
	}
	if services.Templates != nil {
		registerTemplateRoutes(mux, &TemplateHandlers{Svc: services.Templates, Logger: logger}, api)
	}
	if services.Customers != nil {
		h := &CustomerHandlers{Svc: services.Customers, Logger: logger}
		mux.Handle("POST /api/customers", api(h.Create))
		mux.Handle("GET /api/customers", api(h.List))
		mux.Handle("GET /api/customers/{id}", api(h.Get))
	}
	if services.Staff != nil {
		h := &StaffHandlers{Svc: services.Staff, Logger: logger}
		mux.Handle("GET /api/staff", api(h.List))
		mux.Handle("GET /api/staff/{id}", api(h.Get))
		mux.Handle("PUT /api/staff/{id}", api(h.Upsert))
	}

	var handler http.Handler = mux
	handler = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(handler)
	handler = MaxBody(services.MaxBodyBytes)(handler)
	handler = Logging(logger)(handler)
	handler = Tracing(services.Tracer)(handler)
	return Recover(logger)(handler)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, api func(http.HandlerFunc) http.Handler) {
	mux.Handle("POST /api/jobs", api(h.Create))
	mux.Handle("GET /api/jobs", api(h.List))
	mux.Handle("GET /api/jobs/{id}", api(h.Get))
	mux.Handle("PATCH /api/jobs/{id}", api(h.Update))
	mux.Handle("DELETE /api/jobs/{id}", api(h.Delete))
	mux.Handle("POST /api/jobs/{id}/status", api(h.UpdateStatus))
	mux.Handle("GET /api/jobs/{id}/checklist", api(h.GetChecklist))
	mux.Handle("PUT /api/jobs/{id}/checklist", api(h.UpdateChecklist))
	mux.Handle("PUT /api/jobs/{id}/template", api(h.AttachTemplate))
}

func registerTemplateRoutes(mux *http.ServeMux, h *TemplateHandlers, api func(http.HandlerFunc) http.Handler) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/checklist-templates",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.Get,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: func(hh http.Handler) http.Handler { return api(hh.ServeHTTP) },
	})
	mux.Handle("GET /api/checklist-templates/by-service-type/{serviceType}", api(h.ByServiceType))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

// crudRoutes describes standard CRUD routes for a resource base path.
type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}
