package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/service"
)

// Short-lived cookies that carry the login flow across the IdP round trip.
const (
	stateCookieName    = "oauth_state"
	nonceCookieName    = "oauth_nonce"
	redirectCookieName = "post_login_redirect"
	loginFlowMaxAge    = 10 * time.Minute
)

// AuthServiceInterface is the slice of service.AuthService the HTTP layer needs.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	ResolveBearer(ctx context.Context, token string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers serves the browser login flow under /auth.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// LogoutURL is the IdP end-session endpoint; logout lands there when set.
	LogoutURL string
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login starts the flow. GET /auth/login?redirect_uri=/jobs.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	maxAge := int(loginFlowMaxAge.Seconds())
	h.setCookie(w, r, stateCookieName, result.State, maxAge)
	h.setCookie(w, r, nonceCookieName, result.Nonce, maxAge)
	h.setCookie(w, r, redirectCookieName, redirectURI, maxAge)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback finishes the flow. GET /auth/callback?code=...&state=...
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")

	var nonce string
	switch {
	case code == "":
		badRequest(w, "missing_code", "authorization code is required")
		return
	case state == "":
		badRequest(w, "missing_state", "state parameter is required")
		return
	case cookieValue(r, stateCookieName) != state:
		badRequest(w, "invalid_state", "invalid or missing state parameter")
		return
	default:
		if nonce = cookieValue(r, nonceCookieName); nonce == "" {
			badRequest(w, "missing_nonce", "missing nonce parameter")
			return
		}
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{Code: code, State: state, Nonce: nonce})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "login completion failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "login_completion_failed",
			Err:     errors.New("could not complete sign-in with the identity provider"),
		})
		return
	}

	h.setCookie(w, r, sessionCookieName, result.Session.ID, int(time.Until(result.Session.ExpiresAt).Seconds()))
	h.clearCookie(w, r, stateCookieName)
	h.clearCookie(w, r, nonceCookieName)

	target := "/"
	if dest := cookieValue(r, redirectCookieName); dest != "" {
		h.clearCookie(w, r, redirectCookieName)
		target = safeRedirectPath(dest)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout drops the session. POST /auth/logout. Browsers are redirected; JSON
// callers get the destination in the body.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := cookieValue(r, sessionCookieName); id != "" {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.clearCookie(w, r, sessionCookieName)

	target := safeRedirectPath(r.FormValue("redirect_uri"))
	if h.LogoutURL != "" {
		target = h.LogoutURL
	}

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type statusUser struct {
	ID        string          `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Role      domainauth.Role `json:"role"`
	IsAdmin   bool            `json:"is_admin"`
}

type statusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *statusUser `json:"user,omitempty"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
}

// Status reports who the caller is. GET /auth/status. Bearer tokens count, so
// API clients can inspect the identity a token carries.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromRequest(r, h.Svc)
	if err != nil {
		if cookieValue(r, sessionCookieName) != "" {
			h.clearCookie(w, r, sessionCookieName)
		}
		WriteJSON(w, http.StatusOK, statusResponse{})
		return
	}

	WriteJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User: &statusUser{
			ID:        sess.UserID,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			Email:     sess.Email,
			Role:      sess.Role,
			IsAdmin:   sess.Role == domainauth.RoleAdmin,
		},
		ExpiresAt: &sess.ExpiresAt,
	})
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w, c)
}

// clearCookie repeats the attributes used when setting so every browser drops it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	h.setCookie(w, r, name, "", -1)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func badRequest(w http.ResponseWriter, code, msg string) {
	WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: code, Err: errors.New(msg)})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// safeRedirectPath keeps same-origin relative paths and maps everything else to "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
