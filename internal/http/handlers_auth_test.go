package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/service"
)

// mockAuthService answers with a valid operations session unless a func overrides it.
// Bearer tokens are disabled by default.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	getSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	resolveBearerFunc func(ctx context.Context, token string) (*domainauth.Session, error)
	logoutFunc        func(ctx context.Context, sessionID string) error
}

func testOpsSession(id string) domainauth.Session {
	return domainauth.Session{
		ID:        id,
		UserID:    "test-user",
		Email:     "test@example.com",
		Role:      domainauth.RoleOperations,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (m *mockAuthService) BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{AuthURL: "https://idp.example.com/authorize?state=test-state", State: "test-state", Nonce: "test-nonce"}, nil
}

func (m *mockAuthService) CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, in)
	}
	return &service.CompleteLoginResult{Session: testOpsSession("test-session-id")}, nil
}

func (m *mockAuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	sess := testOpsSession(sessionID)
	return &sess, nil
}

func (m *mockAuthService) ResolveBearer(ctx context.Context, token string) (*domainauth.Session, error) {
	if m.resolveBearerFunc != nil {
		return m.resolveBearerFunc(ctx, token)
	}
	return nil, service.ErrTokensDisabled
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func responseCookies(t *testing.T, w *httptest.ResponseRecorder) map[string]*http.Cookie {
	t.Helper()
	resp := w.Result()
	defer resp.Body.Close()
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestAuthHandlers_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		query        string
		wantRedirect string
	}{
		{name: "default destination", query: "", wantRedirect: "/"},
		{name: "relative path kept", query: "?redirect_uri=/jobs%3Fstatus%3Dopen", wantRedirect: "/jobs?status=open"},
		{name: "absolute url dropped", query: "?redirect_uri=https://evil.example.com", wantRedirect: "/"},
		{name: "protocol relative dropped", query: "?redirect_uri=//evil.example.com/x", wantRedirect: "/"},
		{name: "unparseable dropped", query: "?redirect_uri=://invalid", wantRedirect: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotRedirect string
			h := &AuthHandlers{Svc: &mockAuthService{
				beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
					gotRedirect = redirectURL
					return &service.BeginLoginResult{AuthURL: "https://idp.example.com/authorize", State: "st", Nonce: "nc"}, nil
				},
			}, CookieDomain: "opscrm.example.com"}

			w := httptest.NewRecorder()
			h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login"+tt.query, nil))

			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "https://idp.example.com/authorize", w.Header().Get("Location"))
			assert.Equal(t, tt.wantRedirect, gotRedirect)

			cookies := responseCookies(t, w)
			require.Len(t, cookies, 3)
			assert.Equal(t, "st", cookies[stateCookieName].Value)
			assert.Equal(t, "nc", cookies[nonceCookieName].Value)
			assert.Equal(t, tt.wantRedirect, cookies[redirectCookieName].Value)
			for _, c := range cookies {
				assert.True(t, c.HttpOnly, c.Name)
				assert.Equal(t, 600, c.MaxAge, c.Name)
				assert.Equal(t, "opscrm.example.com", c.Domain, c.Name)
			}
		})
	}
}

func TestAuthHandlers_Login_ProviderError(t *testing.T) {
	t.Parallel()

	h := &AuthHandlers{Svc: &mockAuthService{
		beginLoginFunc: func(context.Context, string) (*service.BeginLoginResult, error) {
			return nil, errors.New("discovery failed")
		},
	}}
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"login_failed"`)
}

func TestAuthHandlers_Callback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		cookies    map[string]string
		completeFn func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error)
		wantStatus int
		wantCode   string
		wantLoc    string
	}{
		{
			name:       "success returns to saved path",
			query:      "code=c1&state=st",
			cookies:    map[string]string{stateCookieName: "st", nonceCookieName: "nc", redirectCookieName: "/jobs/42"},
			wantStatus: http.StatusFound,
			wantLoc:    "/jobs/42",
		},
		{
			name:       "tampered saved path",
			query:      "code=c1&state=st",
			cookies:    map[string]string{stateCookieName: "st", nonceCookieName: "nc", redirectCookieName: "https://evil.example.com"},
			wantStatus: http.StatusFound,
			wantLoc:    "/",
		},
		{name: "missing code", query: "state=st", wantStatus: http.StatusBadRequest, wantCode: "missing_code"},
		{name: "missing state", query: "code=c1", wantStatus: http.StatusBadRequest, wantCode: "missing_state"},
		{
			name:       "state mismatch",
			query:      "code=c1&state=forged",
			cookies:    map[string]string{stateCookieName: "st", nonceCookieName: "nc"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_state",
		},
		{
			name:       "no nonce cookie",
			query:      "code=c1&state=st",
			cookies:    map[string]string{stateCookieName: "st"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_nonce",
		},
		{
			name:    "completion failure hides cause",
			query:   "code=c1&state=st",
			cookies: map[string]string{stateCookieName: "st", nonceCookieName: "nc"},
			completeFn: func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
				return nil, errors.New("exchange code for token: client secret rejected")
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   "login_completion_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got service.CompleteLoginInput
			svc := &mockAuthService{completeLoginFunc: tt.completeFn}
			if svc.completeLoginFunc == nil {
				svc.completeLoginFunc = func(_ context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
					got = in
					return &service.CompleteLoginResult{Session: testOpsSession("sess-1")}, nil
				}
			}
			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+tt.query, nil)
			for name, v := range tt.cookies {
				req.AddCookie(&http.Cookie{Name: name, Value: v})
			}
			w := httptest.NewRecorder()
			(&AuthHandlers{Svc: svc}).Callback(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), `"`+tt.wantCode+`"`)
				assert.NotContains(t, w.Body.String(), "client secret")
				return
			}
			assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			assert.Equal(t, service.CompleteLoginInput{Code: "c1", State: "st", Nonce: "nc"}, got)

			cookies := responseCookies(t, w)
			require.Contains(t, cookies, sessionCookieName)
			assert.Equal(t, "sess-1", cookies[sessionCookieName].Value)
			assert.Greater(t, cookies[sessionCookieName].MaxAge, 3500)
			for _, name := range []string{stateCookieName, nonceCookieName, redirectCookieName} {
				require.Contains(t, cookies, name)
				assert.Equal(t, -1, cookies[name].MaxAge, name)
			}
		})
	}
}

func TestAuthHandlers_Logout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		target    string
		idpLogout string
		accept    string
		wantLoc   string
		wantJSON  string
	}{
		{name: "browser", target: "/auth/logout", wantLoc: "/"},
		{name: "browser keeps local redirect", target: "/auth/logout?redirect_uri=/login", wantLoc: "/login"},
		{name: "json caller", target: "/auth/logout", accept: "application/json", wantJSON: "/"},
		{
			name: "idp end session wins", target: "/auth/logout?redirect_uri=https://evil.example.com",
			idpLogout: "https://login.example.com/logout", wantLoc: "https://login.example.com/logout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var loggedOut string
			h := &AuthHandlers{LogoutURL: tt.idpLogout, Svc: &mockAuthService{
				logoutFunc: func(_ context.Context, id string) error {
					loggedOut = id
					return errors.New("redis down")
				},
			}}
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			h.Logout(w, req)

			assert.Equal(t, "sess-1", loggedOut)
			cleared := responseCookies(t, w)[sessionCookieName]
			require.NotNil(t, cleared)
			assert.Empty(t, cleared.Value)
			assert.Equal(t, -1, cleared.MaxAge)

			if tt.wantJSON != "" {
				require.Equal(t, http.StatusOK, w.Code)
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, map[string]string{"status": "success", "redirect_to": tt.wantJSON}, body)
				return
			}
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
		})
	}
}

func TestAuthHandlers_Status(t *testing.T) {
	t.Parallel()

	bearer := func(_ context.Context, token string) (*domainauth.Session, error) {
		if token != "good-token" {
			return nil, errors.New("verify token: signature is invalid")
		}
		return &domainauth.Session{UserID: "svc-bot", Role: domainauth.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	unknown := func(context.Context, string) (*domainauth.Session, error) {
		return nil, errors.New("session not found")
	}

	tests := []struct {
		name        string
		svc         *mockAuthService
		cookie      string
		authz       string
		wantAuth    bool
		wantUser    string
		wantAdmin   bool
		wantCleared bool
	}{
		{name: "cookie session", svc: &mockAuthService{}, cookie: "sess-1", wantAuth: true, wantUser: "test-user"},
		{name: "stale cookie is cleared", svc: &mockAuthService{getSessionFunc: unknown}, cookie: "gone", wantCleared: true},
		{name: "anonymous", svc: &mockAuthService{}},
		{name: "bearer token", svc: &mockAuthService{resolveBearerFunc: bearer}, authz: "Bearer good-token", wantAuth: true, wantUser: "svc-bot", wantAdmin: true},
		{name: "bad bearer does not fall back to cookie", svc: &mockAuthService{resolveBearerFunc: bearer}, authz: "Bearer nope", cookie: "sess-1", wantCleared: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			w := httptest.NewRecorder()
			(&AuthHandlers{Svc: tt.svc}).Status(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body statusResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantAuth, body.Authenticated)
			if tt.wantAuth {
				require.NotNil(t, body.User)
				assert.Equal(t, tt.wantUser, body.User.ID)
				assert.Equal(t, tt.wantAdmin, body.User.IsAdmin)
				assert.NotNil(t, body.ExpiresAt)
			} else {
				assert.Nil(t, body.User)
			}
			_, cleared := responseCookies(t, w)[sessionCookieName]
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}
}
