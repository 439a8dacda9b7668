package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/target/opscrm-api/internal/ports"
)

const testClientID = "opscrm"

var _ ports.AuthProvider = (*Provider)(nil)

// fakeIdP serves discovery, JWKS, token and userinfo endpoints. ID tokens are
// RS256-signed with a per-instance key.
type fakeIdP struct {
	srv      *httptest.Server
	key      *rsa.PrivateKey
	idClaims jwt.MapClaims
	userinfo map[string]any
}

func newFakeIdP(t *testing.T, idClaims jwt.MapClaims, userinfo map[string]any) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{key: key, idClaims: idClaims, userinfo: userinfo}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                                idp.srv.URL,
			"authorization_endpoint":                idp.srv.URL + "/authorize",
			"token_endpoint":                        idp.srv.URL + "/token",
			"userinfo_endpoint":                     idp.srv.URL + "/userinfo",
			"jwks_uri":                              idp.srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("GET /keys", func(w http.ResponseWriter, _ *http.Request) {
		pub := idp.key.PublicKey
		writeJSON(w, http.StatusOK, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idp.signIDToken(t),
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, idp.userinfo)
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *fakeIdP) signIDToken(t *testing.T) string {
	claims := jwt.MapClaims{
		"iss": idp.srv.URL,
		"aud": testClientID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range idp.idClaims {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(idp.key)
	if err != nil {
		t.Errorf("sign id_token: %v", err)
	}
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, idp *fakeIdP, scope string) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "s3cret",
		RedirectURL:  "https://opscrm.example.com/auth/callback",
		Scope:        scope,
		DiscoveryURL: idp.srv.URL + "/.well-known/openid-configuration",
		LogoutURL:    idp.srv.URL + "/logout",
		HTTPClient:   idp.srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiredFields(t *testing.T) {
	t.Parallel()

	full := ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d"}
	tests := map[string]func(*ProviderConfig){
		"client ID is required":     func(c *ProviderConfig) { c.ClientID = "" },
		"client secret is required": func(c *ProviderConfig) { c.ClientSecret = "" },
		"redirect URL is required":  func(c *ProviderConfig) { c.RedirectURL = "" },
		"discovery URL is required": func(c *ProviderConfig) { c.DiscoveryURL = "" },
	}
	for want, mutate := range tests {
		t.Run(want, func(t *testing.T) {
			t.Parallel()
			cfg := full
			mutate(&cfg)
			_, err := NewProvider(cfg)
			require.EqualError(t, err, want)
		})
	}
}

func TestNewProvider_DiscoveryFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewProvider(ProviderConfig{
		ClientID: "c", ClientSecret: "s", RedirectURL: "r",
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
	})
	require.ErrorContains(t, err, "oidc new provider")
}

func TestProvider_Begin(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, newFakeIdP(t, nil, nil), "openid profile email groups")

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/jobs"})
	require.NoError(t, err)
	assert.Len(t, state, 32)
	assert.Len(t, nonce, 32)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "https://opscrm.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile email groups", q.Get("scope"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "select_account", q.Get("prompt"))

	_, state2, _, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/jobs"})
	require.NoError(t, err)
	assert.NotEqual(t, state, state2)

	_, _, _, err = p.Begin(context.Background(), ports.BeginInput{})
	require.ErrorContains(t, err, "redirect URL is required")

	assert.Equal(t, p.LogoutURL(), u.Scheme+"://"+u.Host+"/logout")
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		idClaims   jwt.MapClaims
		userinfo   map[string]any
		in         ports.ExchangeInput
		wantErr    string
		wantUser   string
		wantEmail  string
		wantFirst  string
		wantGroups []string
	}{
		{
			name: "directory claims in id token",
			idClaims: jwt.MapClaims{
				"sub": "8f1c", "nonce": "n1",
				"samaccountname": "rdiaz", "mail": "rosa@example.com",
				"firstname": "Rosa", "lastname": "Diaz",
				"memberof": []string{"CN=OpsCRM-QC,OU=Groups"},
			},
			in:         ports.ExchangeInput{Code: "good", State: "s1", Nonce: "n1"},
			wantUser:   "rdiaz",
			wantEmail:  "rosa@example.com",
			wantFirst:  "Rosa",
			wantGroups: []string{"CN=OpsCRM-QC,OU=Groups"},
		},
		{
			name:     "userinfo fills what the id token lacks",
			idClaims: jwt.MapClaims{"sub": "8f1c", "nonce": "n1"},
			userinfo: map[string]any{
				"sub": "8f1c", "email": "terry@example.com", "given_name": "Terry",
				"groups": []string{"opscrm-training"},
			},
			in:         ports.ExchangeInput{Code: "good", State: "s1", Nonce: "n1"},
			wantUser:   "8f1c",
			wantEmail:  "terry@example.com",
			wantFirst:  "Terry",
			wantGroups: []string{"opscrm-training"},
		},
		{
			name:     "nonce mismatch",
			idClaims: jwt.MapClaims{"sub": "8f1c", "nonce": "replayed", "email": "x@example.com"},
			in:       ports.ExchangeInput{Code: "good", State: "s1", Nonce: "n1"},
			wantErr:  "invalid nonce",
		},
		{
			name:    "code rejected",
			in:      ports.ExchangeInput{Code: "stale", State: "s1", Nonce: "n1"},
			wantErr: "exchange code for token",
		},
		{name: "missing code", in: ports.ExchangeInput{State: "s", Nonce: "n"}, wantErr: "authorization code is required"},
		{name: "missing state", in: ports.ExchangeInput{Code: "c", Nonce: "n"}, wantErr: "state is required"},
		{name: "missing nonce", in: ports.ExchangeInput{Code: "c", State: "s"}, wantErr: "nonce is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newTestProvider(t, newFakeIdP(t, tt.idClaims, tt.userinfo), "openid profile email")

			id, err := p.Exchange(context.Background(), tt.in)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, id.UserID)
			assert.Equal(t, tt.wantEmail, id.Email)
			assert.Equal(t, tt.wantFirst, id.FirstName)
			assert.Equal(t, tt.wantGroups, id.Groups)
			assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, time.Minute)
		})
	}
}

func TestProvider_Exchange_WithoutOpenIDScopeUsesUserinfo(t *testing.T) {
	t.Parallel()

	idp := newFakeIdP(t, jwt.MapClaims{"sub": "ignored", "nonce": "other"}, map[string]any{
		"preferred_username": "amy", "email": "amy@example.com", "family_name": "Santiago",
	})
	p := newTestProvider(t, idp, "profile email")

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "good", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "amy", id.UserID)
	assert.Equal(t, "Santiago", id.LastName)
}

func TestMapClaims_PrefersDirectoryNames(t *testing.T) {
	t.Parallel()

	got := mapClaims(identityClaims{
		Sub:               "sub-1",
		PreferredUsername: "jdoe",
		SamAccountName:    " jdoe2 ",
		Email:             "std@example.com",
		Mail:              "dir@example.com",
		Groups:            []string{"std"},
		MemberOf:          []string{"dir"},
	})
	assert.Equal(t, idFields{userID: "jdoe2", email: "dir@example.com", groups: []string{"dir"}}, got)
	assert.Equal(t, idFields{userID: "sub-1"}, mapClaims(identityClaims{Sub: "sub-1"}))
}

func TestIDFields_FillFromKeepsExistingValues(t *testing.T) {
	t.Parallel()

	f := idFields{userID: "keep", groups: []string{"keep"}}
	require.True(t, f.incomplete())
	f.fillFrom(identityClaims{Sub: "other", Email: "e@example.com", GivenName: "G", Groups: []string{"other"}})
	assert.Equal(t, idFields{userID: "keep", email: "e@example.com", givenName: "G", groups: []string{"keep"}}, f)
	assert.False(t, f.incomplete())
}

func TestIssuerFromDiscoveryURL(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"https://idp.example.com/.well-known/openid-configuration":         "https://idp.example.com",
		"https://idp.example.com/tenant/.well-known/openid-configuration/": "https://idp.example.com/tenant",
		"https://idp.example.com/":                                         "https://idp.example.com",
	} {
		assert.Equal(t, want, issuerFromDiscoveryURL(in), in)
	}
}

func TestGetIDTokenFromToken(t *testing.T) {
	t.Parallel()

	raw, err := getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"id_token": "a.b.c"}))
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", raw)

	_, err = getIDTokenFromToken(&oauth2.Token{})
	require.ErrorContains(t, err, "missing id_token")
	_, err = getIDTokenFromToken(nil)
	require.ErrorContains(t, err, "nil token")
}
