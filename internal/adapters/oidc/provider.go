// Package oidc authenticates staff against an OpenID Connect identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/ports"
)

// defaultIdentityTTL applies when the token response carries no expiry.
const defaultIdentityTTL = time.Hour

// Provider implements ports.AuthProvider using the authorization code flow.
type Provider struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client
	now        func() time.Time

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
}

// NewProvider fetches the discovery document and builds the OAuth2 configuration.
func NewProvider(config ProviderConfig) (*Provider, error) {
	for _, req := range []struct{ name, val string }{
		{"client ID", config.ClientID},
		{"client secret", config.ClientSecret},
		{"redirect URL", config.RedirectURL},
		{"discovery URL", config.DiscoveryURL},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(config.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:    config.LogoutURL,
		httpClient:   httpClient,
		now:          time.Now,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// LogoutURL returns the identity provider's end-session URL, if configured.
func (p *Provider) LogoutURL() string { return p.logoutURL }

func issuerFromDiscoveryURL(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, ".well-known/openid-configuration")
}

func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri stays the configured value; the IdP matches it exactly.
	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Identity{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	fields, err := p.extractFromIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
	}
	if fields.incomplete() {
		ui, uiErr := p.getUserInfo(ctx, token.AccessToken)
		if uiErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
		}
		fields.fillFrom(ui)
	}
	if fields.userID == "" {
		return domainauth.Identity{}, errors.New("identity provider returned no user id")
	}

	expiresAt := p.now().Add(defaultIdentityTTL)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	return domainauth.Identity{
		UserID:    fields.userID,
		FirstName: fields.givenName,
		LastName:  fields.familyName,
		Email:     fields.email,
		Groups:    fields.groups,
		ExpiresAt: expiresAt,
	}, nil
}

// identityClaims covers both standard OIDC claims and the Active Directory
// shape some providers emit. The same shape comes back from the userinfo endpoint.
type identityClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Groups            []string `json:"groups"`

	SamAccountName string   `json:"samaccountname"`
	FirstName      string   `json:"firstname"`
	LastName       string   `json:"lastname"`
	Mail           string   `json:"mail"`
	MemberOf       []string `json:"memberof"`

	Nonce string `json:"nonce"`
}

type idFields struct {
	userID     string
	email      string
	givenName  string
	familyName string
	groups     []string
}

func (f idFields) incomplete() bool {
	return f.userID == "" || f.email == ""
}

// mapClaims prefers directory account names over the opaque subject so staff
// records stay keyed by a readable login.
func mapClaims(c identityClaims) idFields {
	groups := c.MemberOf
	if len(groups) == 0 {
		groups = c.Groups
	}
	return idFields{
		userID:     firstNonEmpty(c.SamAccountName, c.PreferredUsername, c.Sub),
		email:      firstNonEmpty(c.Mail, c.Email),
		givenName:  firstNonEmpty(c.FirstName, c.GivenName),
		familyName: firstNonEmpty(c.LastName, c.FamilyName),
		groups:     slices.Clone(groups),
	}
}

// fillFrom sets only the fields that are still empty.
func (f *idFields) fillFrom(c identityClaims) {
	other := mapClaims(c)
	if f.userID == "" {
		f.userID = other.userID
	}
	if f.email == "" {
		f.email = other.email
	}
	if f.givenName == "" {
		f.givenName = other.givenName
	}
	if f.familyName == "" {
		f.familyName = other.familyName
	}
	if len(f.groups) == 0 {
		f.groups = other.groups
	}
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (idFields, error) {
	if !p.hasOpenIDScope() {
		return idFields{}, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return idFields{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return idFields{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims identityClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return idFields{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return idFields{}, errors.New("invalid nonce")
	}
	return mapClaims(claims), nil
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (identityClaims, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return identityClaims{}, fmt.Errorf("fetch user info: %w", err)
	}
	var claims identityClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return identityClaims{}, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return claims, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// randomToken returns 32 URL-safe characters drawn from 24 random bytes.
func randomToken() (string, error) {
	var b [24]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, "openid")
}

func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
