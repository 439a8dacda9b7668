// Package apitoken signs and verifies HS256 bearer tokens for API clients.
package apitoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
)

// claims is the token body. Sub carries the user id and ID (jti) becomes the session id.
type claims struct {
	Role      string `json:"role"`
	FirstName string `json:"given_name,omitempty"`
	LastName  string `json:"family_name,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Codec implements ports.TokenCodec.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec returns a codec signing with secret. Tokens from other issuers are rejected.
func NewCodec(secret, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("api token secret is required")
	}
	if issuer == "" {
		return nil, errors.New("api token issuer is required")
	}
	return &Codec{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for sess that expires after ttl.
func (c *Codec) Issue(sess domainauth.Session, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be positive")
	}
	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:      string(sess.Role),
		FirstName: sess.FirstName,
		LastName:  sess.LastName,
		Email:     sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sess.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and expiry and returns the session the token carries.
func (c *Codec) Verify(token string) (domainauth.Session, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return domainauth.Session{}, err
	}
	if cl.Subject == "" {
		return domainauth.Session{}, errors.New("token has no subject")
	}

	return domainauth.Session{
		ID:        cl.ID,
		UserID:    cl.Subject,
		FirstName: cl.FirstName,
		LastName:  cl.LastName,
		Email:     cl.Email,
		Role:      domainauth.Role(cl.Role),
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}
