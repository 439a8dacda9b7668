package httpx

import (
	"context"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
)

type sessionKey struct{}

// requestInfo lets handlers deeper in the chain report back to the access log.
type requestInfo struct {
	userID string
	route  string
}

type requestInfoKey struct{}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// WithSession attaches session to ctx. A nil session leaves ctx as is.
func WithSession(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.userID = session.UserID
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session installed by the auth middleware.
func SessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	session, _ := ctx.Value(sessionKey{}).(*domainauth.Session)
	return session, session != nil
}

// ActorFromContext returns the actor for the request. Without a session it is the zero
// Actor, which services reject as unauthenticated.
func ActorFromContext(ctx context.Context) domainauth.Actor {
	if s, ok := SessionFromContext(ctx); ok {
		return s.Actor()
	}
	return domainauth.Actor{}
}
