package protocol

import (
	"context"

	"github.com/bdobrica/Ruriko/internal/hub/auth"
)

type sessionKey struct{}

// Session is the per-request state every handler needs: who is calling,
// and which workspace they belong to.
type Session struct {
	Identity *auth.Identity
}

// WithSession returns a child context carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext extracts the Session stored by WithSession, or nil
// if absent.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// RequireIdentity is a convenience used by handlers that cannot proceed
// without an authenticated caller.
func RequireIdentity(ctx context.Context) (*auth.Identity, error) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.Identity == nil {
		return nil, NewHandlerError(CodeInvalidRequest, "no authenticated session")
	}
	return sess.Identity, nil
}
