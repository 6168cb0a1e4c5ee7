package shared

import (
	"context"

	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/session"
)

type (
	sessionContextKey  struct{}
	clientContextKey   struct{}
	identityContextKey struct{}
)

// ContextWithSession stores the browser session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the browser session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithClient stores the backend client bundle bound to the browser session.
func ContextWithClient(ctx context.Context, c *session.Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFromContext extracts the client bundle, or nil.
func ClientFromContext(ctx context.Context) *session.Client {
	c, _ := ctx.Value(clientContextKey{}).(*session.Client)
	return c
}

// ContextWithIdentity stores the identity admitted by the access guard.
func ContextWithIdentity(ctx context.Context, who *identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, who)
}

// IdentityFromContext returns the admitted identity, or nil.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	who, _ := ctx.Value(identityContextKey{}).(*identity.Identity)
	return who
}
