package anonauth

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the resolved Session in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the resolved session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// SubjectFromContext is a convenience accessor for the resolved subject id.
func SubjectFromContext(ctx context.Context) (string, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return session.SubjectID, true
}
