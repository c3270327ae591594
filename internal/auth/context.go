package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// UserID returns the caller's id, or "" when the request is unauthenticated.
func UserID(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}
