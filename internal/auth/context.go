package auth

import "context"

type contextKey struct{}

// WithEmail stores the authenticated identity on the request context.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// EmailFrom returns the authenticated identity, or "" if the request did not
// pass through the session middleware.
func EmailFrom(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}
