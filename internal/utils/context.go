package utils

import "context"

type authenticatedUserKey struct{}

// WithAuthenticatedUser returns a copy of ctx carrying user
func WithAuthenticatedUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	return context.WithValue(ctx, authenticatedUserKey{}, user)
}

// GetAuthenticatedUser retrieves the caller attached by WithAuthenticatedUser
func GetAuthenticatedUser(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(authenticatedUserKey{}).(*AuthenticatedUser)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
