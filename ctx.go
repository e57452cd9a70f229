package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// LocalsUserKey is where the HTTP layer stores the resolved *User.
const LocalsUserKey = "user"

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// GetRouterUser extracts the User from the router context locals.
func GetRouterUser(ctx router.Context) (*User, bool) {
	raw := ctx.Locals(LocalsUserKey)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok && user != nil
}

// CurrentUser resolves the signed-in user through provider, caching the
// answer in ctx locals for the rest of the request.
func CurrentUser(ctx router.Context, provider IdentityProvider) (*User, error) {
	if user, ok := GetRouterUser(ctx); ok {
		return user, nil
	}

	user, err := provider.GetUser(ctx.Context())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoCurrentUser
	}

	ctx.Locals(LocalsUserKey, user)
	return user, nil
}
