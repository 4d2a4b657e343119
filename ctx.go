package auth

import (
	"context"
	"slices"
	"time"
)

var authCtxKey = &contextKey{"auth"}

type contextKey struct {
	name string
}

// AuthenticatedContext is the per request identity derived from a
// validated token. Roles are only populated when a route resolved them.
type AuthenticatedContext struct {
	PrincipalID string    `json:"userId"`
	Email       string    `json:"email"`
	TokenID     string    `json:"-"`
	ExpiresAt   time.Time `json:"-"`
	Roles       []string  `json:"roles,omitempty"`
}

// NewAuthenticatedContext builds the request identity from claims
func NewAuthenticatedContext(claims AuthClaims) *AuthenticatedContext {
	if claims == nil {
		return nil
	}
	return &AuthenticatedContext{
		PrincipalID: claims.UserID(),
		Email:       claims.Email(),
		TokenID:     claims.TokenID(),
		ExpiresAt:   claims.Expires(),
	}
}

// HasRole reports whether the resolved role set contains role
func (a *AuthenticatedContext) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles, role)
}

// WithContext sets the AuthenticatedContext in the given context
func WithContext(ctx context.Context, auth *AuthenticatedContext) context.Context {
	return context.WithValue(ctx, authCtxKey, auth)
}

// FromContext finds the AuthenticatedContext in the context
func FromContext(ctx context.Context) (*AuthenticatedContext, bool) {
	raw, ok := ctx.Value(authCtxKey).(*AuthenticatedContext)
	return raw, ok && raw != nil
}
