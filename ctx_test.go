package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantID   string
		wantOK   bool
	}{
		{
			name: "should return identity when present in context",
			setupCtx: func() context.Context {
				return WithContext(context.Background(), &AuthenticatedContext{PrincipalID: "user123"})
			},
			wantID: "user123",
			wantOK: true,
		},
		{
			name: "should return false when no identity in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), authCtxKey, "not-an-identity")
			},
			wantOK: false,
		},
		{
			name: "should return false for a nil identity",
			setupCtx: func() context.Context {
				return WithContext(context.Background(), nil)
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromContext(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantID, got.PrincipalID)
			}
		})
	}
}

func TestNewAuthenticatedContext(t *testing.T) {
	exp := time.Date(2026, time.March, 1, 13, 0, 0, 0, time.UTC)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user123",
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		EmailAddress: "bob@example.com",
	}

	session := NewAuthenticatedContext(claims)
	require.NotNil(t, session)
	assert.Equal(t, "user123", session.PrincipalID)
	assert.Equal(t, "bob@example.com", session.Email)
	assert.Equal(t, "jti-1", session.TokenID)
	assert.True(t, exp.Equal(session.ExpiresAt))
	assert.Empty(t, session.Roles)

	assert.Nil(t, NewAuthenticatedContext(nil))
}

func TestAuthenticatedContext_HasRole(t *testing.T) {
	session := &AuthenticatedContext{Roles: []string{RoleNameAdmin, RoleNameEditor}}
	assert.True(t, session.HasRole(RoleNameAdmin))
	assert.False(t, session.HasRole(RoleNameViewer))
	assert.False(t, session.HasRole("admin"))

	var missing *AuthenticatedContext
	assert.False(t, missing.HasRole(RoleNameAdmin))
}
