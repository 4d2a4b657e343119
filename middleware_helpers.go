package auth

import (
	"context"

	"github.com/goliatone/go-auth-core/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores the request identity built from claims and
// the resolved roles in the standard context.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims, roles []string) context.Context {
	var authCtx *AuthenticatedContext

	if authClaims, ok := claims.(AuthClaims); ok {
		authCtx = NewAuthenticatedContext(authClaims)
	} else if claims != nil {
		authCtx = &AuthenticatedContext{
			PrincipalID: claims.UserID(),
			Email:       claims.Email(),
		}
	}

	if authCtx == nil {
		return c
	}

	if roles != nil {
		authCtx.Roles = cloneRoles(roles)
	}

	return WithContext(c, authCtx)
}

// jwtwareValidator exposes a TokenValidator to the middleware
func jwtwareValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(raw)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
