package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// ContextFromToken validates raw and builds the request scoped identity
func ContextFromToken(v TokenValidator, raw string) (*AuthenticatedContext, error) {
	if v == nil {
		return nil, ErrUnauthorized
	}

	claims, err := v.Validate(raw)
	if err != nil {
		return nil, err
	}

	return NewAuthenticatedContext(claims), nil
}
