package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiration is the lifetime of issued tokens
const DefaultTokenExpiration = time.Hour

// TokenService issues and validates signed tokens
type TokenService interface {
	TokenValidator
	Issue(principalID, email string) (string, error)
	Generate(identity Identity) (string, error)
}

// TokenServiceImpl implements the TokenService interface using HS256
type TokenServiceImpl struct {
	current         SigningKey
	keys            *keyfunc.JWKS
	tokenExpiration time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithPreviousSigningKeys keeps retired secrets around for validation
// only, so tokens issued before a rotation stay valid until they expire.
func WithPreviousSigningKeys(secrets ...[]byte) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		given := map[string]keyfunc.GivenKey{
			ts.current.ID: hmacGivenKey(ts.current.Secret),
		}
		for _, secret := range secrets {
			if len(secret) == 0 {
				continue
			}
			key := NewSigningKey(secret)
			if _, ok := given[key.ID]; ok {
				continue
			}
			given[key.ID] = hmacGivenKey(key.Secret)
		}
		ts.keys = keyfunc.NewGiven(given)
	}
}

// WithTokenClock overrides the clock used for issuance and expiry checks
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance. The signing key is
// copied and never mutated afterwards, so the service is safe for
// concurrent use.
func NewTokenService(signingKey []byte, tokenExpiration time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger, opts ...TokenServiceOption) *TokenServiceImpl {
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	secret := make([]byte, len(signingKey))
	copy(secret, signingKey)
	current := NewSigningKey(secret)

	ts := &TokenServiceImpl{
		current:         current,
		keys:            keyfunc.NewGiven(map[string]keyfunc.GivenKey{current.ID: hmacGivenKey(secret)}),
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          normalizeLogger(logger),
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// NewTokenServiceFromConfig builds a TokenService from Config
func NewTokenServiceFromConfig(cfg Config, logger Logger, opts ...TokenServiceOption) *TokenServiceImpl {
	opts = append([]TokenServiceOption{}, opts...)
	if prev := cfg.GetPreviousSigningKeys(); len(prev) > 0 {
		opts = append([]TokenServiceOption{WithPreviousSigningKeys(prev...)}, opts...)
	}

	return NewTokenService(
		cfg.GetSigningKey(),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
		opts...,
	)
}

// Issue builds a token for the principal. Every call yields a distinct
// token: issued-at, expiry and jti differ between calls.
func (ts *TokenServiceImpl) Issue(principalID, email string) (string, error) {
	if strings.TrimSpace(principalID) == "" {
		return "", NewError(KindValidation, "principal id is required")
	}

	now := ts.now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principalID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenExpiration)),
		},
		EmailAddress: email,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// Generate issues a token for the given identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", NewError(KindValidation, "identity is required")
	}
	return ts.Issue(identity.ID(), identity.Email())
}

// SignClaims signs claims with the current signing key
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", NewError(KindInternal, "claims must not be nil")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.current.ID

	signedString, err := token.SignedString(ts.current.Secret)
	if err != nil {
		return "", WrapError(err, KindInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// It never contacts the credential store.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMalformed
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		// tokens are issued with every configured audience; the first one
		// is the audience this service expects
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.lookupKey, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, WrapError(err, ErrTokenMalformed.Kind, ErrTokenMalformed.Message)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		if claims.Subject() == "" {
			return nil, ErrTokenMalformed
		}
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenServiceImpl) lookupKey(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		ts.logger.Warn("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}

	if _, ok := t.Header["kid"]; !ok {
		return ts.current.Secret, nil
	}

	return ts.keys.Keyfunc(t)
}

func hmacGivenKey(secret []byte) keyfunc.GivenKey {
	return keyfunc.NewGivenCustom(secret, keyfunc.GivenKeyOptions{
		Algorithm: jwt.SigningMethodHS256.Alg(),
	})
}
