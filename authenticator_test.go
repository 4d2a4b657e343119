package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-core"
)

func newUser(email string) *auth.User {
	now := time.Now().UTC()
	return &auth.User{
		ID:              uuid.New(),
		Username:        email,
		Email:           email,
		NormalizedEmail: auth.NormalizeEmail(email),
		PasswordHash:    "hash",
		CreatedAt:       &now,
	}
}

func newTestAuther(store auth.CredentialStore) (*auth.Auther, *recordingLogger, *recordingSink) {
	logger := &recordingLogger{}
	sink := &recordingSink{}
	auther := auth.NewAuthenticator(store, newMockConfig()).
		WithLogger(logger).
		WithActivitySink(sink)
	return auther, logger, sink
}

func TestAuther_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates principal and returns summary", func(t *testing.T) {
		store := &MockCredentialStore{}
		created := newUser("bob@example.com")
		store.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "bob@example.com" && u.Username == "bob@example.com" && u.FullName == "Bob"
		}), "secret1").Return(created, nil)

		auther, _, sink := newTestAuther(store)

		summary, err := auther.Register(ctx, auth.RegisterRequest{
			Email:    "  bob@example.com ",
			Password: "secret1",
			FullName: "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID.String(), summary.ID)
		assert.Equal(t, "bob@example.com", summary.Email)
		assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventRegisterSuccess}, sink.types())
		store.AssertExpectations(t)
	})

	t.Run("validation failures never reach the store", func(t *testing.T) {
		tests := []struct {
			name  string
			req   auth.RegisterRequest
			field string
		}{
			{name: "missing email", req: auth.RegisterRequest{Password: "secret1"}, field: "email"},
			{name: "invalid email", req: auth.RegisterRequest{Email: "not-an-email", Password: "secret1"}, field: "email"},
			{name: "short password", req: auth.RegisterRequest{Email: "bob@example.com", Password: "abc"}, field: "password"},
			{name: "empty password", req: auth.RegisterRequest{Email: "bob@example.com"}, field: "password"},
			{name: "password over 72 bytes", req: auth.RegisterRequest{Email: "bob@example.com", Password: strings.Repeat("p", 80)}, field: "password"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := &MockCredentialStore{}
				auther, _, sink := newTestAuther(store)

				_, err := auther.Register(ctx, tt.req)
				require.Error(t, err)
				assert.True(t, auth.IsKind(err, auth.KindValidation))

				var aerr *auth.Error
				require.True(t, errors.As(err, &aerr))
				fields, ok := aerr.Metadata["fields"].(map[string]string)
				require.True(t, ok)
				assert.Contains(t, fields, tt.field)

				assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventRegisterFailure}, sink.types())
				store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("Create", ctx, mock.Anything, "secret1").Return(nil, auth.ErrDuplicateEmail)

		auther, _, _ := newTestAuther(store)

		_, err := auther.Register(ctx, auth.RegisterRequest{Email: "bob@example.com", Password: "secret1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		assert.Equal(t, 409, auth.HTTPStatus(err))
	})

	t.Run("failing sink does not change the result", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("Create", ctx, mock.Anything, "secret1").Return(newUser("bob@example.com"), nil)

		logger := &recordingLogger{}
		auther := auth.NewAuthenticator(store, newMockConfig()).
			WithLogger(logger).
			WithActivitySink(auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
				return errors.New("sink down")
			}))

		summary, err := auther.Register(ctx, auth.RegisterRequest{Email: "bob@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.NotNil(t, summary)
		assert.True(t, logger.has("warn", "activity sink record error"))
	})

	t.Run("panicking sink does not change the result", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("Create", ctx, mock.Anything, "secret1").Return(newUser("bob@example.com"), nil)

		auther := auth.NewAuthenticator(store, newMockConfig()).
			WithLogger(&recordingLogger{}).
			WithActivitySink(auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
				panic("boom")
			}))

		summary, err := auther.Register(ctx, auth.RegisterRequest{Email: "bob@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.NotNil(t, summary)
	})
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		user := newUser("bob@example.com")
		store := &MockCredentialStore{}
		store.On("FindByEmail", ctx, "bob@example.com").Return(user, nil)
		store.On("VerifyPassword", ctx, user, "secret1").Return(true, nil)

		auther, _, sink := newTestAuther(store)

		token, err := auther.Login(ctx, "bob@example.com", "secret1")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auther.TokenService().Validate(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject())
		assert.Equal(t, "bob@example.com", claims.Email())
		assert.Equal(t, time.Hour, claims.Expires().Sub(claims.IssuedAt()))

		assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, sink.types())
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		user := newUser("bob@example.com")
		store := &MockCredentialStore{}
		store.On("FindByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrIdentityNotFound)
		store.On("FindByEmail", ctx, "bob@example.com").Return(user, nil)
		store.On("VerifyPassword", ctx, user, "wrong").Return(false, nil)

		auther, logger, sink := newTestAuther(store)

		_, unknownErr := auther.Login(ctx, "nobody@example.com", "secret1")
		_, wrongErr := auther.Login(ctx, "bob@example.com", "wrong")

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
		assert.Equal(t, auth.KindOf(unknownErr), auth.KindOf(wrongErr))
		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
		assert.Equal(t, 401, auth.HTTPStatus(wrongErr))

		// the failing stage is only visible in logs and events
		assert.True(t, logger.has("warn", "Login failed"))
		assert.Equal(t, "lookup", logger.argValue("Login failed", "stage"))
		assert.Equal(t, []auth.ActivityEventType{
			auth.ActivityEventLoginFailure,
			auth.ActivityEventLoginFailure,
		}, sink.types())
	})

	t.Run("store failures are surfaced", func(t *testing.T) {
		store := &MockCredentialStore{}
		storeErr := auth.TransientError(errors.New("connection refused"), "credential store: find user by email")
		store.On("FindByEmail", ctx, "bob@example.com").Return(nil, storeErr)

		auther, _, _ := newTestAuther(store)

		_, err := auther.Login(ctx, "bob@example.com", "secret1")
		require.Error(t, err)
		assert.True(t, auth.IsKind(err, auth.KindTransientStore))
		assert.False(t, errors.Is(err, auth.ErrInvalidCredentials))
	})

	t.Run("missing fields", func(t *testing.T) {
		store := &MockCredentialStore{}
		auther, _, _ := newTestAuther(store)

		_, err := auther.Login(ctx, "", "")
		require.Error(t, err)
		assert.True(t, auth.IsKind(err, auth.KindValidation))
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})
}

func TestAuther_SessionFromToken(t *testing.T) {
	ctx := context.Background()
	user := newUser("bob@example.com")
	store := &MockCredentialStore{}
	store.On("FindByEmail", ctx, "bob@example.com").Return(user, nil)
	store.On("VerifyPassword", ctx, user, "secret1").Return(true, nil)

	auther, _, _ := newTestAuther(store)

	token, err := auther.Login(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), session.PrincipalID)
	assert.Equal(t, "bob@example.com", session.Email)

	_, err = auther.SessionFromToken("garbage")
	require.Error(t, err)
	assert.True(t, auth.IsKind(err, auth.KindUnauthorized))
}

func TestAuther_WithPasswordPolicy(t *testing.T) {
	ctx := context.Background()
	store := &MockCredentialStore{}
	auther, _, _ := newTestAuther(store)
	auther.WithPasswordPolicy(auth.NewPasswordPolicy(10))

	_, err := auther.Register(ctx, auth.RegisterRequest{Email: "bob@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, auth.IsKind(err, auth.KindValidation))
}
