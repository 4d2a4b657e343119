package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterRequest holds the registration input
type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"full_name" form:"full_name"`
	Username string `json:"username" form:"username"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate(policy PasswordPolicy) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 256), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Password, policy.Rules()...),
	)
}

// LoginRequest holds the login input
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type Auther struct {
	store          CredentialStore
	cfg            Config
	tokenService   TokenService
	ownsTokens     bool
	passwordPolicy PasswordPolicy
	logger         Logger
	activitySink   ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator backed by store. The token
// service and password policy are built from cfg.
func NewAuthenticator(store CredentialStore, cfg Config) *Auther {
	logger := Logger(defLogger{})
	return &Auther{
		store:          store,
		cfg:            cfg,
		tokenService:   NewTokenServiceFromConfig(cfg, logger),
		ownsTokens:     true,
		passwordPolicy: NewPasswordPolicy(cfg.GetPasswordMinLength()),
		logger:         logger,
		activitySink:   noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	if s.ownsTokens && s.cfg != nil {
		s.tokenService = NewTokenServiceFromConfig(s.cfg, s.logger)
	}
	return s
}

// WithTokenService replaces the token service built from config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
		s.ownsTokens = false
	}
	return s
}

// WithPasswordPolicy overrides the password policy
func (s *Auther) WithPasswordPolicy(policy PasswordPolicy) *Auther {
	s.passwordPolicy = NewPasswordPolicy(policy.MinLength)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates a principal. It never issues a token.
func (s *Auther) Register(ctx context.Context, req RegisterRequest) (*PrincipalSummary, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Username == "" {
		req.Username = req.Email
	}

	if err := req.Validate(s.passwordPolicy); err != nil {
		verr := ValidationError(err)
		s.logger.Warn("Register validation failed", "email", req.Email, "error", err)
		s.emit(ctx, ActivityEventRegisterFailure, ActorRef{Type: "anonymous"}, "", map[string]any{
			"email":  req.Email,
			"reason": string(KindValidation),
		})
		return nil, verr
	}

	user := &User{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
	}

	created, err := s.store.Create(ctx, user, req.Password)
	if err != nil {
		s.logger.Warn("Register failed", "email", req.Email, "kind", string(KindOf(err)), "error", err)
		s.emit(ctx, ActivityEventRegisterFailure, ActorRef{Type: "anonymous"}, "", map[string]any{
			"email":  req.Email,
			"reason": string(KindOf(err)),
			"error":  err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Register success", "user_id", created.ID.String(), "email", created.Email)
	s.emit(ctx, ActivityEventRegisterSuccess, ActorRef{Type: "anonymous"}, created.ID.String(), map[string]any{
		"email": created.Email,
	})

	return created.Summary(), nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords return the same ErrInvalidCredentials; the failing stage is
// only recorded in logs and activity events.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	if err := (LoginRequest{Email: email, Password: password}).Validate(); err != nil {
		s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email":  email,
			"reason": string(KindValidation),
		})
		return "", ValidationError(err)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if IsKind(err, KindNotFound) {
			s.logger.Warn("Login failed", "email", email, "stage", "lookup")
			s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"email":  email,
				"reason": "unknown_email",
			})
			return "", ErrInvalidCredentials
		}
		s.logger.Error("Login lookup error", "email", email, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email":  email,
			"reason": string(KindOf(err)),
			"error":  err.Error(),
		})
		return "", err
	}

	ok, err := s.store.VerifyPassword(ctx, user, password)
	if err != nil {
		s.logger.Error("Login verify password error", "user_id", user.ID.String(), "error", err)
		s.emit(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"email":  email,
			"reason": string(KindOf(err)),
			"error":  err.Error(),
		})
		return "", err
	}

	if !ok {
		s.logger.Warn("Login failed", "email", email, "stage", "password")
		s.emit(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"email":  email,
			"reason": "password_mismatch",
		})
		return "", ErrInvalidCredentials
	}

	token, err := s.tokenService.Generate(user.AsIdentity())
	if err != nil {
		s.logger.Error("Login token generation error", "user_id", user.ID.String(), "error", err)
		s.emit(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"email":  email,
			"reason": string(KindOf(err)),
			"error":  err.Error(),
		})
		return "", err
	}

	s.logger.Info("Login success", "user_id", user.ID.String())
	s.emit(ctx, ActivityEventLoginSuccess, actorFromUser(user), user.ID.String(), map[string]any{
		"email": email,
	})

	return token, nil
}

// SessionFromToken validates a raw token and returns the request identity
func (s *Auther) SessionFromToken(raw string) (*AuthenticatedContext, error) {
	auth, err := ContextFromToken(s.tokenService, raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return auth, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	})
}

func actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: user.ID.String(), Type: "user"}
}
