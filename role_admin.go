package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RoleAssignRequest holds a role mutation input
type RoleAssignRequest struct {
	Email string `json:"email" form:"email"`
	Role  string `json:"role" form:"role"`
}

// Validate will run validation rules
func (r RoleAssignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.Required, validation.Length(1, 256)),
	)
}

// RoleCacheInvalidator drops cached role sets after a mutation
type RoleCacheInvalidator interface {
	Invalidate(principalID string)
}

// RoleAdmin mutates principal role sets. After the principal lookup, role
// names are checked against the declared registry before any mutation; the
// store rejects undeclared roles as well.
type RoleAdmin struct {
	store        CredentialStore
	registry     *RoleRegistry
	logger       Logger
	activitySink ActivitySink
	invalidators []RoleCacheInvalidator
}

var _ RoleAdministrator = (*RoleAdmin)(nil)

// NewRoleAdmin returns a RoleAdmin for the store and declared roles
func NewRoleAdmin(store CredentialStore, registry *RoleRegistry) *RoleAdmin {
	if registry == nil {
		registry = NewRoleRegistry()
	}
	return &RoleAdmin{
		store:        store,
		registry:     registry,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (r *RoleAdmin) WithLogger(logger Logger) *RoleAdmin {
	r.logger = normalizeLogger(logger)
	return r
}

// WithActivitySink configures an ActivitySink for role events
func (r *RoleAdmin) WithActivitySink(sink ActivitySink) *RoleAdmin {
	r.activitySink = normalizeActivitySink(sink)
	return r
}

// WithInvalidator registers a cache to purge after each mutation
func (r *RoleAdmin) WithInvalidator(inv RoleCacheInvalidator) *RoleAdmin {
	if inv != nil {
		r.invalidators = append(r.invalidators, inv)
	}
	return r
}

// Registry returns the declared roles
func (r *RoleAdmin) Registry() *RoleRegistry {
	return r.registry
}

// AssignRole adds role to the principal's role set. Assigning a held
// role is a successful no-op.
func (r *RoleAdmin) AssignRole(ctx context.Context, email, role string) error {
	user, role, err := r.prepare(ctx, email, role)
	if err != nil {
		r.fail(ctx, ActivityEventRoleAssigned, email, role, err)
		return err
	}

	if err := r.store.AddRole(ctx, user, role); err != nil {
		r.fail(ctx, ActivityEventRoleAssigned, email, role, err)
		return err
	}

	r.invalidate(user)
	r.logger.Info("Role assigned", "user_id", user.ID.String(), "role", role)
	r.emit(ctx, ActivityEventRoleAssigned, user.ID.String(), map[string]any{
		"email": user.Email,
		"role":  role,
	})

	return nil
}

// ChangeRole replaces the principal's whole role set with role. The
// replacement is a single store transaction.
func (r *RoleAdmin) ChangeRole(ctx context.Context, email, role string) error {
	user, role, err := r.prepare(ctx, email, role)
	if err != nil {
		r.fail(ctx, ActivityEventRoleChanged, email, role, err)
		return err
	}

	if err := r.store.ReplaceRoles(ctx, user, []string{role}); err != nil {
		r.fail(ctx, ActivityEventRoleChanged, email, role, err)
		return err
	}

	r.invalidate(user)
	r.logger.Info("Role changed", "user_id", user.ID.String(), "role", role)
	r.emit(ctx, ActivityEventRoleChanged, user.ID.String(), map[string]any{
		"email": user.Email,
		"role":  role,
	})

	return nil
}

// RevokeRole removes role from the principal's role set. Revoking a role
// that is not held is a successful no-op.
func (r *RoleAdmin) RevokeRole(ctx context.Context, email, role string) error {
	user, role, err := r.prepare(ctx, email, role)
	if err != nil {
		r.fail(ctx, ActivityEventRoleRevoked, email, role, err)
		return err
	}

	if err := r.store.RemoveRoles(ctx, user, []string{role}); err != nil {
		r.fail(ctx, ActivityEventRoleRevoked, email, role, err)
		return err
	}

	r.invalidate(user)
	r.logger.Info("Role revoked", "user_id", user.ID.String(), "role", role)
	r.emit(ctx, ActivityEventRoleRevoked, user.ID.String(), map[string]any{
		"email": user.Email,
		"role":  role,
	})

	return nil
}

// Roles returns the principal's current role set
func (r *RoleAdmin) Roles(ctx context.Context, email string) ([]string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewError(KindValidation, "email is required")
	}

	user, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return r.store.GetRoles(ctx, user)
}

func (r *RoleAdmin) prepare(ctx context.Context, email, role string) (*User, string, error) {
	req := RoleAssignRequest{
		Email: strings.TrimSpace(email),
		Role:  strings.TrimSpace(role),
	}

	if err := req.Validate(); err != nil {
		return nil, req.Role, ValidationError(err)
	}

	user, err := r.store.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, req.Role, err
	}

	if !r.registry.IsDeclared(req.Role) {
		return nil, req.Role, ErrUnknownRole.Clone().WithMetadata(map[string]any{
			"role":     req.Role,
			"declared": r.registry.Names(),
		})
	}

	return user, req.Role, nil
}

func (r *RoleAdmin) invalidate(user *User) {
	for _, inv := range r.invalidators {
		inv.Invalidate(user.ID.String())
	}
}

func (r *RoleAdmin) fail(ctx context.Context, op ActivityEventType, email, role string, err error) {
	r.logger.Warn("Role mutation failed", "op", string(op), "email", email, "role", role, "kind", string(KindOf(err)), "error", err)
	r.emit(ctx, ActivityEventRoleFailure, "", map[string]any{
		"op":     string(op),
		"email":  email,
		"role":   role,
		"reason": string(KindOf(err)),
	})
}

func (r *RoleAdmin) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	recordActivity(ctx, r.activitySink, r.logger, ActivityEvent{
		EventType: eventType,
		Actor:     actorFromContext(ctx),
		UserID:    userID,
		Metadata:  metadata,
	})
}

func actorFromContext(ctx context.Context) ActorRef {
	if auth, ok := FromContext(ctx); ok {
		return ActorRef{ID: auth.PrincipalID, Type: "user"}
	}
	return ActorRef{Type: "system"}
}
