package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth-core/middleware/jwtware"
)

// RouteAuthenticator builds the request authorization gate. Tokens are
// checked on every request; the role set is read from the store, through
// the resolver, only on routes that require a role.
type RouteAuthenticator struct {
	validator    TokenValidator
	resolver     RoleResolver
	adminRole    string
	logger       Logger
	listeners    []ValidationListener
	ErrorHandler fiber.ErrorHandler
}

// NewRouteAuthenticator returns a gate. resolver may be nil when no route
// requires a role.
func NewRouteAuthenticator(validator TokenValidator, resolver RoleResolver, adminRole string) *RouteAuthenticator {
	if adminRole == "" {
		adminRole = RoleNameAdmin
	}

	a := &RouteAuthenticator{
		validator: validator,
		resolver:  resolver,
		adminRole: adminRole,
		logger:    defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler

	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.logger = normalizeLogger(logger)
	return a
}

// WithValidationListeners registers listeners run after token validation
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// ProtectedRoute requires a valid token
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	return jwtware.New(a.config(""))
}

// RequireRole requires a valid token and role in the current role set
func (a *RouteAuthenticator) RequireRole(role string) fiber.Handler {
	return jwtware.New(a.config(role))
}

// AdminOnly requires the administrative role
func (a *RouteAuthenticator) AdminOnly() fiber.Handler {
	return a.RequireRole(a.adminRole)
}

// AdminRole returns the role required by AdminOnly
func (a *RouteAuthenticator) AdminRole() string {
	return a.adminRole
}

func (a *RouteAuthenticator) config(role string) jwtware.Config {
	cfg := jwtware.Config{
		ErrorHandler:    a.ErrorHandler,
		TokenValidator:  jwtwareValidator(a.validator),
		ContextEnricher: ContextEnricherAdapter,
		Logger:          a.logger,
		RequiredRole:    role,
	}

	if a.resolver != nil {
		cfg.RoleResolver = a.resolver
	}

	RegisterValidationListeners(&cfg, a.listeners...)

	return cfg
}

func (a *RouteAuthenticator) defaultErrHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jwtware.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": ErrForbidden.Message,
		})
	case errors.Is(err, jwtware.ErrRoleLookup) && IsKind(err, KindTransientStore):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Service unavailable",
		})
	default:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": ErrUnauthorized.Message,
		})
	}
}
