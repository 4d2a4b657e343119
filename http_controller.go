package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// RegisterAuthRoutes mounts the auth endpoints on router and returns the
// controller serving them.
func RegisterAuthRoutes(router fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	gate := controller.Gate

	router.Post(controller.Routes.Register, controller.RegistrationCreate).Name("auth.register")
	router.Post(controller.Routes.Login, controller.LoginPost).Name("auth.login")
	router.Get(controller.Routes.Me, gate.ProtectedRoute(), controller.Me).Name("auth.me")
	router.Get(controller.Routes.Roles, gate.ProtectedRoute(), controller.DeclaredRoles).Name("auth.roles")

	router.Post(controller.Routes.AssignRole, gate.AdminOnly(), controller.AssignRole).Name("auth.role.assign")
	router.Post(controller.Routes.ChangeRole, gate.AdminOnly(), controller.ChangeRole).Name("auth.role.change")
	router.Post(controller.Routes.RevokeRole, gate.AdminOnly(), controller.RevokeRole).Name("auth.role.revoke")
	router.Get(controller.Routes.Roles+"/:email", gate.AdminOnly(), controller.PrincipalRoles).Name("auth.role.list")

	return controller
}

type AuthControllerRoutes struct {
	Register   string
	Login      string
	Me         string
	Roles      string
	AssignRole string
	ChangeRole string
	RevokeRole string
}

type AuthController struct {
	Logger   Logger
	Auther   Authenticator
	RoleAdm  RoleAdministrator
	Registry *RoleRegistry
	Gate     *RouteAuthenticator
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRoleAdministrator(adm RoleAdministrator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.RoleAdm = adm
		return c
	}
}

func WithRoleRegistry(registry *RoleRegistry) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registry = registry
		return c
	}
}

func WithRouteAuthenticator(gate *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Gate = gate
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:   "/register",
			Login:      "/login",
			Me:         "/me",
			Roles:      "/roles",
			AssignRole: "/assign-role",
			ChangeRole: "/change-role",
			RevokeRole: "/revoke-role",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.RoleAdm == nil {
		panic("Missing RoleAdministrator in auth controller...")
	}

	if c.Gate == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Registry == nil {
		c.Registry = NewRoleRegistry()
	}

	return c
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := RegisterRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.errorResponse(c, ErrUnableToParseData)
	}

	summary, err := a.Auther.Register(c.UserContext(), payload)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    summary,
	})
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.errorResponse(c, ErrUnableToParseData)
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

// Me returns the request identity
func (a *AuthController) Me(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.errorResponse(c, ErrUnauthorized)
	}

	return c.JSON(fiber.Map{
		"userId": session.PrincipalID,
		"email":  session.Email,
	})
}

func (a *AuthController) DeclaredRoles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"roles": a.Registry.Names(),
	})
}

func (a *AuthController) AssignRole(c *fiber.Ctx) error {
	payload := RoleAssignRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.errorResponse(c, ErrUnableToParseData)
	}

	if err := a.RoleAdm.AssignRole(c.UserContext(), payload.Email, payload.Role); err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role assigned successfully",
	})
}

func (a *AuthController) ChangeRole(c *fiber.Ctx) error {
	payload := RoleAssignRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.errorResponse(c, ErrUnableToParseData)
	}

	if err := a.RoleAdm.ChangeRole(c.UserContext(), payload.Email, payload.Role); err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User " + payload.Email + " now has role " + payload.Role,
	})
}

func (a *AuthController) RevokeRole(c *fiber.Ctx) error {
	payload := RoleAssignRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.errorResponse(c, ErrUnableToParseData)
	}

	if err := a.RoleAdm.RevokeRole(c.UserContext(), payload.Email, payload.Role); err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role revoked successfully",
	})
}

func (a *AuthController) PrincipalRoles(c *fiber.Ctx) error {
	email := c.Params("email")

	roles, err := a.RoleAdm.Roles(c.UserContext(), email)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"email": email,
		"roles": roles,
	})
}

// errorResponse renders err with the status of its kind. Internal errors
// never expose their message.
func (a *AuthController) errorResponse(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	kind := KindOf(err)

	var aerr *Error
	if !errors.As(err, &aerr) || kind == KindInternal {
		a.Logger.Error("Request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
			"kind":  string(KindInternal),
		})
	}

	body := fiber.Map{
		"error": aerr.Message,
		"kind":  string(kind),
	}

	if fields, ok := aerr.Metadata["fields"]; ok {
		body["fields"] = fields
	}

	if kind == KindTransientStore {
		a.Logger.Error("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(body)
}
