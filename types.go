package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of a registered principal
type Identity interface {
	ID() string
	Username() string
	Email() string
	FullName() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Register(ctx context.Context, req RegisterRequest) (*PrincipalSummary, error)
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (*AuthenticatedContext, error)
}

// RoleAdministrator mutates the role set of a principal.
type RoleAdministrator interface {
	AssignRole(ctx context.Context, email, role string) error
	ChangeRole(ctx context.Context, email, role string) error
	RevokeRole(ctx context.Context, email, role string) error
	Roles(ctx context.Context, email string) ([]string, error)
}

// CredentialStore is the system of record for principals, password
// verifiers and role memberships. Implementations own their concurrency
// control; every call may block on I/O and must honor ctx.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User, password string) (*User, error)
	VerifyPassword(ctx context.Context, user *User, password string) (bool, error)
	GetRoles(ctx context.Context, user *User) ([]string, error)
	AddRole(ctx context.Context, user *User, role string) error
	RemoveRoles(ctx context.Context, user *User, roles []string) error
	// ReplaceRoles swaps the full role set in a single transaction.
	ReplaceRoles(ctx context.Context, user *User, roles []string) error
	RoleExists(ctx context.Context, role string) (bool, error)
	EnsureRoles(ctx context.Context, roles []string) error
}

// PasswordAuthenticator hashes and verifies passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() []byte
	GetPreviousSigningKeys() [][]byte
	GetTokenExpiration() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetPasswordMinLength() int
	GetDeclaredRoles() []string
	GetAdminRole() string
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + formatLine(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + formatLine(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + formatLine(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + formatLine(msg, args...))
}

func formatLine(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
