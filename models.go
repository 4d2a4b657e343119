package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the principal model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Username        string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email           string     `bun:"email,notnull" json:"email,omitempty"`
	NormalizedEmail string     `bun:"normalized_email,notnull,unique" json:"-"`
	FullName        string     `bun:"full_name,notnull" json:"full_name"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Role is a declared authorization scope
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	Name          string     `bun:"name,pk" json:"name"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// UserRole is a role membership
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id"`
	RoleName      string     `bun:"role_name,pk" json:"role_name"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// PrincipalSummary is the confirmation returned after registration
type PrincipalSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// NormalizeEmail returns the canonical form used for uniqueness checks
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Summary returns the public view of the user
func (u *User) Summary() *PrincipalSummary {
	if u == nil {
		return nil
	}
	return &PrincipalSummary{
		ID:       u.ID.String(),
		Email:    u.Email,
		Username: u.Username,
		FullName: u.FullName,
	}
}

type userIdentity struct {
	user *User
}

// AsIdentity exposes the user through the Identity interface
func (u *User) AsIdentity() Identity {
	return userIdentity{user: u}
}

func (i userIdentity) ID() string       { return i.user.ID.String() }
func (i userIdentity) Username() string { return i.user.Username }
func (i userIdentity) Email() string    { return i.user.Email }
func (i userIdentity) FullName() string { return i.user.FullName }
