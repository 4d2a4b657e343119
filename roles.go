package auth

import (
	"strings"

	"github.com/samber/lo"
)

const (
	// RoleNameAdmin grants access to admin-only routes, including role administration
	RoleNameAdmin = "Admin"
	// RoleNameEditor manages content
	RoleNameEditor = "Editor"
	// RoleNameViewer reads content
	RoleNameViewer = "Viewer"
)

// DefaultRoles returns the roles declared when none are configured
func DefaultRoles() []string {
	return []string{RoleNameAdmin, RoleNameEditor, RoleNameViewer}
}

// RoleRegistry is the set of roles declared at process start. It is
// immutable after construction. Names are case sensitive.
type RoleRegistry struct {
	names []string
	index map[string]struct{}
}

// NewRoleRegistry builds a registry, dropping blanks and duplicates
func NewRoleRegistry(names ...string) *RoleRegistry {
	clean := NormalizeRoles(names)
	if len(clean) == 0 {
		clean = DefaultRoles()
	}

	index := make(map[string]struct{}, len(clean))
	for _, name := range clean {
		index[name] = struct{}{}
	}

	return &RoleRegistry{names: clean, index: index}
}

// IsDeclared reports whether role was declared
func (r *RoleRegistry) IsDeclared(role string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[role]
	return ok
}

// Names returns the declared roles in declaration order
func (r *RoleRegistry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// NormalizeRoles trims names, drops blanks and removes duplicates keeping
// the first occurrence.
func NormalizeRoles(names []string) []string {
	trimmed := lo.Map(names, func(name string, _ int) string {
		return strings.TrimSpace(name)
	})
	return lo.Uniq(lo.Compact(trimmed))
}
