package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-core"
)

func TestRoleRegistry(t *testing.T) {
	t.Run("defaults when nothing is declared", func(t *testing.T) {
		reg := auth.NewRoleRegistry()
		assert.Equal(t, []string{auth.RoleNameAdmin, auth.RoleNameEditor, auth.RoleNameViewer}, reg.Names())
	})

	t.Run("keeps declaration order and drops blanks and duplicates", func(t *testing.T) {
		reg := auth.NewRoleRegistry(" Owner ", "", "Member", "Owner")
		assert.Equal(t, []string{"Owner", "Member"}, reg.Names())
		assert.True(t, reg.IsDeclared("Owner"))
		assert.False(t, reg.IsDeclared(auth.RoleNameAdmin))
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		reg := auth.NewRoleRegistry(auth.DefaultRoles()...)
		assert.True(t, reg.IsDeclared("Admin"))
		assert.False(t, reg.IsDeclared("admin"))
	})

	t.Run("names cannot be mutated through the accessor", func(t *testing.T) {
		reg := auth.NewRoleRegistry(auth.DefaultRoles()...)
		names := reg.Names()
		names[0] = "Changed"
		assert.Equal(t, auth.RoleNameAdmin, reg.Names()[0])
	})

	t.Run("nil registry declares nothing", func(t *testing.T) {
		var reg *auth.RoleRegistry
		assert.False(t, reg.IsDeclared(auth.RoleNameAdmin))
		assert.Nil(t, reg.Names())
	})
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name      string
		minLength int
		password  string
		wantErr   bool
	}{
		{name: "meets default minimum", minLength: 0, password: "secret", wantErr: false},
		{name: "below default minimum", minLength: 0, password: "short", wantErr: true},
		{name: "empty", minLength: 6, password: "", wantErr: true},
		{name: "custom minimum", minLength: 10, password: "secret1234", wantErr: false},
		{name: "below custom minimum", minLength: 10, password: "secret123", wantErr: true},
		{name: "counts runes not bytes", minLength: 6, password: "pässwö", wantErr: false},
		{name: "no composition rules", minLength: 6, password: "aaaaaa", wantErr: false},
		{name: "at the bcrypt limit", minLength: 6, password: strings.Repeat("p", auth.MaxPasswordBytes), wantErr: false},
		{name: "over the bcrypt limit", minLength: 6, password: strings.Repeat("p", auth.MaxPasswordBytes+1), wantErr: true},
		{name: "limit counts bytes", minLength: 6, password: strings.Repeat("ö", 40), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.NewPasswordPolicy(tt.minLength).Validate(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, auth.DefaultPasswordMinLength, auth.NewPasswordPolicy(-1).MinLength)
}
