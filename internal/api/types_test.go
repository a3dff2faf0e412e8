package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]Permission
	}{
		{"empty", "", map[string]Permission{}},
		{"single read", "alice:r", map[string]Permission{"alice": PermissionRead}},
		{"mixed", "alice:r, bob:w", map[string]Permission{"alice": PermissionRead, "bob": PermissionWrite}},
		{"bad level", "alice:x", map[string]Permission{}},
		{"missing colon", "alice:r,bob", map[string]Permission{}},
		{"missing user", ":w", map[string]Permission{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePermissions(tt.in))
		})
	}
}

func TestUser_Permissions(t *testing.T) {
	u := User{
		Username:           "alice",
		ProjectPermissions: map[string]Permission{"1": PermissionWrite, "2": PermissionRead},
	}

	assert.True(t, u.LoggedIn())
	assert.True(t, u.CanWrite(1))
	assert.False(t, u.CanWrite(2))
	assert.False(t, u.CanWrite(3))

	p, ok := u.PermissionFor(2)
	assert.True(t, ok)
	assert.Equal(t, PermissionRead, p)

	assert.False(t, User{}.LoggedIn())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Credentials{Username: "a"}.Validate(), ErrMissingFields)
	assert.NoError(t, Credentials{Username: "a", Password: "b"}.Validate())

	assert.ErrorIs(t, NewDocument{Name: "n", Text: "t"}.Validate(), ErrMissingFields)
	assert.NoError(t, NewDocument{Project: "1", Name: "n", Text: "t"}.Validate())

	assert.ErrorIs(t, NewProject{Permissions: VisibilityRead}.Validate(), ErrMissingFields)
	assert.ErrorIs(t, NewProject{Name: "p", Permissions: VisibilityCustom}.Validate(), ErrInvalidCustomPermissions)
	assert.NoError(t, NewProject{
		Name:              "p",
		Permissions:       VisibilityCustom,
		CustomPermissions: ParsePermissions("bob:w"),
	}.Validate())
}
