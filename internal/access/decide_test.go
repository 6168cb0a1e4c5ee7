package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saas-dashboard/dashboard/internal/identity"
)

func who(role string, perms ...string) *identity.Identity {
	return &identity.Identity{ID: "1", Username: "u", Role: identity.ParseRole(role), RawRole: role, Permissions: identity.NewPermissions(perms...)}
}

func TestDecideLoadingAlwaysPending(t *testing.T) {
	for _, id := range []*identity.Identity{nil, who("SuperUser"), who("Guest")} {
		d := Decide(id, true, []identity.Role{identity.RoleAdmin}, []string{"x"})
		assert.Equal(t, Pending, d.Outcome)
	}
}

func TestDecideAbsentIdentityRedirectsToLogin(t *testing.T) {
	d := Decide(nil, false, nil, nil)
	assert.Equal(t, RedirectLogin, d.Outcome)
}

func TestDecideUnknownRoleFailsClosed(t *testing.T) {
	roles := []identity.Role{identity.RoleSuperUser, identity.RoleAdmin}
	for _, raw := range []string{"Owner", "", "admin", "SUPERUSER"} {
		d := Decide(who(raw), false, roles, nil)
		assert.Equal(t, RedirectDenied, d.Outcome, raw)
	}
}

func TestDecideEmptyRolesAdmitsAnyIdentity(t *testing.T) {
	assert.Equal(t, Render, Decide(who("Guest"), false, nil, nil).Outcome)
	assert.Equal(t, Render, Decide(who("Owner"), false, nil, nil).Outcome)
}

func TestDecideRoleMembership(t *testing.T) {
	roles := []identity.Role{identity.RoleSuperUser, identity.RoleAdmin, identity.RoleITRA}
	assert.Equal(t, Render, Decide(who("ITRA"), false, roles, nil).Outcome)
	assert.Equal(t, RedirectDenied, Decide(who("Operator"), false, roles, nil).Outcome)
}

func TestDecidePermissionOnlyGate(t *testing.T) {
	perms := []string{"users.edit", "users.delete"}
	assert.Equal(t, Render, Decide(who("User", "USERS.EDIT", "users.delete"), false, nil, perms).Outcome)

	d := Decide(who("User", "users.edit"), false, nil, perms)
	assert.Equal(t, RedirectDenied, d.Outcome)
	assert.Equal(t, []string{"users.delete"}, d.MissingPermissions)
}

func TestDecideRoleAndPermissionFailuresLookAlike(t *testing.T) {
	roles := []identity.Role{identity.RoleAdmin}
	perms := []string{"users.edit"}

	roleFail := Decide(who("User", "users.edit"), false, roles, perms)
	permFail := Decide(who("Admin"), false, roles, perms)
	bothFail := Decide(who("User"), false, roles, perms)

	assert.Equal(t, RedirectDenied, roleFail.Outcome)
	assert.Equal(t, roleFail.Outcome, permFail.Outcome)
	assert.Equal(t, roleFail.Outcome, bothFail.Outcome)
	assert.NotEmpty(t, bothFail.MissingRoles)
	assert.Empty(t, bothFail.MissingPermissions)
	assert.NotEmpty(t, permFail.MissingPermissions)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "redirect_denied", RedirectDenied.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
