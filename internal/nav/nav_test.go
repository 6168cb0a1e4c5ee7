package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/identity"
)

func builder() *Builder {
	return NewBuilder(access.NewGuard(access.DefaultTable(), nil))
}

func TestSuperUserSeesEverythingButTeam(t *testing.T) {
	views := Views(builder().Build(&identity.Identity{ID: "1", Role: identity.RoleSuperUser}, "/"))
	assert.Contains(t, views, access.ViewSettings)
	assert.Contains(t, views, access.ViewSecureFiles)
	assert.NotContains(t, views, access.ViewTeam)
	assert.NotContains(t, views, access.ViewUsersEdit)
}

func TestITRASeesSecuritySectionOnly(t *testing.T) {
	sections := builder().Build(&identity.Identity{ID: "2", Role: identity.RoleITRA}, "/audit/2024")
	views := Views(sections)
	assert.Contains(t, views, access.ViewAudit)
	assert.NotContains(t, views, access.ViewUsers)
	assert.NotContains(t, views, access.ViewSettings)

	var active []string
	for _, s := range sections {
		for _, item := range s.Items {
			if item.Active {
				active = append(active, item.View)
			}
		}
	}
	assert.Equal(t, []string{access.ViewAudit}, active)
}

func TestUnknownRoleSeesOnlyOpenViews(t *testing.T) {
	views := Views(builder().Build(&identity.Identity{ID: "3", Role: identity.RoleUnknown}, "/"))
	require.NotEmpty(t, views)
	for _, v := range views {
		rule, ok := access.DefaultTable().Lookup(v)
		require.True(t, ok)
		assert.Empty(t, rule.Roles, v)
	}
}

func TestToolsOpenToEveryRole(t *testing.T) {
	for _, role := range identity.AllRoles() {
		views := Views(builder().Build(&identity.Identity{ID: "5", Role: role}, "/"))
		assert.Contains(t, views, access.ViewTools, role.String())
	}
}

func TestSectionsKeepTableOrder(t *testing.T) {
	sections := builder().Build(&identity.Identity{ID: "4", Role: identity.RoleAdmin}, "/")
	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{access.SectionMain, access.SectionManage, access.SectionSecure, access.SectionAccount}, titles)
}

func TestAnonymousHasNoNavigation(t *testing.T) {
	assert.Nil(t, builder().Build(nil, "/"))
}

func TestIsActive(t *testing.T) {
	assert.True(t, isActive("/users", "/users"))
	assert.True(t, isActive("/users", "/users/7/edit"))
	assert.False(t, isActive("/users", "/usersettings"))
}
