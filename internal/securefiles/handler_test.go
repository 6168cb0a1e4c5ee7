package securefiles_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/securefiles"
	"github.com/saas-dashboard/dashboard/internal/testing/webtest"
	_ "github.com/saas-dashboard/dashboard/testing"
)

func TestRowsMarkAccess(t *testing.T) {
	files := []backend.SecureFile{
		{Name: "a", AccessLevel: []string{"SuperUser", "ITRA"}},
		{Name: "b", AccessLevel: []string{"Admin"}},
		{Name: "c", AccessLevel: []string{"Wizard"}},
	}

	rows := securefiles.Rows(files, &identity.Identity{ID: "1", Role: identity.RoleITRA})
	require.Len(t, rows, 3)
	assert.True(t, rows[0].CanOpen)
	assert.False(t, rows[1].CanOpen)
	assert.False(t, rows[2].CanOpen)

	for _, row := range securefiles.Rows(files, &identity.Identity{ID: "2", Role: identity.RoleUnknown, RawRole: "Wizard"}) {
		assert.False(t, row.CanOpen, row.Name)
	}
	for _, row := range securefiles.Rows(files, nil) {
		assert.False(t, row.CanOpen, row.Name)
	}
}

func TestSecureFilesForAuditRoles(t *testing.T) {
	for _, tc := range []struct {
		user       string
		viewable   int
		restricted int
	}{
		{"root", 2, 0},
		{"admin", 1, 1},
		{"itra", 2, 0},
	} {
		t.Run(tc.user, func(t *testing.T) {
			h := webtest.New(t)
			h.Login(tc.user)

			res := h.Get("/secure-files")
			require.Equal(t, http.StatusOK, res.Status)
			assert.Contains(t, res.Body, "2 classified documents · access granted by role")
			assert.Contains(t, res.Body, "badge-top_secret")
			assert.Equal(t, tc.viewable, strings.Count(res.Body, ">Viewable<"))
			assert.Equal(t, tc.restricted, strings.Count(res.Body, ">Restricted<"))
		})
	}
}

func TestSecureFilesDeniedBeforeBackendCall(t *testing.T) {
	for _, user := range []string{"manager", "operator", "user", "guest"} {
		t.Run(user, func(t *testing.T) {
			h := webtest.New(t)
			h.Login(user)

			res := h.Get("/secure-files")
			require.Equal(t, http.StatusSeeOther, res.Status)
			assert.Equal(t, "/forbidden?view=secure-files", res.Location)
			assert.Empty(t, h.API.CallsTo(http.MethodGet, "/api/secure-files"))
		})
	}
}
