package pages_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/testing/webtest"
	_ "github.com/saas-dashboard/dashboard/testing"
)

func TestRootRedirectsToDashboard(t *testing.T) {
	h := webtest.New(t)

	res := h.Get("/")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/dashboard", res.Location)
}

func TestDashboardCardsFollowRole(t *testing.T) {
	cases := []struct {
		user    string
		present []string
		absent  []string
		calls   []string
	}{
		{"root", []string{`href="/users"`, "Open tasks", "Classified documents"}, nil, []string{"/api/users", "/api/tasks", "/api/secure-files"}},
		{"manager", []string{"Open tasks", `class="card stat" href="/team"`}, []string{"Classified documents", `href="/users"`}, []string{"/api/tasks"}},
		{"itra", []string{"Classified documents"}, []string{"Open tasks"}, []string{"/api/secure-files"}},
		{"guest", nil, []string{"Open tasks", "Classified documents", `class="card stat"`}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.user, func(t *testing.T) {
			h := webtest.New(t)
			h.Login(tc.user)

			res := h.Get("/dashboard")
			require.Equal(t, http.StatusOK, res.Status)
			for _, s := range tc.present {
				assert.Contains(t, res.Body, s)
			}
			for _, s := range tc.absent {
				assert.NotContains(t, res.Body, s)
			}
			for _, path := range []string{"/api/users", "/api/tasks", "/api/secure-files"} {
				called := len(h.API.CallsTo(http.MethodGet, path)) > 0
				want := false
				for _, c := range tc.calls {
					want = want || c == path
				}
				assert.Equal(t, want, called, path)
			}
		})
	}
}

func TestForbiddenExplainsRequirements(t *testing.T) {
	h := webtest.New(t)
	h.Login("guest")

	res := h.Get("/forbidden?view=users.delete")
	require.Equal(t, http.StatusForbidden, res.Status)
	assert.Contains(t, res.Body, "Delete user")
	assert.Contains(t, res.Body, "SuperUser, Admin")
	assert.Contains(t, res.Body, "user:delete")
	assert.Contains(t, res.Body, "Signed in as guest (Guest)")

	res = h.Get("/forbidden?view=nope")
	assert.Contains(t, res.Body, "You do not have access to the requested page.")
}

func TestContentPagesAreGated(t *testing.T) {
	h := webtest.New(t)
	h.Login("guest")

	assert.Equal(t, http.StatusOK, h.Get("/help").Status)
	assert.Equal(t, http.StatusOK, h.Get("/analytics").Status)

	tools := h.Get("/tools")
	require.Equal(t, http.StatusOK, tools.Status)
	assert.Contains(t, tools.Body, `href="https://validator.w3.org/"`)

	res := h.Get("/internal")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/forbidden?view=internal", res.Location)

	res = h.Get("/settings")
	assert.Equal(t, "/forbidden?view=settings", res.Location)
}

func TestSettingsForSuperUser(t *testing.T) {
	h := webtest.New(t)
	h.Login("root")

	res := h.Get("/settings")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Backend: "+h.API.BaseURL())
	assert.Contains(t, res.Body, "Session lifetime: 1h0m0s")
	assert.NotContains(t, res.Body, h.Config.CSRFSecret)
}

func TestProfileListsReachablePages(t *testing.T) {
	h := webtest.New(t)
	h.Login("itra")

	res := h.Get("/profile")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "itra@example.com")
	assert.Contains(t, res.Body, "<li>system:read</li>")
	assert.Contains(t, res.Body, "<li>Audit log</li>")
	assert.NotContains(t, res.Body, "<li>Users</li>")
}

func TestRolesCountsMembers(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Get("/roles")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Internal Technical Review Authority")
	assert.Equal(t, 7, strings.Count(res.Body, "<td>1</td>"))
}

func TestAuditFiltersByStatus(t *testing.T) {
	h := webtest.New(t)
	ctx := context.Background()
	require.NoError(t, h.Audit.Record(ctx, shared.AuditEntry{Actor: "mallory", Action: "login", Resource: "session", Status: shared.AuditFailed}))
	h.Login("itra")

	res := h.Get("/audit?status=failed")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "mallory")
	assert.NotContains(t, res.Body, "<td>itra</td>")

	res = h.Get("/audit")
	assert.Contains(t, res.Body, "<td>itra</td>")
}

func TestTeamWorkloadForManager(t *testing.T) {
	h := webtest.New(t)
	h.API.AddTask(map[string]any{"title": "a", "status": "pending", "assignee": "operator", "deadline": "2000-01-01"})
	h.API.AddTask(map[string]any{"title": "b", "status": "completed", "assignee": "operator"})
	h.API.AddTask(map[string]any{"title": "c", "status": "in_progress", "assignee": "user"})
	h.API.AddTask(map[string]any{"title": "d", "status": "pending"})
	h.Login("manager")

	res := h.Get("/team")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "<tr><td>operator</td><td>1</td><td>1</td><td><span class=\"badge badge-failed\">1</span></td></tr>")
	assert.Contains(t, res.Body, "<tr><td>user</td><td>1</td><td>0</td><td>0</td></tr>")

	h.Reset()
	h.Login("admin")
	assert.Equal(t, http.StatusSeeOther, h.Get("/team").Status)
}
