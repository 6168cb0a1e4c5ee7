package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/app"
	"github.com/saas-dashboard/dashboard/internal/auth"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/testing/webtest"
	_ "github.com/saas-dashboard/dashboard/testing"
)

func TestLoginPage(t *testing.T) {
	h := webtest.New(t)

	res := h.Get("/login")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `<form method="post" action="/login"`)
	assert.NotEmpty(t, h.Token())
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := webtest.New(t)
	h.Get("/login")

	res := h.Post("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Contains(t, res.Body, "Invalid username or password.")
	assert.Contains(t, res.Body, `value="admin"`)

	entries, err := h.Audit.Recent(context.Background(), 10, shared.AuditFailed)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin", entries[0].Actor)
}

func TestLoginRequiresFields(t *testing.T) {
	h := webtest.New(t)
	h.Get("/login")

	res := h.Post("/login", url.Values{"username": {""}, "password": {""}})
	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Body, "Enter your username or email.")
	assert.Contains(t, res.Body, "Enter your password.")
	assert.Empty(t, h.API.CallsTo(http.MethodPost, "/api/auth/login"))
}

func TestLoginRotatesSessionAndRedirects(t *testing.T) {
	h := webtest.New(t)
	h.Get("/login")
	before := h.SessionCookie()
	require.NotNil(t, before)
	staleToken := h.Token()

	res := h.Post("/login", url.Values{"username": {"root"}, "password": {webtest.Password}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, auth.DefaultLanding, res.Location)

	after := h.SessionCookie()
	require.NotNil(t, after)
	assert.NotEqual(t, before.Value, after.Value)

	page := h.Get("/dashboard")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "Welcome back, root")
	assert.NotEqual(t, staleToken, h.Token())
}

func TestLoginHonoursNext(t *testing.T) {
	h := webtest.New(t)

	res := h.Get("/users")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login?next=%2Fusers", res.Location)

	h.Get(res.Location)
	res = h.Post("/login", url.Values{"username": {"admin"}, "password": {webtest.Password}, "next": {"/users"}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/users", res.Location)
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	h := webtest.New(t)
	h.Get("/login")

	res := h.Post("/login", url.Values{"username": {"admin"}, "password": {webtest.Password}, "next": {"//evil.example"}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, auth.DefaultLanding, res.Location)
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	h := webtest.New(t)
	h.Login("user")

	res := h.Get("/login")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, auth.DefaultLanding, res.Location)
}

func TestLoginPageResolvesEvictedBundle(t *testing.T) {
	h := webtest.New(t, webtest.WithConfig(func(cfg *app.Config) { cfg.ClientCacheSize = 1 }))
	h.Login("admin")
	cookie := h.SessionCookie()
	require.NotNil(t, cookie)

	// Another browser takes the only bundle slot.
	h.Reset()
	h.Get("/login")

	h.Reset()
	h.SetSessionCookie(cookie)
	res := h.Get("/login?next=%2Fusers")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/users", res.Location)
}

func TestLoginWithoutFormTokenIsRejected(t *testing.T) {
	h := webtest.New(t)
	h.Get("/login")

	res := h.Post("/login", url.Values{"username": {"root"}, "password": {webtest.Password}, "csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Empty(t, h.API.CallsTo(http.MethodPost, "/api/auth/login"))
}

func TestLogoutClearsBothSessions(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")
	require.Equal(t, 1, h.API.SessionCount())

	res := h.Post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login", res.Location)
	assert.Equal(t, 0, h.API.SessionCount())

	res = h.Get("/dashboard")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login?next=%2Fdashboard", res.Location)

	entries, err := h.Audit.Recent(context.Background(), 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "logout", entries[0].Action)
}

func TestLogoutSignsOutLocallyWhenBackendFails(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")
	h.API.FailLogout = true

	res := h.Post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, res.Status)

	res = h.Get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, res.Status)
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                    auth.DefaultLanding,
		"/users?page=2":       "/users?page=2",
		"https://evil.test/x": auth.DefaultLanding,
		"//evil.test":         auth.DefaultLanding,
		`/\evil.test`:         auth.DefaultLanding,
		"/login":              auth.DefaultLanding,
		"/logout":             auth.DefaultLanding,
		"relative":            auth.DefaultLanding,
	}
	for in, want := range cases {
		assert.Equal(t, want, auth.SafeNext(in, auth.DefaultLanding), "next=%q", in)
	}
}
