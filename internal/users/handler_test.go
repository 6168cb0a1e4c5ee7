package users_test

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/testing/webtest"
	_ "github.com/saas-dashboard/dashboard/testing"
)

func TestUsersListDeniedForRegularRoles(t *testing.T) {
	for _, name := range []string{"manager", "itra", "operator", "user", "guest"} {
		t.Run(name, func(t *testing.T) {
			h := webtest.New(t)
			h.Login(name)

			res := h.Get("/users")
			require.Equal(t, http.StatusSeeOther, res.Status)
			assert.Equal(t, "/forbidden?view=users", res.Location)

			page := h.Get(res.Location)
			assert.Equal(t, http.StatusForbidden, page.Status)
			assert.Contains(t, page.Body, "SuperUser, Admin")
			assert.Empty(t, h.API.CallsTo(http.MethodGet, "/api/users"))

			entries, err := h.Audit.Recent(context.Background(), 10, shared.AuditDenied)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "users", entries[0].Resource)
			assert.Equal(t, name, entries[0].Actor)
		})
	}
}

func TestUsersListForAdmin(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Get("/users")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "guest@example.com")
	assert.Contains(t, res.Body, `href="/users/new"`)
	assert.Contains(t, res.Body, `href="/users/7/edit"`)
	assert.NotContains(t, res.Body, `/delete"`, "admin lacks user:delete")
}

func TestUsersListForSuperUserOffersDelete(t *testing.T) {
	h := webtest.New(t)
	h.Login("root")

	res := h.Get("/users")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `action="/users/7/delete"`)
}

func TestCreateUser(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	form := h.Get("/users/new")
	require.Equal(t, http.StatusOK, form.Status)

	res := h.Post("/users", url.Values{
		"username":  {"carol"},
		"email":     {"Carol@Example.com"},
		"password":  {"Sup3rSecret"},
		"role":      {"Operator"},
		"is_active": {"on"},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/users", res.Location)

	created, ok := h.API.User("carol")
	require.True(t, ok)
	assert.Equal(t, "carol@example.com", created.Email)
	assert.Equal(t, "Operator", created.Role)
	assert.True(t, created.IsActive)

	list := h.Get("/users")
	assert.Contains(t, list.Body, "User carol created")
}

func TestCreateUserFormSubmitsOnce(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	form := h.Get("/users/new")
	m := regexp.MustCompile(`name="submission_id" value="([^"]+)"`).FindStringSubmatch(form.Body)
	require.NotNil(t, m)
	values := url.Values{
		"username":      {"dave"},
		"email":         {"dave@example.com"},
		"password":      {"Sup3rSecret"},
		"role":          {"User"},
		"submission_id": {m[1]},
	}

	res := h.Post("/users", values)
	require.Equal(t, http.StatusSeeOther, res.Status)
	h.Get("/users")

	res = h.Post("/users", values)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Contains(t, h.Get("/users").Body, "That form was already submitted.")
	assert.Len(t, h.API.CallsTo(http.MethodPost, "/api/users"), 1)
}

func TestCreateUserValidation(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Post("/users", url.Values{
		"username": {"x"},
		"email":    {"not-an-email"},
		"password": {"weakpass"},
		"role":     {"Wizard"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Username must be 3-50 characters")
	assert.Contains(t, res.Body, "Enter a valid email address.")
	assert.Contains(t, res.Body, "Password must be at least 8 characters")
	assert.Contains(t, res.Body, "Choose a role from the list.")
	assert.Empty(t, h.API.CallsTo(http.MethodPost, "/api/users"))
}

func TestCreateUserConflict(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Post("/users", url.Values{
		"username": {"guest"},
		"email":    {"guest2@example.com"},
		"password": {"Sup3rSecret"},
		"role":     {"Guest"},
	})
	require.Equal(t, http.StatusConflict, res.Status)
	assert.Contains(t, res.Body, "Username already registered")
}

func TestEditUser(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	page := h.Get("/users/6/edit")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "user@example.com")

	res := h.Post("/users/6", url.Values{"role": {"Manager"}})
	require.Equal(t, http.StatusSeeOther, res.Status)

	updated, ok := h.API.User("user")
	require.True(t, ok)
	assert.Equal(t, "Manager", updated.Role)
	assert.False(t, updated.IsActive)
}

func TestCannotDeactivateSelf(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Post("/users/2", url.Values{"role": {"Admin"}})
	require.Equal(t, http.StatusSeeOther, res.Status)

	acct, _ := h.API.User("admin")
	assert.True(t, acct.IsActive)
	assert.Contains(t, h.Get("/users").Body, "You cannot deactivate your own account.")
}

func TestDeleteRequiresPermission(t *testing.T) {
	h := webtest.New(t)
	h.Login("admin")

	res := h.Post("/users/7/delete", nil)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/forbidden?view=users.delete", res.Location)

	_, ok := h.API.User("guest")
	assert.True(t, ok)
}

func TestDeleteUser(t *testing.T) {
	h := webtest.New(t)
	h.Login("root")

	res := h.Post("/users/7/delete", nil)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/users", res.Location)

	_, ok := h.API.User("guest")
	assert.False(t, ok)
}

func TestCannotDeleteSelf(t *testing.T) {
	h := webtest.New(t)
	h.Login("root")

	h.Post("/users/1/delete", nil)
	_, ok := h.API.User("root")
	assert.True(t, ok)
	assert.Contains(t, h.Get("/users").Body, "You cannot delete your own account.")
}
