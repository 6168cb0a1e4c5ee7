package users

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/view"
)

const perPage = 20

// Handler manages user management endpoints.
type Handler struct {
	logger      *slog.Logger
	pages       *view.Renderer
	guard       *access.Guard
	validator   *validator.Validate
	submissions *shared.IdempotencyStore
}

// NewHandler builds Handler instance. submissions may be nil, in which case
// repeated create forms are not detected.
func NewHandler(logger *slog.Logger, pages *view.Renderer, guard *access.Guard, submissions *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, pages: pages, guard: guard, validator: newValidator(), submissions: submissions}
}

// MountRoutes registers user routes. Listing is gated by the users view and
// each mutation by its own permission-gated view.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Middleware(access.ViewUsers)).Get("/", h.listUsers)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Middleware(access.ViewUsersCreate))
		r.Get("/new", h.showCreateUserForm)
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Middleware(access.ViewUsersEdit))
		r.Get("/{id}/edit", h.showEditUserForm)
		r.Post("/{id}", h.updateUser)
	})
	r.With(h.guard.Middleware(access.ViewUsersDelete)).Post("/{id}/delete", h.deleteUser)
}

type listData struct {
	Users     []backend.User
	Page      shared.Pagination
	Inactive  int
	CanCreate bool
	CanEdit   bool
	CanDelete bool
	Notice    string
}

type createData struct {
	Form   createForm
	Errors map[string]string
	Roles  []string
}

type editData struct {
	User   backend.User
	Form   editForm
	Errors map[string]string
	Roles  []string
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	who := shared.IdentityFromContext(r.Context())
	data := listData{
		CanCreate: h.guard.Allows(access.ViewUsersCreate, who),
		CanEdit:   h.guard.Allows(access.ViewUsersEdit, who),
		CanDelete: h.guard.Allows(access.ViewUsersDelete, who),
	}
	status := http.StatusOK
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		data.Notice = shared.UserSafeMessage(shared.ErrNoClient)
		status = http.StatusBadGateway
	} else if list, err := client.Backend.ListUsers(r.Context()); err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		data.Notice = shared.UserSafeMessage(err)
		status = shared.HTTPStatus(err)
	} else {
		for _, u := range list {
			if !u.IsActive {
				data.Inactive++
			}
		}
		data.Users, data.Page = shared.Paginate(list, shared.PageParam(r), perPage)
	}
	h.pages.Page(w, r, status, "pages/users/list.html", "Users", data)
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	data := createData{Form: createForm{Role: identity.RoleUser.String(), IsActive: true, Submission: shared.NewSubmissionKey()}, Roles: AssignableRoles()}
	h.pages.Page(w, r, http.StatusOK, "pages/users/form.html", "New user", data)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := createForm{
		Username:   strings.TrimSpace(r.PostFormValue("username")),
		Email:      strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Password:   r.PostFormValue("password"),
		Role:       r.PostFormValue("role"),
		IsActive:   r.PostFormValue("is_active") != "",
		Submission: r.PostFormValue(shared.SubmissionField),
	}
	data := createData{Form: form, Roles: AssignableRoles()}
	data.Form.Password = ""
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		data.Errors = errs
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/users/form.html", "New user", data)
		return
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	if !h.submissions.Claim(r.Context(), form.Submission, "users") {
		h.pages.Redirect(w, r, "/users", "warning", "That form was already submitted.")
		return
	}
	active := form.IsActive
	user, err := client.Backend.CreateUser(r.Context(), backend.UserInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
		IsActive: &active,
	})
	if err != nil {
		h.logger.Warn("create user", slog.String("username", form.Username), slog.Any("error", err))
		h.submissions.Release(r.Context(), form.Submission, "users")
		data.Errors = map[string]string{"general": shared.UserSafeMessage(err)}
		h.pages.Page(w, r, shared.HTTPStatus(err), "pages/users/form.html", "New user", data)
		return
	}
	h.pages.Redirect(w, r, "/users", "success", "User "+user.Username+" created")
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	user, err := client.Backend.GetUser(r.Context(), identity.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.logger.Warn("load user", slog.Any("error", err))
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	data := editData{User: user, Form: editForm{Role: user.Role, IsActive: user.IsActive}, Roles: AssignableRoles()}
	h.pages.Page(w, r, http.StatusOK, "pages/users/edit.html", "Edit user", data)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := identity.ID(chi.URLParam(r, "id"))
	form := editForm{Role: r.PostFormValue("role"), IsActive: r.PostFormValue("is_active") != ""}
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		data := editData{User: backend.User{ID: id}, Form: form, Errors: errs, Roles: AssignableRoles()}
		if client := shared.ClientFromContext(r.Context()); client != nil {
			if user, err := client.Backend.GetUser(r.Context(), id); err == nil {
				data.User = user
			}
		}
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/users/edit.html", "Edit user", data)
		return
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	if who := shared.IdentityFromContext(r.Context()); who != nil && who.ID == id && !form.IsActive {
		h.pages.Redirect(w, r, "/users", "error", "You cannot deactivate your own account.")
		return
	}
	user, err := client.Backend.UpdateUser(r.Context(), id, backend.UserPatch{Role: &form.Role, IsActive: &form.IsActive})
	if err != nil {
		h.logger.Warn("update user", slog.String("user", string(id)), slog.Any("error", err))
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/users", "success", "User "+user.Username+" updated")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := identity.ID(chi.URLParam(r, "id"))
	if who := shared.IdentityFromContext(r.Context()); who != nil && who.ID == id {
		h.pages.Redirect(w, r, "/users", "error", "You cannot delete your own account.")
		return
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	if err := client.Backend.DeleteUser(r.Context(), id); err != nil {
		h.logger.Warn("delete user", slog.String("user", string(id)), slog.Any("error", err))
		h.pages.Redirect(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/users", "success", "User deleted")
}
