package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/saas-dashboard/dashboard/internal/session"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	pages      *view.Renderer
	validator  *validator.Validate
	loginLimit int
	wait       time.Duration
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts
// per client IP per minute; zero disables the cap. wait bounds how long the
// login page waits for a pending bootstrap before showing the form.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Renderer, loginLimit int, wait time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Handler{
		logger:     logger,
		service:    service,
		pages:      pages,
		validator:  validator.New(),
		loginLimit: loginLimit,
		wait:       wait,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	if h.loginLimit > 0 {
		r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	next := SafeNext(r.URL.Query().Get("next"), DefaultLanding)
	if client := shared.ClientFromContext(r.Context()); client != nil {
		// A new bundle may still hold a valid backend cookie.
		ctx, cancel := context.WithTimeout(r.Context(), h.wait)
		state := client.Session.Resolve(ctx)
		cancel()
		if state.Authenticated() {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}
	h.render(w, r, http.StatusOK, loginPageData{Next: next})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{Form: form, Next: SafeNext(r.PostFormValue("next"), DefaultLanding), Errors: map[string]string{}}
	data.Form.Password = ""

	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				data.Errors[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
		h.render(w, r, http.StatusBadRequest, data)
		return
	}

	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.logger.Error("login without client bundle", slog.Any("error", shared.ErrNoClient))
		data.Errors["general"] = "Sign in is unavailable right now. Please try again."
		h.render(w, r, http.StatusServiceUnavailable, data)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if err := h.service.SignIn(r.Context(), sess, client, form.Username, form.Password, shared.ClientIP(r)); err != nil {
		status := http.StatusUnauthorized
		data.Errors["general"] = "Invalid username or password."
		if errors.Is(err, session.ErrBackendUnavailable) {
			status = http.StatusServiceUnavailable
			data.Errors["general"] = "Sign in is unavailable right now. Please try again."
		}
		h.logger.Info("login failed", slog.String("username", form.Username), slog.Any("error", err))
		h.render(w, r, status, data)
		return
	}

	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + client.Session.Current().DisplayName()})
	}
	http.Redirect(w, r, data.Next, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.service.SignOut(r.Context(), shared.SessionFromContext(r.Context()), shared.ClientFromContext(r.Context()), shared.ClientIP(r))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	h.pages.Page(w, r, status, "pages/login.html", "Sign in", data)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		return "Enter your username or email."
	case "Password":
		return "Enter your password."
	default:
		return fe.Error()
	}
}
