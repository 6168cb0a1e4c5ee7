package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/auth"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/nav"
	"github.com/saas-dashboard/dashboard/internal/observability"
	"github.com/saas-dashboard/dashboard/internal/pages"
	"github.com/saas-dashboard/dashboard/internal/platform/httpx"
	"github.com/saas-dashboard/dashboard/internal/securefiles"
	"github.com/saas-dashboard/dashboard/internal/session"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/tasks"
	"github.com/saas-dashboard/dashboard/internal/users"
	"github.com/saas-dashboard/dashboard/internal/view"
	"github.com/saas-dashboard/dashboard/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Registry       *session.Registry
	Audit          *shared.AuditLogger
	Submissions    *shared.IdempotencyStore
	Metrics        *observability.Metrics
	// Table defaults to access.DefaultTable.
	Table *access.Table
}

// NewRouter constructs the chi.Router with dashboard defaults. Static assets,
// health and metrics are served without a browser session.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	table := params.Table
	if table == nil {
		table = access.DefaultTable()
	}

	guard := access.NewGuard(table, logger)
	if params.Config != nil && params.Config.BootstrapWait > 0 {
		guard.Wait = params.Config.BootstrapWait
	}
	if params.Metrics != nil {
		guard.Observe = func(view string, outcome access.Outcome) {
			params.Metrics.ObserveAccess(view, outcome.String())
		}
	}
	if params.Audit != nil {
		guard.OnDenied = func(r *http.Request, view string, who *identity.Identity, _ access.Decision) {
			entry := shared.AuditEntry{Action: "access", Resource: view, Status: shared.AuditDenied, IP: shared.ClientIP(r)}
			if who != nil {
				entry.Actor = who.DisplayName()
			}
			if err := params.Audit.Record(r.Context(), entry); err != nil {
				logger.Warn("record denied access", slog.Any("error", err))
			}
		}
	}

	navigation := nav.NewBuilder(guard)
	renderer := &view.Renderer{Engine: params.Templates, CSRF: params.CSRFManager, Nav: navigation, Logger: logger}

	pageHandler := pages.NewHandler(logger, renderer, guard, pages.Options{
		Audit:    params.Audit,
		Settings: settingsSummary(params.Config),
	})
	guard.Pending = http.HandlerFunc(pageHandler.Loading)

	loginLimit := 0
	if params.Config != nil {
		loginLimit = params.Config.LoginLimitPerMinute
	}
	authService := auth.NewService(logger, params.SessionManager, params.CSRFManager, params.Registry, params.Audit)
	authHandler := auth.NewHandler(logger, authService, renderer, loginLimit, guard.Wait)

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		registerStaticTypes(logger)
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Registry:       params.Registry,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Get("/api/session", sessionStatus(guard, navigation))
		authHandler.MountRoutes(r)
		r.Route("/users", users.NewHandler(logger, renderer, guard, params.Submissions).MountRoutes)
		r.Route("/tasks", tasks.NewHandler(logger, renderer, guard, params.Submissions).MountRoutes)
		r.Route("/secure-files", securefiles.NewHandler(logger, renderer, guard).MountRoutes)
		pageHandler.MountRoutes(r)
	})

	return r
}

type sessionPayload struct {
	Authenticated bool               `json:"authenticated"`
	Loading       bool               `json:"loading"`
	User          *identity.Identity `json:"user,omitempty"`
	Navigation    []nav.Section      `json:"navigation"`
}

// sessionStatus reports the browser session's state. It waits for bootstrap
// no longer than the guard does, so a slow backend yields loading=true.
func sessionStatus(guard *access.Guard, navigation *nav.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := shared.ClientFromContext(r.Context())
		if client == nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnavailable, shared.ErrNoClient))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), guard.Wait)
		state := client.Session.Resolve(ctx)
		cancel()
		payload := sessionPayload{
			Authenticated: state.Authenticated(),
			Loading:       state.Loading(),
			Navigation:    []nav.Section{},
		}
		if payload.Authenticated {
			payload.User = state.Identity
			payload.Navigation = navigation.Build(state.Identity, r.URL.Query().Get("path"))
		}
		httpx.JSON(w, http.StatusOK, payload)
	}
}

// settingsSummary lists configuration that is safe to show to a SuperUser.
func settingsSummary(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	return []string{
		"Environment: " + cfg.AppEnv,
		"Backend: " + cfg.BackendBaseURL,
		"Session lifetime: " + cfg.SessionTTL.String(),
		"Backend timeout: " + cfg.BackendTimeout.String(),
		"Bootstrap wait: " + cfg.BootstrapWait.String(),
		"Log format: " + strings.ToLower(cfg.LogFormat),
		"Log level: " + strings.ToLower(cfg.LogLevel),
	}
}
