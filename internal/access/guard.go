package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/session"
	"github.com/saas-dashboard/dashboard/internal/shared"
)

// Guard applies a Table to requests. It is the single place where routes
// are gated.
type Guard struct {
	Table      *Table
	Logger     *slog.Logger
	LoginPath  string
	DeniedPath string
	// Wait bounds how long a request waits for bootstrap before Pending.
	Wait time.Duration
	// Pending renders the loading state. Defaults to a bare refresh page.
	Pending http.Handler
	// Observe receives every decision.
	Observe func(view string, outcome Outcome)
	// OnDenied runs before the denied redirect is written.
	OnDenied func(r *http.Request, view string, who *identity.Identity, d Decision)
}

// NewGuard returns a Guard over table with default targets.
func NewGuard(table *Table, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		Table:      table,
		Logger:     logger,
		LoginPath:  "/login",
		DeniedPath: "/forbidden",
		Wait:       5 * time.Second,
	}
}

// Check decides view for state. A view missing from the table is denied to
// every identity.
func (g *Guard) Check(view string, state session.State) Decision {
	rule, ok := g.Table.Lookup(view)
	if !ok {
		return Decide(state.Identity, state.Loading(), []identity.Role{identity.RoleUnknown}, nil)
	}
	return Decide(state.Identity, state.Loading(), rule.Roles, rule.Permissions)
}

// Allows reports whether who may render view. Used for navigation and
// conditional controls.
func (g *Guard) Allows(view string, who *identity.Identity) bool {
	state := session.State{Phase: session.PhaseAnonymous}
	if who != nil {
		state = session.State{Phase: session.PhaseAuthenticated, Identity: who}
	}
	return g.Check(view, state).Outcome == Render
}

// Middleware gates the wrapped handler behind view.
func (g *Guard) Middleware(view string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := g.resolve(r)
			d := g.Check(view, state)
			if g.Observe != nil {
				g.Observe(view, d.Outcome)
			}

			switch d.Outcome {
			case Render:
				ctx := shared.ContextWithIdentity(r.Context(), state.Identity)
				next.ServeHTTP(w, r.WithContext(ctx))
			case Pending:
				g.pending(w, r)
			case RedirectLogin:
				http.Redirect(w, r, g.LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			default:
				g.Logger.Info("access denied",
					slog.String("view", view),
					slog.String("user", state.Identity.DisplayName()),
					slog.String("role", state.Identity.Role.String()),
					slog.Any("missing_roles", identity.RoleNames(d.MissingRoles)),
					slog.Any("missing_permissions", d.MissingPermissions),
				)
				if g.OnDenied != nil {
					g.OnDenied(r, view, state.Identity, d)
				}
				http.Redirect(w, r, g.DeniedPath+"?view="+url.QueryEscape(view), http.StatusSeeOther)
			}
		})
	}
}

// Require is Middleware for handlers registered one at a time.
func (g *Guard) Require(view string, h http.HandlerFunc) http.Handler {
	return g.Middleware(view)(h)
}

func (g *Guard) resolve(r *http.Request) session.State {
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		return session.State{Phase: session.PhaseAnonymous}
	}
	wait := g.Wait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	return client.Session.Resolve(ctx)
}

func (g *Guard) pending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if g.Pending != nil {
		g.Pending.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprint(w, `<!doctype html><meta http-equiv="refresh" content="1"><title>Loading</title><p>Loading…</p>`)
}
