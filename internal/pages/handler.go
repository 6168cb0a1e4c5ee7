// Package pages serves the dashboard's informational pages: the role-aware
// landing page, static content, profile, roles, audit trail, team workload
// and the access-denied explanation.
package pages

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/nav"
	"github.com/saas-dashboard/dashboard/internal/securefiles"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/tasks"
	"github.com/saas-dashboard/dashboard/internal/view"
)

const auditPerPage = 50

// Options carries the optional collaborators of a Handler.
type Options struct {
	Audit *shared.AuditLogger
	// Settings are shown verbatim on the settings page.
	Settings []string
}

// Handler serves the informational pages.
type Handler struct {
	logger   *slog.Logger
	pages    *view.Renderer
	guard    *access.Guard
	audit    *shared.AuditLogger
	settings []string
	now      func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, pages *view.Renderer, guard *access.Guard, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		pages:    pages,
		guard:    guard,
		audit:    opts.Audit,
		settings: opts.Settings,
		now:      time.Now,
	}
}

// MountRoutes registers the page routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	r.Get("/forbidden", h.forbidden)
	r.Method(http.MethodGet, "/dashboard", h.guard.Require(access.ViewDashboard, h.dashboard))
	r.Method(http.MethodGet, "/profile", h.guard.Require(access.ViewProfile, h.profile))
	r.Method(http.MethodGet, "/roles", h.guard.Require(access.ViewRoles, h.roles))
	r.Method(http.MethodGet, "/audit", h.guard.Require(access.ViewAudit, h.auditTrail))
	r.Method(http.MethodGet, "/team", h.guard.Require(access.ViewTeam, h.team))
	r.Method(http.MethodGet, "/settings", h.guard.Require(access.ViewSettings, h.settingsPage))
	for view := range staticContent {
		rule, ok := h.guard.Table.Lookup(view)
		if !ok || rule.Path == "" {
			continue
		}
		r.Method(http.MethodGet, rule.Path, h.guard.Require(view, h.content(rule.View, rule.Title)))
	}
}

// Loading renders the page shown while the session is still resolving. The
// browser reloads it every second.
func (h *Handler) Loading(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusServiceUnavailable, "pages/loading.html", view.TemplateData{Title: "Loading", Refresh: 1})
}

type forbiddenData struct {
	Known       bool
	View        string
	Title       string
	Roles       []string
	Permissions []string
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	data := forbiddenData{View: r.URL.Query().Get("view")}
	if rule, ok := h.guard.Table.Lookup(data.View); ok {
		data.Known = true
		data.Title = rule.Title
		data.Roles = identity.RoleNames(rule.Roles)
		data.Permissions = rule.Permissions
	}
	td := view.TemplateData{Title: "Access denied", Data: data}
	if client := shared.ClientFromContext(r.Context()); client != nil {
		td.Identity = client.Session.Snapshot().Identity
	}
	h.pages.Render(w, r, http.StatusForbidden, "pages/forbidden.html", td)
}

func (h *Handler) content(viewName, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Page(w, r, http.StatusOK, "pages/content.html", title, staticContent[viewName])
	}
}

func (h *Handler) settingsPage(w http.ResponseWriter, r *http.Request) {
	data := Content{
		Intro: "Runtime settings of this dashboard instance. Change them through the environment and restart.",
		Blocks: []Block{
			{Heading: "Runtime", Items: h.settings},
			{Heading: "Permissions checked by the dashboard", Items: shared.CoreScopes()},
		},
	}
	h.pages.Page(w, r, http.StatusOK, "pages/content.html", "Settings", data)
}

type card struct {
	Title string
	Value int
	Hint  string
	Path  string
}

type dashboardData struct {
	Role   string
	Cards  []card
	Links  []nav.Item
	Notice string
}

// dashboard summarises what the signed-in role can reach. Each card is only
// fetched when the guard would let the role open the page it links to.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	who := shared.IdentityFromContext(r.Context())
	data := dashboardData{Role: who.Role.String()}
	if !who.Role.Known() && who.RawRole != "" {
		data.Role = who.RawRole
	}
	client := shared.ClientFromContext(r.Context())
	ctx := r.Context()
	fail := func(err error) {
		h.logger.Warn("dashboard summary", slog.Any("error", err))
		if data.Notice == "" {
			data.Notice = shared.UserSafeMessage(err)
		}
	}

	if client != nil && h.guard.Allows(access.ViewUsers, who) {
		if list, err := client.Backend.ListUsers(ctx); err != nil {
			fail(err)
		} else {
			inactive := 0
			for _, u := range list {
				if !u.IsActive {
					inactive++
				}
			}
			data.Cards = append(data.Cards, card{Title: "Users", Value: len(list), Path: "/users"})
			if inactive > 0 {
				data.Cards[len(data.Cards)-1].Hint = plural(inactive, "inactive account")
			}
		}
	}
	if client != nil && (h.guard.Allows(access.ViewTasks, who) || h.guard.Allows(access.ViewTeam, who)) {
		if list, err := client.Backend.ListTasks(ctx); err != nil {
			fail(err)
		} else {
			rows := tasks.Rows(list, h.now())
			open := 0
			for _, row := range rows {
				if row.Status == tasks.StatusPending || row.Status == tasks.StatusInProgress {
					open++
				}
			}
			path := "/tasks"
			if !h.guard.Allows(access.ViewTasks, who) {
				path = "/team"
			}
			data.Cards = append(data.Cards, card{Title: "Open tasks", Value: open, Hint: plural(tasks.CountOverdue(rows), "overdue"), Path: path})
		}
	}
	if client != nil && h.guard.Allows(access.ViewSecureFiles, who) {
		if list, err := client.Backend.ListSecureFiles(ctx); err != nil {
			fail(err)
		} else {
			readable := 0
			for _, row := range securefiles.Rows(list.Files, who) {
				if row.CanOpen {
					readable++
				}
			}
			data.Cards = append(data.Cards, card{Title: "Classified documents", Value: len(list.Files), Hint: plural(readable, "viewable"), Path: "/secure-files"})
		}
	}

	for _, section := range h.pages.Nav.Build(who, r.URL.Path) {
		for _, item := range section.Items {
			if item.View != access.ViewDashboard {
				data.Links = append(data.Links, item)
			}
		}
	}
	h.pages.Page(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", data)
}

type profileData struct {
	Permissions []string
	Views       []string
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	who := shared.IdentityFromContext(r.Context())
	data := profileData{Permissions: who.Permissions.Sorted()}
	for _, rule := range h.guard.Table.Rules() {
		if !rule.Hidden && h.guard.Allows(rule.View, who) {
			data.Views = append(data.Views, rule.Title)
		}
	}
	h.pages.Page(w, r, http.StatusOK, "pages/profile.html", "Profile", data)
}

type roleRow struct {
	Name        string
	Description string
	Members     int
	Views       []string
}

type rolesData struct {
	Roles       []roleRow
	Counted     bool
	Permissions []string
	Notice      string
}

func (h *Handler) roles(w http.ResponseWriter, r *http.Request) {
	data := rolesData{Permissions: shared.CoreScopes()}
	members := map[string]int{}
	if client := shared.ClientFromContext(r.Context()); client != nil {
		if list, err := client.Backend.ListUsers(r.Context()); err != nil {
			h.logger.Warn("count role members", slog.Any("error", err))
			data.Notice = shared.UserSafeMessage(err)
		} else {
			data.Counted = true
			for _, u := range list {
				members[u.Role]++
			}
		}
	}
	for _, role := range identity.AllRoles() {
		row := roleRow{Name: role.String(), Description: roleDescriptions[role.String()], Members: members[role.String()]}
		sample := &identity.Identity{Username: "sample", Role: role}
		for _, rule := range h.guard.Table.Rules() {
			if rule.Hidden || len(rule.Roles) == 0 {
				continue
			}
			if h.guard.Allows(rule.View, sample) {
				row.Views = append(row.Views, rule.Title)
			}
		}
		data.Roles = append(data.Roles, row)
	}
	h.pages.Page(w, r, http.StatusOK, "pages/roles.html", "Roles", data)
}

type auditData struct {
	Entries  []shared.AuditEntry
	Page     shared.Pagination
	Status   string
	Statuses []string
	Notice   string
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	data := auditData{Status: r.URL.Query().Get("status"), Statuses: shared.AuditStatuses()}
	if h.audit == nil {
		data.Notice = "Audit logging is not enabled on this instance."
	} else if entries, err := h.audit.Recent(r.Context(), 1000, data.Status); err != nil {
		h.logger.Error("load audit entries", slog.Any("error", err))
		data.Notice = "The audit log is unavailable right now."
	} else {
		data.Entries, data.Page = shared.Paginate(entries, shared.PageParam(r), auditPerPage)
	}
	h.pages.Page(w, r, http.StatusOK, "pages/audit.html", "Audit Log", data)
}

type member struct {
	Name      string
	Open      int
	Completed int
	Overdue   int
}

type teamData struct {
	Members []member
	Notice  string
}

func (h *Handler) team(w http.ResponseWriter, r *http.Request) {
	var data teamData
	if client := shared.ClientFromContext(r.Context()); client != nil {
		if list, err := client.Backend.ListTasks(r.Context()); err != nil {
			h.logger.Warn("load team workload", slog.Any("error", err))
			data.Notice = shared.UserSafeMessage(err)
		} else {
			data.Members = workload(tasks.Rows(list, h.now()))
		}
	}
	h.pages.Page(w, r, http.StatusOK, "pages/team.html", "Team", data)
}

// workload groups task rows by assignee, busiest first. Unassigned tasks
// are skipped.
func workload(rows []tasks.Row) []member {
	byName := map[string]*member{}
	for _, row := range rows {
		if row.Assignee == "" {
			continue
		}
		m, ok := byName[row.Assignee]
		if !ok {
			m = &member{Name: row.Assignee}
			byName[row.Assignee] = m
		}
		switch row.Status {
		case tasks.StatusCompleted:
			m.Completed++
		case tasks.StatusCancelled:
		default:
			m.Open++
		}
		if row.Overdue {
			m.Overdue++
		}
	}
	out := make([]member, 0, len(byName))
	for _, m := range byName {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Open != out[j].Open {
			return out[i].Open > out[j].Open
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func plural(n int, noun string) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n) + " " + noun
}
