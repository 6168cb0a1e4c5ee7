package access

import (
	"strings"

	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/shared"
)

// Rule associates a view with the roles and permissions it requires. Empty
// Roles admits any authenticated identity.
type Rule struct {
	View        string
	Title       string
	Path        string
	Section     string
	Roles       []identity.Role
	Permissions []string
	// Hidden rules gate a route but never appear in navigation.
	Hidden bool
}

// Table is the ordered set of access rules. Order is navigation order.
type Table struct {
	rules  []Rule
	byView map[string]int
}

// NewTable indexes rules by view. A later rule with the same view replaces
// an earlier one.
func NewTable(rules ...Rule) *Table {
	t := &Table{byView: make(map[string]int, len(rules))}
	for _, rule := range rules {
		key := strings.ToLower(strings.TrimSpace(rule.View))
		if idx, ok := t.byView[key]; ok {
			t.rules[idx] = rule
			continue
		}
		t.byView[key] = len(t.rules)
		t.rules = append(t.rules, rule)
	}
	return t
}

// Lookup returns the rule for view.
func (t *Table) Lookup(view string) (Rule, bool) {
	idx, ok := t.byView[strings.ToLower(strings.TrimSpace(view))]
	if !ok {
		return Rule{}, false
	}
	return t.rules[idx], true
}

// Rules returns the rules in order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Navigation sections.
const (
	SectionMain    = "Main"
	SectionManage  = "Management"
	SectionSecure  = "Security"
	SectionAccount = "Account"
)

// View names used by the router.
const (
	ViewDashboard   = "dashboard"
	ViewAnalytics   = "analytics"
	ViewReports     = "reports"
	ViewSimulations = "simulations"
	ViewTools       = "tools"
	ViewUsers       = "users"
	ViewUsersCreate = "users.create"
	ViewUsersEdit   = "users.edit"
	ViewUsersDelete = "users.delete"
	ViewTasks       = "tasks"
	ViewTeam        = "team"
	ViewRoles       = "roles"
	ViewSettings    = "settings"
	ViewInternal    = "internal"
	ViewAudit       = "audit"
	ViewSecureFiles = "secure-files"
	ViewHelp        = "help"
	ViewProfile     = "profile"
	ViewShortcuts   = "shortcuts"
)

var (
	adminRoles  = []identity.Role{identity.RoleSuperUser, identity.RoleAdmin}
	auditRoles  = []identity.Role{identity.RoleSuperUser, identity.RoleAdmin, identity.RoleITRA}
	superOnly   = []identity.Role{identity.RoleSuperUser}
	managerOnly = []identity.Role{identity.RoleManager}
)

// DefaultTable is the dashboard's route table.
func DefaultTable() *Table {
	return NewTable(
		Rule{View: ViewDashboard, Title: "Dashboard", Path: "/dashboard", Section: SectionMain},
		Rule{View: ViewAnalytics, Title: "Analytics", Path: "/analytics", Section: SectionMain},
		Rule{View: ViewReports, Title: "Reports", Path: "/reports", Section: SectionMain},
		Rule{View: ViewSimulations, Title: "Simulations", Path: "/simulations", Section: SectionMain},
		Rule{View: ViewTools, Title: "Comparison tools", Path: "/tools", Section: SectionMain},
		Rule{View: ViewUsers, Title: "Users", Path: "/users", Section: SectionManage, Roles: adminRoles},
		Rule{View: ViewUsersCreate, Title: "New user", Path: "/users/new", Section: SectionManage, Roles: adminRoles, Permissions: []string{shared.PermUserCreate}, Hidden: true},
		Rule{View: ViewUsersEdit, Title: "Edit user", Section: SectionManage, Roles: adminRoles, Permissions: []string{shared.PermUserUpdate}, Hidden: true},
		Rule{View: ViewUsersDelete, Title: "Delete user", Section: SectionManage, Roles: adminRoles, Permissions: []string{shared.PermUserDelete}, Hidden: true},
		Rule{View: ViewTasks, Title: "Tasks", Path: "/tasks", Section: SectionManage, Roles: adminRoles},
		Rule{View: ViewTeam, Title: "My team", Path: "/team", Section: SectionManage, Roles: managerOnly},
		Rule{View: ViewRoles, Title: "Roles", Path: "/roles", Section: SectionManage, Roles: adminRoles},
		Rule{View: ViewSettings, Title: "Settings", Path: "/settings", Section: SectionManage, Roles: superOnly},
		Rule{View: ViewInternal, Title: "Internal tools", Path: "/internal", Section: SectionSecure, Roles: adminRoles},
		Rule{View: ViewAudit, Title: "Audit log", Path: "/audit", Section: SectionSecure, Roles: auditRoles},
		Rule{View: ViewSecureFiles, Title: "Secure files", Path: "/secure-files", Section: SectionSecure, Roles: auditRoles},
		Rule{View: ViewHelp, Title: "Help", Path: "/help", Section: SectionAccount},
		Rule{View: ViewProfile, Title: "Profile", Path: "/profile", Section: SectionAccount},
		Rule{View: ViewShortcuts, Title: "Keyboard shortcuts", Path: "/shortcuts", Section: SectionAccount},
	)
}
