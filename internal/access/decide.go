// Package access decides whether a view may be rendered for the current
// session state.
package access

import (
	"github.com/saas-dashboard/dashboard/internal/identity"
)

// Outcome is the result of an access decision.
type Outcome uint8

const (
	// Render shows the requested view.
	Render Outcome = iota
	// Pending holds a neutral loading state while the identity is unresolved.
	Pending
	// RedirectLogin sends an anonymous visitor to the login view.
	RedirectLogin
	// RedirectDenied sends an identity lacking a role or permission to the
	// insufficient permissions view.
	RedirectDenied
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Pending:
		return "pending"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDenied:
		return "redirect_denied"
	default:
		return "unknown"
	}
}

// Decision carries the outcome plus detail for logging. Callers must branch
// on Outcome only; a role failure and a permission failure share the same
// outcome.
type Decision struct {
	Outcome            Outcome
	MissingRoles       []identity.Role
	MissingPermissions []string
}

// Decide is total over its inputs and never consults anything else:
// loading wins, then absence of identity, then the role check, then the
// permission check.
func Decide(who *identity.Identity, loading bool, roles []identity.Role, perms []string) Decision {
	if loading {
		return Decision{Outcome: Pending}
	}
	if who == nil {
		return Decision{Outcome: RedirectLogin}
	}
	if len(roles) > 0 && !who.Role.In(roles) {
		return Decision{Outcome: RedirectDenied, MissingRoles: append([]identity.Role(nil), roles...)}
	}
	if missing := who.Permissions.Missing(perms); len(missing) > 0 {
		return Decision{Outcome: RedirectDenied, MissingPermissions: missing}
	}
	return Decision{Outcome: Render}
}
