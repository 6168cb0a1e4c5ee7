package identity

import "strings"

// Role is the single role tag carried by an identity. The zero value is
// RoleUnknown, which never satisfies a role requirement.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleSuperUser
	RoleAdmin
	RoleManager
	RoleITRA
	RoleOperator
	RoleUser
	RoleGuest
)

var roleNames = map[Role]string{
	RoleSuperUser: "SuperUser",
	RoleAdmin:     "Admin",
	RoleManager:   "Manager",
	RoleITRA:      "ITRA",
	RoleOperator:  "Operator",
	RoleUser:      "User",
	RoleGuest:     "Guest",
}

var rolesByName = func() map[string]Role {
	m := make(map[string]Role, len(roleNames))
	for role, name := range roleNames {
		m[name] = role
	}
	return m
}()

// ParseRole maps a wire value to a Role. Matching is exact after trimming
// whitespace; anything else, including the empty string, is RoleUnknown.
func ParseRole(raw string) Role {
	if role, ok := rolesByName[strings.TrimSpace(raw)]; ok {
		return role
	}
	return RoleUnknown
}

// ParseRoles parses a list of role names, dropping nothing: unknown names
// become RoleUnknown entries which match no identity.
func ParseRoles(names ...string) []Role {
	out := make([]Role, 0, len(names))
	for _, name := range names {
		out = append(out, ParseRole(name))
	}
	return out
}

// AllRoles lists the recognised roles in display order.
func AllRoles() []Role {
	return []Role{RoleSuperUser, RoleAdmin, RoleManager, RoleITRA, RoleOperator, RoleUser, RoleGuest}
}

// Known reports whether r is one of the recognised roles.
func (r Role) Known() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// In reports whether r is a member of roles. RoleUnknown is never a member,
// even of a list that itself contains RoleUnknown.
func (r Role) In(roles []Role) bool {
	if !r.Known() {
		return false
	}
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// RoleNames renders roles for display.
func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}
