// Package identity models the authenticated user as resolved from the
// backend: a single role from a closed set plus an independent permission set.
package identity

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// ID is the backend's opaque user identifier. The backend emits numbers;
// strings are accepted as well.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Permissions is a set of capability names, normalised to lower case.
type Permissions map[string]struct{}

// NewPermissions builds a set from names, ignoring blanks.
func NewPermissions(names ...string) Permissions {
	set := make(Permissions, len(names))
	for _, name := range names {
		if key := normalizePermission(name); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains name.
func (p Permissions) Has(name string) bool {
	_, ok := p[normalizePermission(name)]
	return ok
}

// Missing returns the required permissions absent from the set, in input order.
func (p Permissions) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if normalizePermission(name) == "" {
			continue
		}
		if !p.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// HasAll reports whether every required permission is present.
func (p Permissions) HasAll(required []string) bool {
	return len(p.Missing(required)) == 0
}

// Sorted returns the set as a sorted slice.
func (p Permissions) Sorted() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Sorted())
}

// UnmarshalJSON decodes an array of names.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*p = NewPermissions(names...)
	return nil
}

func normalizePermission(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Identity is the currently authenticated user.
type Identity struct {
	ID          ID          `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        Role        `json:"-"`
	RawRole     string      `json:"role"`
	Permissions Permissions `json:"permissions"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

type identityAlias Identity

// UnmarshalJSON decodes the backend payload and derives Role from the raw
// role string. A missing or unrecognised role yields RoleUnknown.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var wire struct {
		identityAlias
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*i = Identity(wire.identityAlias)
	i.Role = ParseRole(i.RawRole)
	if i.Permissions == nil {
		i.Permissions = Permissions{}
	}
	i.CreatedAt = parseTimestamp(wire.CreatedAt)
	return nil
}

// MarshalJSON writes the canonical role name when the role is recognised.
func (i Identity) MarshalJSON() ([]byte, error) {
	wire := identityAlias(i)
	if i.Role.Known() {
		wire.RawRole = i.Role.String()
	}
	if wire.Permissions == nil {
		wire.Permissions = Permissions{}
	}
	return json.Marshal(wire)
}

// Valid reports whether the payload carries enough to be held as an identity.
func (i *Identity) Valid() bool {
	return i != nil && (i.ID != "" || i.Username != "")
}

// Clone returns a deep copy so readers never share the writer's set.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.Permissions = make(Permissions, len(i.Permissions))
	for k := range i.Permissions {
		out.Permissions[k] = struct{}{}
	}
	return &out
}

// DisplayName prefers the username and falls back to the email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Username != "" {
		return i.Username
	}
	return i.Email
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
