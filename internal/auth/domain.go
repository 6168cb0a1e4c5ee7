package auth

import (
	"net/url"
	"strings"
)

// DefaultLanding is where a successful login lands without a usable next.
const DefaultLanding = "/dashboard"

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Next   string
	Errors map[string]string
}

// SafeNext returns next when it is a local absolute path and fallback
// otherwise. Scheme-relative and backslash forms are rejected.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	if u.Path == "/login" || u.Path == "/logout" {
		return fallback
	}
	return next
}
