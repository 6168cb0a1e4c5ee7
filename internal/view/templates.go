package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/nav"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Identity    *identity.Identity
	Nav         []nav.Section
	Data        any

	// Refresh, when positive, asks the browser to reload after that many seconds.
	Refresh int
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	title := cases.Title(language.English)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		// label turns backend enum values such as in_progress into "In Progress".
		"label": func(s string) string {
			return title.String(strings.ReplaceAll(s, "_", " "))
		},
		"join": strings.Join,
		"hasPerm": func(who *identity.Identity, perm string) bool {
			return who != nil && who.Permissions.Has(perm)
		},
		"contains": func(list []string, s string) bool {
			for _, item := range list {
				if item == s {
					return true
				}
			}
			return false
		},
		"slug": func(s string) string {
			return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
		},
		"list": func(items ...string) []string {
			return items
		},
		"initial": func(s string) string {
			r, _ := utf8.DecodeRuneInString(s)
			if r == utf8.RuneError {
				return "?"
			}
			return string(unicode.ToUpper(r))
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html", "templates/pages/*/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderStatus writes status before rendering.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return e.templates.ExecuteTemplate(w, name, data)
}
