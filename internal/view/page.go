package view

import (
	"log/slog"
	"net/http"

	"github.com/saas-dashboard/dashboard/internal/nav"
	"github.com/saas-dashboard/dashboard/internal/shared"
)

// Renderer fills the parts of TemplateData every page shares and renders.
type Renderer struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Nav    *nav.Builder
	Logger *slog.Logger
}

// Page renders name with data, pulling the identity, navigation, flash and
// form token from the request.
func (p *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	p.Render(w, r, status, name, TemplateData{Title: title, Data: data})
}

// Render completes td from the request and renders it.
func (p *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, td TemplateData) {
	sess := shared.SessionFromContext(r.Context())
	if td.Identity == nil {
		td.Identity = shared.IdentityFromContext(r.Context())
	}
	td.CSRFToken = p.CSRF.Token(sess)
	td.CurrentPath = r.URL.Path
	if sess != nil && td.Flash == nil {
		td.Flash = sess.PopFlash()
	}
	if p.Nav != nil {
		td.Nav = p.Nav.Build(td.Identity, r.URL.Path)
	}
	if err := p.Engine.RenderStatus(w, status, name, td); err != nil {
		p.logger().Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}

// Redirect queues a flash and redirects with 303.
func (p *Renderer) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (p *Renderer) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
