// Package securefiles lists the classified documents held by the backend.
package securefiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/view"
)

// Row is a listed file and whether the viewer's role is on its access list.
type Row struct {
	backend.SecureFile
	CanOpen bool
}

// Rows marks which files who may open. An unknown role opens nothing.
func Rows(files []backend.SecureFile, who *identity.Identity) []Row {
	rows := make([]Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, Row{SecureFile: f, CanOpen: who != nil && who.Role.In(identity.ParseRoles(f.AccessLevel...))})
	}
	return rows
}

// Handler serves the secure files listing.
type Handler struct {
	logger *slog.Logger
	pages  *view.Renderer
	guard  *access.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, pages *view.Renderer, guard *access.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, pages: pages, guard: guard}
}

// MountRoutes registers the listing behind the secure-files view.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Middleware(access.ViewSecureFiles)).Get("/", h.listFiles)
}

type listData struct {
	Files     []Row
	Total     int
	GrantedBy string
	Notice    string
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	var data listData
	status := http.StatusOK
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		data.Notice = shared.UserSafeMessage(shared.ErrNoClient)
		status = http.StatusBadGateway
	} else if list, err := client.Backend.ListSecureFiles(r.Context()); err != nil {
		h.logger.Warn("list secure files", slog.Any("error", err))
		data.Notice = shared.UserSafeMessage(err)
		status = shared.HTTPStatus(err)
	} else {
		data.Files = Rows(list.Files, shared.IdentityFromContext(r.Context()))
		data.Total = list.TotalCount
		if data.Total == 0 {
			data.Total = len(list.Files)
		}
		data.GrantedBy = list.AccessGrantedBy
	}
	h.pages.Page(w, r, status, "pages/secure_files.html", "Secure Files", data)
}
