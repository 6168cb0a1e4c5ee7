package tasks

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/identity"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/view"
)

// Handler serves the task board.
type Handler struct {
	logger      *slog.Logger
	pages       *view.Renderer
	guard       *access.Guard
	validator   *validator.Validate
	submissions *shared.IdempotencyStore
	now         func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, pages *view.Renderer, guard *access.Guard, submissions *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, pages: pages, guard: guard, validator: validator.New(), submissions: submissions, now: time.Now}
}

// MountRoutes registers task routes. Every route is gated by the tasks view.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.Middleware(access.ViewTasks))
	r.Get("/", h.listTasks)
	r.Post("/", h.createTask)
	r.Post("/{id}/status", h.updateStatus)
	r.Post("/{id}/delete", h.deleteTask)
}

type listData struct {
	Tasks      []Row
	Overdue    int
	Sort       string
	Form       taskForm
	Errors     map[string]string
	Statuses   []string
	Priorities []string
	Notice     string
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, taskForm{Status: StatusPending, Priority: PriorityMedium, Submission: shared.NewSubmissionKey()}, nil)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, status int, form taskForm, errs map[string]string) {
	data := listData{
		Sort:       r.URL.Query().Get("sort"),
		Form:       form,
		Errors:     errs,
		Statuses:   Statuses(),
		Priorities: Priorities(),
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		data.Notice = shared.UserSafeMessage(shared.ErrNoClient)
	} else if list, err := client.Backend.ListTasks(r.Context()); err != nil {
		h.logger.Warn("list tasks", slog.Any("error", err))
		data.Notice = shared.UserSafeMessage(err)
	} else {
		data.Tasks = Rows(list, h.now())
		SortRows(data.Tasks, data.Sort)
		data.Overdue = CountOverdue(data.Tasks)
	}
	h.pages.Page(w, r, status, "pages/tasks/list.html", "Tasks", data)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := taskForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Status:      r.PostFormValue("status"),
		Priority:    r.PostFormValue("priority"),
		Deadline:    strings.TrimSpace(r.PostFormValue("deadline")),
		Assignee:    strings.TrimSpace(r.PostFormValue("assignee")),
		Submission:  r.PostFormValue(shared.SubmissionField),
	}
	if errs := h.validate(form); len(errs) > 0 {
		h.renderList(w, r, http.StatusUnprocessableEntity, form, errs)
		return
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/tasks", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	if !h.submissions.Claim(r.Context(), form.Submission, "tasks") {
		h.pages.Redirect(w, r, "/tasks", "warning", "That form was already submitted.")
		return
	}
	task, err := client.Backend.CreateTask(r.Context(), backend.TaskInput{
		Title:       form.Title,
		Description: form.Description,
		Status:      form.Status,
		Priority:    form.Priority,
		Deadline:    form.Deadline,
		Assignee:    form.Assignee,
	})
	if err != nil {
		h.logger.Warn("create task", slog.Any("error", err))
		h.submissions.Release(r.Context(), form.Submission, "tasks")
		h.renderList(w, r, shared.HTTPStatus(err), form, map[string]string{"general": shared.UserSafeMessage(err)})
		return
	}
	h.pages.Redirect(w, r, "/tasks", "success", "Task \""+task.Title+"\" created")
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	form := statusForm{Status: r.PostFormValue("status")}
	if err := h.validator.Struct(form); err != nil {
		h.pages.Redirect(w, r, "/tasks", "error", "Choose a valid status.")
		return
	}
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/tasks", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	id := identity.ID(chi.URLParam(r, "id"))
	if _, err := client.Backend.UpdateTask(r.Context(), id, backend.TaskPatch{Status: &form.Status}); err != nil {
		h.logger.Warn("update task status", slog.String("task", string(id)), slog.Any("error", err))
		h.pages.Redirect(w, r, "/tasks", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/tasks", "success", "Task status updated")
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	client := shared.ClientFromContext(r.Context())
	if client == nil {
		h.pages.Redirect(w, r, "/tasks", "error", shared.UserSafeMessage(shared.ErrNoClient))
		return
	}
	id := identity.ID(chi.URLParam(r, "id"))
	if err := client.Backend.DeleteTask(r.Context(), id); err != nil {
		h.logger.Warn("delete task", slog.String("task", string(id)), slog.Any("error", err))
		h.pages.Redirect(w, r, "/tasks", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/tasks", "success", "Task deleted")
}

func (h *Handler) validate(form taskForm) map[string]string {
	err := h.validator.Struct(form)
	if err == nil {
		return nil
	}
	errs := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["general"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Title":
			errs[fe.Field()] = "Title is required (200 characters at most)."
		case "Status":
			errs[fe.Field()] = "Choose one of: " + strings.Join(Statuses(), ", ") + "."
		case "Priority":
			errs[fe.Field()] = "Choose one of: " + strings.Join(Priorities(), ", ") + "."
		case "Deadline":
			errs[fe.Field()] = "Use the YYYY-MM-DD format."
		default:
			errs[fe.Field()] = fe.Error()
		}
	}
	return errs
}
