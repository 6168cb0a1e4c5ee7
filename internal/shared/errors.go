package shared

import (
	"context"
	"errors"
	"net/http"

	"github.com/saas-dashboard/dashboard/internal/backend"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCSRFTokenMissing occurs when the form token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the form token does not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrNoClient occurs when a request reaches a handler without a backend client bundle.
	ErrNoClient = errors.New("backend client not bound to request")
)

// UserSafeMessage turns an error from a backend call into text suitable for
// a flash message. Transport details never reach the page.
func UserSafeMessage(err error) string {
	detail := backend.DetailOf(err)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, backend.ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, backend.ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, ErrNotFound):
		return "The requested item no longer exists."
	case errors.Is(err, backend.ErrConflict):
		if detail != "" {
			return detail
		}
		return "That item already exists."
	case errors.Is(err, backend.ErrValidation):
		if detail != "" {
			return detail
		}
		return "The backend rejected the submitted data."
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend took too long to respond. Please try again."
	default:
		return "The backend is unavailable right now. Please try again."
	}
}

// ErrorKind labels an error for metrics.
func ErrorKind(err error) string {
	return backend.Kind(err)
}

// HTTPStatus picks the status to render a page with after a failed backend call.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, backend.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, backend.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
