package httpx

import (
	"errors"
	"net/http"

	"github.com/saas-dashboard/dashboard/internal/backend"
)

// ErrUnavailable marks a dependency the handler could not reach.
var ErrUnavailable = errors.New("service unavailable")

// RespondError maps backend and handler errors to RFC7807 responses. Details
// are only echoed for statuses the caller can act on.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
	case errors.Is(err, backend.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, backend.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", backend.DetailOf(err))
	case errors.Is(err, backend.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", backend.DetailOf(err))
	case errors.Is(err, backend.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", backend.DetailOf(err))
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	default:
		Problem(w, http.StatusBadGateway, "Bad Gateway", "")
	}
}
