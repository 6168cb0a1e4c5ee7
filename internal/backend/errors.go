package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized indicates the backend rejected the session (401).
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrForbidden indicates the session lacks a grant, or the CSRF token was refused (403).
	ErrForbidden = errors.New("backend: forbidden")
	// ErrNotFound indicates the resource does not exist (404).
	ErrNotFound = errors.New("backend: not found")
	// ErrConflict indicates a uniqueness clash such as a taken username (409).
	ErrConflict = errors.New("backend: conflict")
	// ErrValidation indicates the backend refused the payload (400/422).
	ErrValidation = errors.New("backend: validation failed")
	// ErrMalformed indicates a 2xx response whose body could not be decoded.
	ErrMalformed = errors.New("backend: malformed response")
)

// StatusError describes a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: %s %s: %d", e.Method, e.Path, e.Status)
}

// Unwrap maps the status onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden, 419:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return nil
	}
}

// TokenRejected reports whether the response indicates a stale CSRF token.
func (e *StatusError) TokenRejected() bool {
	if e.Status == 419 {
		return true
	}
	return e.Status == http.StatusForbidden && strings.Contains(strings.ToLower(e.Detail), "csrf")
}

// Kind labels err for metrics: unauthorized, forbidden, not_found, conflict,
// validation, malformed or unavailable.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}

// DetailOf extracts the backend's human readable detail, when present.
func DetailOf(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Detail
	}
	return ""
}

// parseDetail understands {"detail": "..."}, {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."} bodies.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(truncate(body, 200)))
	}
	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
