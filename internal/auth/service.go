package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/saas-dashboard/dashboard/internal/session"
	"github.com/saas-dashboard/dashboard/internal/shared"
)

// ErrLoginRejected is returned when the client bundle refused the login.
var ErrLoginRejected = errors.New("auth: login rejected")

// Service keeps the browser session in step with the backend session held
// by a client bundle.
type Service struct {
	logger   *slog.Logger
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	registry *session.Registry
	audit    *shared.AuditLogger
}

// NewService builds a Service. audit may be nil.
func NewService(logger *slog.Logger, sessions *shared.SessionManager, csrf *shared.CSRFManager, registry *session.Registry, audit *shared.AuditLogger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, sessions: sessions, csrf: csrf, registry: registry, audit: audit}
}

// SignIn logs client in. On success the browser session ID and form token
// are rotated and the new backend cookies are stored with the session. The
// returned error wraps ErrLoginRejected and the manager's recorded cause.
func (s *Service) SignIn(ctx context.Context, sess *shared.Session, client *session.Client, username, password, ip string) error {
	if !client.Session.Login(ctx, username, password) {
		cause := client.Session.LastError()
		s.record(ctx, shared.AuditEntry{Actor: username, Action: "login", Resource: "session", Status: shared.AuditFailed, IP: ip})
		if cause == nil {
			return ErrLoginRejected
		}
		return errors.Join(ErrLoginRejected, cause)
	}
	if sess != nil {
		s.sessions.Regenerate(sess)
		s.csrf.Rotate(sess)
		sess.SetBackendCookies(client.Backend.Cookies())
	}
	s.record(ctx, shared.AuditEntry{Actor: client.Session.Current().DisplayName(), Action: "login", Resource: "session", Status: shared.AuditSuccess, IP: ip})
	return nil
}

// SignOut ends the backend session and discards the browser session and its
// client bundle. Local state is cleared even when the backend call fails.
func (s *Service) SignOut(ctx context.Context, sess *shared.Session, client *session.Client, ip string) {
	actor := ""
	if client != nil {
		actor = client.Session.Current().DisplayName()
		client.Session.Logout(ctx)
	}
	if sess != nil {
		if s.registry != nil {
			s.registry.Forget(sess.ClientID())
		}
		sess.SetBackendCookies(nil)
		s.sessions.Destroy(sess)
	}
	if actor != "" {
		s.record(ctx, shared.AuditEntry{Actor: actor, Action: "logout", Resource: "session", Status: shared.AuditSuccess, IP: ip})
	}
}

func (s *Service) record(ctx context.Context, entry shared.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("record audit entry", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
