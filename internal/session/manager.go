// Package session owns the authenticated identity of one browser session:
// it resolves it at bootstrap, replaces it on login, and discards it on
// logout or when the backend reports the session gone.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/identity"
)

var (
	// ErrMissingCredentials is recorded when login is attempted with a blank field.
	ErrMissingCredentials = errors.New("session: username and password are required")
	// ErrInvalidCredentials is recorded when the backend refuses the credentials.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrBackendUnavailable is recorded when the backend could not be reached or failed.
	ErrBackendUnavailable = errors.New("session: backend unavailable")
)

// Phase is the position in the session state machine.
type Phase int

const (
	PhaseUnresolved Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a point-in-time copy of the manager's state.
type State struct {
	Phase    Phase
	Identity *identity.Identity
}

// Loading reports whether bootstrap has not completed yet.
func (s State) Loading() bool {
	return s.Phase == PhaseUnresolved
}

// Authenticated reports whether an identity is held.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Identity != nil
}

// AuthAPI is the subset of the backend the manager needs.
type AuthAPI interface {
	Me(ctx context.Context) (*identity.Identity, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*identity.Identity, error)
	Logout(ctx context.Context) error
}

// TokenClearer drops a cached CSRF token.
type TokenClearer interface {
	Clear()
}

// Options tunes a Manager.
type Options struct {
	Logger           *slog.Logger
	BootstrapTimeout time.Duration
	// Observe receives lifecycle events: bootstrap_authenticated,
	// bootstrap_anonymous, login_success, login_failure, logout, expired.
	Observe func(event string)
	// OnSignedOut runs after logout or expiry, once local state is cleared.
	OnSignedOut func()
}

// Manager is the single writer of the current identity.
type Manager struct {
	api              AuthAPI
	tokens           TokenClearer
	logger           *slog.Logger
	bootstrapTimeout time.Duration
	observe          func(string)
	onSignedOut      func()

	mu       sync.RWMutex
	phase    Phase
	current  *identity.Identity
	lastErr  error
	resolved chan struct{}
	closed   bool
	start    sync.Once
}

// NewManager constructs a Manager in the unresolved phase.
func NewManager(api AuthAPI, tokens TokenClearer, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.BootstrapTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		api:              api,
		tokens:           tokens,
		logger:           logger,
		bootstrapTimeout: timeout,
		observe:          opts.Observe,
		onSignedOut:      opts.OnSignedOut,
		resolved:         make(chan struct{}),
	}
}

// Bootstrap resolves the identity from the existing backend session cookie
// and waits for the outcome or for ctx to end. It runs at most once per
// Manager; concurrent and later callers share the first run. Failure of any
// kind leaves the manager anonymous and is not reported as an error.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.Resolve(ctx)
}

// Resolve starts bootstrap if needed and returns the state once resolution
// has completed or ctx has ended, whichever comes first. In the latter case
// the returned state may still be loading.
func (m *Manager) Resolve(ctx context.Context) State {
	m.start.Do(func() {
		go m.runBootstrap()
	})
	select {
	case <-m.resolved:
	case <-ctx.Done():
	}
	return m.Snapshot()
}

func (m *Manager) runBootstrap() {
	// Detached from any request so an abandoned page load does not decide
	// the outcome for the whole browser session.
	ctx, cancel := context.WithTimeout(context.Background(), m.bootstrapTimeout)
	defer cancel()

	if m.Snapshot().Phase != PhaseUnresolved {
		return
	}
	who, err := m.api.Me(ctx)

	m.mu.Lock()
	if m.phase != PhaseUnresolved {
		// Superseded by a login or logout that completed first.
		m.mu.Unlock()
		return
	}
	event := "bootstrap_anonymous"
	if err == nil && who.Valid() {
		m.current = who.Clone()
		m.phase = PhaseAuthenticated
		event = "bootstrap_authenticated"
	} else {
		m.current = nil
		m.phase = PhaseAnonymous
	}
	m.mu.Unlock()

	if err != nil && !errors.Is(err, backend.ErrUnauthorized) {
		m.logger.Warn("session bootstrap failed, continuing anonymous", slog.Any("error", err))
	} else {
		m.logger.Debug("session bootstrap complete", slog.String("event", event))
	}
	m.record(event)

	m.mu.Lock()
	m.markResolvedLocked()
	m.mu.Unlock()
}

// Login authenticates with the backend. It reports success only; the
// reason for a failure is available from LastError. A failed login leaves
// the current identity untouched.
func (m *Manager) Login(ctx context.Context, usernameOrEmail, password string) bool {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" || password == "" {
		m.setLastError(ErrMissingCredentials)
		m.record("login_failure")
		return false
	}

	who, err := m.api.Login(ctx, usernameOrEmail, password)
	if err == nil && !who.Valid() {
		err = fmt.Errorf("%w: login response carried no identity", backend.ErrMalformed)
	}
	if err != nil {
		reason := classifyLoginError(err)
		m.setLastError(reason)
		m.logger.Info("login failed", slog.String("user", usernameOrEmail), slog.Any("error", err))
		m.record("login_failure")
		return false
	}

	m.mu.Lock()
	m.current = who.Clone()
	m.phase = PhaseAuthenticated
	m.lastErr = nil
	m.markResolvedLocked()
	m.mu.Unlock()

	m.logger.Info("login succeeded", slog.String("user", who.DisplayName()), slog.String("role", who.Role.String()))
	m.record("login_success")
	return true
}

// Logout invalidates the backend session on a best-effort basis and then
// always clears the identity and the cached CSRF token.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Info("backend logout failed, clearing local session anyway", slog.Any("error", err))
	}
	m.signOut()
	m.record("logout")
}

// Expire discards the identity after the backend reported the session as
// no longer valid. It is a no-op unless an identity is held.
func (m *Manager) Expire(reason string) {
	m.mu.RLock()
	authenticated := m.phase == PhaseAuthenticated
	m.mu.RUnlock()
	if !authenticated {
		return
	}
	m.logger.Info("session expired", slog.String("reason", reason))
	m.signOut()
	m.record("expired")
}

func (m *Manager) signOut() {
	m.mu.Lock()
	m.current = nil
	m.phase = PhaseAnonymous
	m.markResolvedLocked()
	m.mu.Unlock()
	if m.tokens != nil {
		m.tokens.Clear()
	}
	if m.onSignedOut != nil {
		m.onSignedOut()
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{Phase: m.phase, Identity: m.current.Clone()}
}

// Current returns a copy of the identity, or nil when none is held.
func (m *Manager) Current() *identity.Identity {
	return m.Snapshot().Identity
}

// Loading reports whether bootstrap is still pending.
func (m *Manager) Loading() bool {
	return m.Snapshot().Loading()
}

// LastError returns the reason for the most recent failed login, or nil.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) markResolvedLocked() {
	if !m.closed {
		m.closed = true
		close(m.resolved)
	}
}

func (m *Manager) record(event string) {
	if m.observe != nil {
		m.observe(event)
	}
}

func classifyLoginError(err error) error {
	switch {
	case errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, backend.ErrValidation),
		errors.Is(err, backend.ErrForbidden),
		errors.Is(err, backend.ErrNotFound):
		if detail := backend.DetailOf(err); detail != "" {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, detail)
		}
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}
