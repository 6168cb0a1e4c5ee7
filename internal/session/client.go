package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/csrf"
)

// Client bundles everything one browser session needs to talk to the
// backend: its own cookie jar, CSRF token cache and Manager.
type Client struct {
	ID      string
	Backend *backend.Client
	Tokens  *csrf.TokenCache
	Session *Manager
}

// ClientConfig carries the shared settings used to build a Client.
type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	BootstrapTimeout time.Duration
	Logger           *slog.Logger
	Transport        http.RoundTripper
	CSRFObserver     csrf.Observer
	SessionObserver  func(event string)
	ErrorObserver    func(kind string)
}

// NewClient wires a backend client, token cache and Manager together. A 401
// from any non-auth backend call expires the Manager's identity.
func NewClient(id string, cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("client", shortID(id)))

	tokens := csrf.NewTokenCache(nil, logger, cfg.CSRFObserver)
	be, err := backend.NewClient(cfg.BaseURL, backend.Options{
		Timeout:   cfg.Timeout,
		Logger:    logger,
		Tokens:    tokens,
		Transport: cfg.Transport,
		OnError:   cfg.ErrorObserver,
	})
	if err != nil {
		return nil, err
	}
	mgr := NewManager(be, tokens, Options{
		Logger:           logger,
		BootstrapTimeout: cfg.BootstrapTimeout,
		Observe:          cfg.SessionObserver,
		OnSignedOut:      be.ResetCookies,
	})
	be.OnUnauthorized(func(path string) {
		mgr.Expire("backend returned 401 for " + path)
	})
	return &Client{ID: id, Backend: be, Tokens: tokens, Session: mgr}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
