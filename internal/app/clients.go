package app

import (
	"log/slog"
	"net/http"

	"github.com/saas-dashboard/dashboard/internal/observability"
	"github.com/saas-dashboard/dashboard/internal/session"
)

// NewClientRegistry builds the per-browser-session client registry. Bundles
// live as long as the browser session they belong to. transport may be nil.
func NewClientRegistry(cfg *Config, logger *slog.Logger, metrics *observability.Metrics, transport http.RoundTripper) *session.Registry {
	clientCfg := session.ClientConfig{
		BaseURL:          cfg.BackendBaseURL,
		Timeout:          cfg.BackendTimeout,
		BootstrapTimeout: cfg.BootstrapTimeout,
		Logger:           logger,
		Transport:        transport,
		CSRFObserver:     metrics.ObserveCSRF,
		SessionObserver:  metrics.ObserveSession,
		ErrorObserver:    metrics.ObserveBackendError,
	}
	registry := session.NewRegistry(cfg.ClientCacheSize, cfg.SessionTTL, func(id string) (*session.Client, error) {
		return session.NewClient(id, clientCfg)
	})
	metrics.TrackClients(registry.Len)
	return registry
}
