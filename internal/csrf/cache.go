// Package csrf caches the backend's CSRF token in memory and decorates
// outgoing state-changing requests with it.
package csrf

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	// HeaderToken carries the cached token.
	HeaderToken = "X-CSRF-Token"
	// HeaderRequestedWith is the fixed marker sent on every decorated request.
	HeaderRequestedWith = "X-Requested-With"
	// RequestedWithValue is the marker value.
	RequestedWithValue = "XMLHttpRequest"
)

// Fetcher retrieves a fresh token from the backend.
type Fetcher interface {
	FetchCSRFToken(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

// FetchCSRFToken calls f.
func (f FetcherFunc) FetchCSRFToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Observer receives fetch outcomes; observability wires a Prometheus counter here.
type Observer func(outcome string)

// TokenCache memoises one token. It is the only writer of that token.
type TokenCache struct {
	fetcher Fetcher
	logger  *slog.Logger
	observe Observer

	mu    sync.RWMutex
	token string
	gen   uint64
	group singleflight.Group
}

// NewTokenCache constructs an empty cache.
func NewTokenCache(fetcher Fetcher, logger *slog.Logger, observe Observer) *TokenCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCache{fetcher: fetcher, logger: logger, observe: observe}
}

// SetFetcher installs the fetcher after construction; the backend client and
// the cache reference each other.
func (c *TokenCache) SetFetcher(f Fetcher) {
	c.mu.Lock()
	c.fetcher = f
	c.mu.Unlock()
}

// Token returns the cached token without fetching.
func (c *TokenCache) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// EnsureToken returns the cached token, fetching it once if absent.
// Concurrent callers share a single fetch. A failed fetch yields "" and the
// caller proceeds with the marker header only.
func (c *TokenCache) EnsureToken(ctx context.Context) string {
	c.mu.RLock()
	token, gen, fetcher := c.token, c.gen, c.fetcher
	c.mu.RUnlock()
	if token != "" {
		c.record("hit")
		return token
	}
	if fetcher == nil {
		c.record("unavailable")
		return ""
	}

	ch := c.group.DoChan("token", func() (interface{}, error) {
		if cached := c.Token(); cached != "" {
			return cached, nil
		}
		fresh, err := fetcher.FetchCSRFToken(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		fresh = strings.TrimSpace(fresh)
		c.mu.Lock()
		// A Clear that raced with this fetch wins; the fetched value is still
		// returned to the waiting callers but not cached.
		if c.gen == gen && fresh != "" {
			c.token = fresh
		}
		c.mu.Unlock()
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		c.record("cancelled")
		return ""
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("csrf token fetch failed, proceeding without token", slog.Any("error", res.Err))
			c.record("error")
			return ""
		}
		c.record("fetched")
		token, _ := res.Val.(string)
		return token
	}
}

// AttachHeaders adds the marker header and, when cached, the token header.
// Headers already present in h are left untouched, even when empty.
func (c *TokenCache) AttachHeaders(h http.Header) {
	if h == nil {
		return
	}
	if !present(h, HeaderRequestedWith) {
		h.Set(HeaderRequestedWith, RequestedWithValue)
	}
	if token := c.Token(); token != "" && !present(h, HeaderToken) {
		h.Set(HeaderToken, token)
	}
}

func present(h http.Header, key string) bool {
	_, ok := h[http.CanonicalHeaderKey(key)]
	return ok
}

// Clear drops the cached token.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	c.token = ""
	c.gen++
	c.mu.Unlock()
	c.group.Forget("token")
}

func (c *TokenCache) record(outcome string) {
	if c.observe != nil {
		c.observe(outcome)
	}
}

// IsStateChanging reports whether method mutates server state and therefore
// needs the token.
func IsStateChanging(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
