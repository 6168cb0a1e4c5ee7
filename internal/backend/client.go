// Package backend talks to the external REST API that owns users, tasks,
// secure files and the server-side session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/saas-dashboard/dashboard/internal/csrf"
)

// Backend endpoint paths, relative to the configured base URL.
const (
	PathMe          = "/me"
	PathLogin       = "/auth/login"
	PathLogout      = "/auth/logout"
	PathCSRFToken   = "/csrf/token"
	PathUsers       = "/users"
	PathTasks       = "/tasks"
	PathSecureFiles = "/secure-files"
)

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	Logger    *slog.Logger
	Tokens    *csrf.TokenCache
	Transport http.RoundTripper
	// OnError receives the Kind of every failed call.
	OnError func(kind string)
}

// Client issues credentialed requests against one backend on behalf of one
// session. Its cookie jar holds that session's backend cookies.
type Client struct {
	base   *url.URL
	logger *slog.Logger
	tokens *csrf.TokenCache
	onErr  func(kind string)

	mu             sync.RWMutex
	http           *http.Client
	onUnauthorized func(path string)
}

// NewClient constructs a Client. When opts.Tokens is set the client becomes
// its fetcher.
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must be absolute", baseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("backend: cookie jar: %w", err)
	}
	c := &Client{
		base:   base,
		logger: logger,
		tokens: opts.Tokens,
		onErr:  opts.OnError,
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
	}
	if c.tokens != nil {
		c.tokens.SetFetcher(c)
	}
	return c, nil
}

// Tokens exposes the CSRF cache used for state-changing calls.
func (c *Client) Tokens() *csrf.TokenCache {
	return c.tokens
}

// OnUnauthorized registers the hook fired when a non-auth call returns 401.
func (c *Client) OnUnauthorized(fn func(path string)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Cookies returns the backend cookies currently held for the base URL.
func (c *Client) Cookies() []*http.Cookie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http.Jar.Cookies(c.base)
}

// SetCookies seeds the jar, typically from a persisted browser session.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	seeded := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		cp := *ck
		if cp.Path == "" {
			cp.Path = "/"
		}
		seeded = append(seeded, &cp)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.http.Jar.SetCookies(c.base, seeded)
}

// ResetCookies forgets every backend cookie.
func (c *Client) ResetCookies() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := *c.http
	fresh.Jar = jar
	c.http = &fresh
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a caller-supplied header; CSRF decoration will not overwrite it.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Do sends a JSON request and decodes a JSON response into out. Mutating
// methods wait for the CSRF token before the headers are attached.
func (c *Client) Do(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	err := c.do(ctx, method, path, in, out, opts...)
	if err != nil && c.onErr != nil {
		c.onErr(Kind(err))
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	if c.tokens != nil && csrf.IsStateChanging(method) {
		c.tokens.EnsureToken(ctx)
		c.tokens.AttachHeaders(req.Header)
	}

	c.mu.RLock()
	httpClient := c.http
	c.mu.RUnlock()

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Detail: parseDetail(raw)}
		c.afterFailure(statusErr)
		return statusErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, method, path, err)
	}
	return nil
}

func (c *Client) afterFailure(statusErr *StatusError) {
	if statusErr.TokenRejected() && c.tokens != nil {
		c.logger.Info("backend rejected csrf token, clearing cache", slog.String("path", statusErr.Path))
		c.tokens.Clear()
	}
	if !errors.Is(statusErr, ErrUnauthorized) || isAuthPath(statusErr.Path) {
		return
	}
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook(statusErr.Path)
	}
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

func isAuthPath(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch path {
	case PathMe, PathLogin, PathLogout, PathCSRFToken:
		return true
	default:
		return false
	}
}
