// Package webtest runs the whole dashboard against a fake backend and an
// in-memory redis, and drives it like a browser would.
package webtest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/app"
	"github.com/saas-dashboard/dashboard/internal/observability"
	"github.com/saas-dashboard/dashboard/internal/shared"
	"github.com/saas-dashboard/dashboard/internal/testing/fakeapi"
	"github.com/saas-dashboard/dashboard/internal/view"
)

// Password is the password of every seeded account.
const Password = "correct-horse-9"

// Accounts returns one account per role, named after the role in lower case.
func Accounts() []fakeapi.Account {
	specs := []struct {
		name  string
		role  string
		perms []string
	}{
		{"root", "SuperUser", []string{"user:read", "user:create", "user:update", "user:delete", "role:read", "permission:read", "system:read"}},
		{"admin", "Admin", []string{"user:read", "user:create", "user:update", "role:read"}},
		{"manager", "Manager", nil},
		{"itra", "ITRA", []string{"system:read"}},
		{"operator", "Operator", nil},
		{"user", "User", nil},
		{"guest", "Guest", nil},
	}
	out := make([]fakeapi.Account, 0, len(specs))
	for i, s := range specs {
		out = append(out, fakeapi.Account{
			ID:          i + 1,
			Username:    s.name,
			Email:       s.name + "@example.com",
			Role:        s.role,
			Permissions: s.perms,
			IsActive:    true,
			CreatedAt:   "2024-01-15T10:00:00Z",
			Password:    Password,
		})
	}
	return out
}

// Harness is a running dashboard plus the fakes behind it.
type Harness struct {
	t       testing.TB
	API     *fakeapi.Server
	Redis   *miniredis.Miniredis
	Server  *httptest.Server
	Audit   *shared.AuditLogger
	Metrics *observability.Metrics
	Config  *app.Config

	http  *http.Client
	token string
}

// Option adjusts the dashboard before it starts.
type Option func(*options)

type options struct {
	configure func(*app.Config)
	transport http.RoundTripper
}

// WithConfig edits the configuration the dashboard starts with.
func WithConfig(fn func(*app.Config)) Option {
	return func(o *options) { o.configure = fn }
}

// WithTransport routes the dashboard's backend calls through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New starts a dashboard wired to a fake backend seeded with Accounts.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	api := fakeapi.New(t, Accounts()...)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &app.Config{
		AppEnv:              "test",
		LogFormat:           "json",
		RedisPrefix:         "test",
		SessionCookie:       "dashboard_session",
		SessionTTL:          time.Hour,
		CSRFSecret:          "test-secret",
		BackendBaseURL:      api.BaseURL(),
		BackendTimeout:      2 * time.Second,
		BootstrapTimeout:    2 * time.Second,
		BootstrapWait:       2 * time.Second,
		ClientCacheSize:     64,
		RateLimitPerMinute:  10000,
		LoginLimitPerMinute: 1000,
		AuditLogSize:        100,
	}
	if o.configure != nil {
		o.configure(cfg)
	}
	templates, err := view.NewEngine()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(rdb, cfg.RedisPrefix, cfg.AuditLogSize)
	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: shared.NewSessionManager(rdb, cfg.SessionCookie, cfg.RedisPrefix, cfg.SessionTTL, false),
		CSRFManager:    shared.NewCSRFManager(cfg.CSRFSecret),
		Registry:       app.NewClientRegistry(cfg, logger, metrics, o.transport),
		Audit:          audit,
		Submissions:    shared.NewIdempotencyStore(rdb, cfg.RedisPrefix, cfg.SessionTTL, logger),
		Metrics:        metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	h := &Harness{t: t, API: api, Redis: mr, Server: srv, Audit: audit, Metrics: metrics, Config: cfg}
	h.Reset()
	return h
}

// Reset starts a fresh browser with an empty cookie jar.
func (h *Harness) Reset() {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	h.http = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	h.token = ""
}

// Response is a fully read response.
type Response struct {
	Status   int
	Header   http.Header
	Body     string
	Location string
}

// Get requests path without following redirects.
func (h *Harness) Get(path string) Response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.Server.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

// Post submits form to path with the most recently rendered form token.
func (h *Harness) Post(path string, form url.Values) Response {
	h.t.Helper()
	return h.PostWithHeader(path, form, nil)
}

// PostWithHeader is Post with extra request headers.
func (h *Harness) PostWithHeader(path string, form url.Values, header http.Header) Response {
	h.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get(shared.CSRFFormField) == "" {
		form.Set(shared.CSRFFormField, h.token)
	}
	req, err := http.NewRequest(http.MethodPost, h.Server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	return h.do(req)
}

// Login signs in as username and loads the dashboard so later posts carry
// the rotated form token.
func (h *Harness) Login(username string) Response {
	h.t.Helper()
	h.Get("/login")
	res := h.Post("/login", url.Values{"username": {username}, "password": {Password}})
	require.Equal(h.t, http.StatusSeeOther, res.Status, "login as %s: %s", username, res.Body)
	h.Get("/dashboard")
	return res
}

// SetSessionCookie puts c into the browser's cookie jar, as if the browser
// had kept it from an earlier visit.
func (h *Harness) SetSessionCookie(c *http.Cookie) {
	u, err := url.Parse(h.Server.URL)
	require.NoError(h.t, err)
	h.http.Jar.SetCookies(u, []*http.Cookie{c})
}

// Token is the last form token seen in a rendered page.
func (h *Harness) Token() string {
	return h.token
}

// SessionCookie returns the browser session cookie, if any.
func (h *Harness) SessionCookie() *http.Cookie {
	u, _ := url.Parse(h.Server.URL)
	for _, c := range h.http.Jar.Cookies(u) {
		if c.Name == h.Config.SessionCookie {
			return c
		}
	}
	return nil
}

var tokenPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func (h *Harness) do(req *http.Request) Response {
	h.t.Helper()
	res, err := h.http.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	if m := tokenPattern.FindStringSubmatch(string(body)); m != nil {
		h.token = m[1]
	}
	return Response{Status: res.StatusCode, Header: res.Header, Body: string(body), Location: res.Header.Get("Location")}
}
