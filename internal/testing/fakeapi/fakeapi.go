// Package fakeapi runs an in-process stand-in for the dashboard's REST
// backend. Tests drive it through httptest and inspect what it received.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	_ "github.com/saas-dashboard/dashboard/testing"
)

// SessionCookie is the backend session cookie name.
const SessionCookie = "session_id"

// Account is a user known to the fake backend.
type Account struct {
	ID          int      `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at"`
	Password    string   `json:"-"`
}

// Call records one request received by the fake.
type Call struct {
	Method        string
	Path          string
	CSRFToken     string
	RequestedWith string
}

// Server is a running fake backend. Its exported knobs may be changed
// between requests while holding no lock; tests drive it sequentially.
type Server struct {
	*httptest.Server

	// RequireCSRF rejects state-changing calls, login excepted, without the current token.
	RequireCSRF bool
	// FailLogout makes POST /auth/logout answer 500.
	FailLogout bool
	// FailCSRF makes GET /csrf/token answer 503.
	FailCSRF bool

	mu          sync.Mutex
	accounts    map[string]*Account
	sessions    map[string]string
	tasks       []map[string]any
	token       string
	csrfFetches int
	calls       []Call
	nextID      int
}

// New starts a fake backend seeded with accounts and registers cleanup on t.
func New(t testing.TB, accounts ...Account) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*Account),
		sessions: make(map[string]string),
		token:    uuid.NewString(),
		nextID:   100,
	}
	for i := range accounts {
		acct := accounts[i]
		s.accounts[acct.Username] = &acct
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to configure clients with.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// CSRFFetches reports how many times the token endpoint was hit.
func (s *Server) CSRFFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfFetches
}

// Token returns the token the fake currently accepts.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// RotateToken invalidates the current CSRF token.
func (s *Server) RotateToken() {
	s.mu.Lock()
	s.token = uuid.NewString()
	s.mu.Unlock()
}

// ExpireSessions drops every backend session.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	s.sessions = make(map[string]string)
	s.mu.Unlock()
}

// SessionCount reports the number of live backend sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Calls returns a copy of the request log.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the logged requests matching method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf/token", s.csrfToken)
		r.Post("/auth/login", s.login)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Use(s.csrfCheck)
			r.Get("/me", s.me)
			r.Post("/auth/logout", s.logout)
			r.Get("/users", s.listUsers)
			r.Post("/users", s.createUser)
			r.Get("/users/{id}", s.getUser)
			r.Put("/users/{id}", s.updateUser)
			r.Delete("/users/{id}", s.deleteUser)
			r.Get("/tasks", s.listTasks)
			r.Post("/tasks", s.createTask)
			r.Put("/tasks/{id}", s.updateTask)
			r.Delete("/tasks/{id}", s.deleteTask)
			r.Get("/secure-files", s.secureFiles)
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			CSRFToken:     r.Header.Get("X-CSRF-Token"),
			RequestedWith: r.Header.Get("X-Requested-With"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		_, ok := s.sessions[cookie.Value]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if s.RequireCSRF && r.Header.Get("X-CSRF-Token") != s.Token() {
				writeDetail(w, http.StatusForbidden, "CSRF token missing or invalid")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) current(r *http.Request) *Account {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[s.sessions[cookie.Value]]
}

func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	if s.FailCSRF {
		writeDetail(w, http.StatusServiceUnavailable, "csrf unavailable")
		return
	}
	s.mu.Lock()
	s.csrfFetches++
	token := s.token
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	var acct *Account
	for _, a := range s.accounts {
		if a.Username == body.UsernameOrEmail || a.Email == body.UsernameOrEmail {
			acct = a
			break
		}
	}
	if acct == nil || acct.Password != body.Password {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	sid := uuid.NewString()
	s.sessions[sid] = acct.Username
	snapshot := *acct
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"user": snapshot})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current(r))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if s.FailLogout {
		writeDetail(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		users = append(users, *a)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body Account
	var raw struct {
		Password string `json:"password"`
	}
	data, err := readAll(r)
	if err == nil {
		err = json.Unmarshal(data, &body)
	}
	if err == nil {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil || body.Username == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username is required")
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[body.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusConflict, "Username already registered")
		return
	}
	s.nextID++
	body.ID = s.nextID
	body.Password = raw.Password
	if body.Role == "" {
		body.Role = "User"
	}
	s.accounts[body.Username] = &body
	created := body
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) findUser(r *http.Request) *Account {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil
	}
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.findUser(r)
	var snapshot Account
	if acct != nil {
		snapshot = *acct
	}
	s.mu.Unlock()
	if acct == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	acct := s.findUser(r)
	if acct == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if patch.Email != nil {
		acct.Email = *patch.Email
	}
	if patch.Role != nil {
		acct.Role = *patch.Role
	}
	if patch.IsActive != nil {
		acct.IsActive = *patch.IsActive
	}
	snapshot := *acct
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snapshot)
}

// User returns a copy of the account named username.
func (s *Server) User(username string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[username]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

// AddTask stores task under a fresh id and returns the id.
func (s *Server) AddTask(task map[string]any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	task["id"] = s.nextID
	s.tasks = append(s.tasks, task)
	return s.nextID
}

// Tasks returns a copy of the stored tasks.
func (s *Server) Tasks() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.tasks...)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, a := range s.accounts {
		if a.ID == id {
			delete(s.accounts, name)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tasks := append([]map[string]any(nil), s.tasks...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var task map[string]any
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	s.nextID++
	task["id"] = s.nextID
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) taskIndex(r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return -1
	}
	for i, task := range s.tasks {
		if taskID, ok := task["id"].(int); ok && taskID == id {
			return i
		}
	}
	return -1
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	idx := s.taskIndex(r)
	if idx < 0 {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	for k, v := range patch {
		if k != "id" {
			s.tasks[idx][k] = v
		}
	}
	updated := s.tasks[idx]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.taskIndex(r)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) secureFiles(w http.ResponseWriter, r *http.Request) {
	acct := s.current(r)
	switch acct.Role {
	case "SuperUser", "Admin", "ITRA":
	default:
		writeDetail(w, http.StatusForbidden, "Insufficient role")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": []map[string]any{{
			"id": 1, "name": "quarterly-audit.pdf", "size": "2.4 MB",
			"uploaded_at": "2024-01-15T10:30:00Z", "uploaded_by": "admin",
			"classification": "Confidential", "access_level": []string{"SuperUser", "Admin", "ITRA"},
		}, {
			"id": 2, "name": "incident-response-plan.docx", "size": "860 KB",
			"uploaded_at": "2024-02-02T08:00:00Z", "uploaded_by": "itra",
			"classification": "Top Secret", "access_level": []string{"SuperUser", "ITRA"},
		}},
		"total_count":       2,
		"access_granted_by": "role",
		"role":              acct.Role,
	})
}

func readAll(r *http.Request) ([]byte, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
