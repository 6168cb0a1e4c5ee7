package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/saas-dashboard/dashboard/internal/identity"
)

// User is a user account as listed by the backend.
type User struct {
	ID          identity.ID `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Permissions []string    `json:"permissions"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   string      `json:"created_at"`
}

// UserInput creates a user account.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UserPatch updates selected fields of a user account.
type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Task is a work item tracked by the backend.
type Task struct {
	ID          identity.ID `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	Deadline    string      `json:"deadline"`
	Assignee    string      `json:"assignee"`
	CreatedAt   string      `json:"created_at"`
}

// TaskInput creates a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// TaskPatch updates selected fields of a task.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}

// SecureFile is a classified document listed by the backend.
type SecureFile struct {
	ID             identity.ID `json:"id"`
	Name           string      `json:"name"`
	Size           string      `json:"size"`
	UploadedAt     string      `json:"uploaded_at"`
	UploadedBy     string      `json:"uploaded_by"`
	Classification string      `json:"classification"`
	Description    string      `json:"description"`
	AccessLevel    []string    `json:"access_level"`
}

// SecureFileList is the /secure-files response.
type SecureFileList struct {
	Files           []SecureFile `json:"files"`
	TotalCount      int          `json:"total_count"`
	AccessGrantedBy string       `json:"access_granted_by"`
	Role            string       `json:"role"`
}

// listOf decodes either a bare JSON array or an object holding the array
// under key.
type listOf[T any] struct {
	key   string
	items []T
}

func (l *listOf[T]) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &l.items); err == nil {
		return nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	raw, ok := wrapped[l.key]
	if !ok {
		raw, ok = wrapped["items"]
	}
	if !ok {
		l.items = nil
		return nil
	}
	return json.Unmarshal(raw, &l.items)
}

func itemPath(collection string, id identity.ID) string {
	return collection + "/" + url.PathEscape(string(id))
}

// ListUsers returns all user accounts.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	list := listOf[User]{key: "users"}
	if err := c.Do(ctx, http.MethodGet, PathUsers, nil, &list); err != nil {
		return nil, err
	}
	return list.items, nil
}

// GetUser returns one user account.
func (c *Client) GetUser(ctx context.Context, id identity.ID) (User, error) {
	var user User
	err := c.Do(ctx, http.MethodGet, itemPath(PathUsers, id), nil, &user)
	return user, err
}

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	var env struct {
		User
		Wrapped *User `json:"user"`
	}
	if err := c.Do(ctx, http.MethodPost, PathUsers, in, &env); err != nil {
		return User{}, err
	}
	if env.Wrapped != nil {
		return *env.Wrapped, nil
	}
	return env.User, nil
}

// UpdateUser patches a user account.
func (c *Client) UpdateUser(ctx context.Context, id identity.ID, patch UserPatch) (User, error) {
	var user User
	err := c.Do(ctx, http.MethodPut, itemPath(PathUsers, id), patch, &user)
	return user, err
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id identity.ID) error {
	return c.Do(ctx, http.MethodDelete, itemPath(PathUsers, id), nil, nil)
}

// ListTasks returns all tasks.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	list := listOf[Task]{key: "tasks"}
	if err := c.Do(ctx, http.MethodGet, PathTasks, nil, &list); err != nil {
		return nil, err
	}
	return list.items, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var task Task
	err := c.Do(ctx, http.MethodPost, PathTasks, in, &task)
	return task, err
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, id identity.ID, patch TaskPatch) (Task, error) {
	var task Task
	err := c.Do(ctx, http.MethodPut, itemPath(PathTasks, id), patch, &task)
	return task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id identity.ID) error {
	return c.Do(ctx, http.MethodDelete, itemPath(PathTasks, id), nil, nil)
}

// ListSecureFiles returns the classified documents visible to the session.
func (c *Client) ListSecureFiles(ctx context.Context) (SecureFileList, error) {
	var list SecureFileList
	err := c.Do(ctx, http.MethodGet, PathSecureFiles, nil, &list)
	return list, err
}
