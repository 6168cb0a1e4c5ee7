package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/saas-dashboard/dashboard/internal/identity"
)

// identityEnvelope accepts both a bare identity and {"user": identity}.
type identityEnvelope struct {
	who *identity.Identity
}

func (e *identityEnvelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		User *identity.Identity `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.User.Valid() {
		e.who = wrapped.User
		return nil
	}
	var bare identity.Identity
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	if bare.Valid() {
		e.who = &bare
	}
	return nil
}

// Me resolves the identity bound to the jar's session cookie.
func (c *Client) Me(ctx context.Context) (*identity.Identity, error) {
	var env identityEnvelope
	if err := c.Do(ctx, http.MethodGet, PathMe, nil, &env); err != nil {
		return nil, err
	}
	if env.who == nil {
		return nil, fmt.Errorf("%w: %s carried no identity", ErrMalformed, PathMe)
	}
	return env.who, nil
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

// Login exchanges credentials for a backend session cookie and the identity.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (*identity.Identity, error) {
	var env identityEnvelope
	body := loginRequest{UsernameOrEmail: usernameOrEmail, Username: usernameOrEmail, Password: password}
	if err := c.Do(ctx, http.MethodPost, PathLogin, body, &env); err != nil {
		return nil, err
	}
	if env.who == nil {
		return nil, fmt.Errorf("%w: %s carried no user", ErrMalformed, PathLogin)
	}
	return env.who, nil
}

// Logout asks the backend to invalidate the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, PathLogout, struct{}{}, nil)
}

// FetchCSRFToken implements csrf.Fetcher.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	var payload struct {
		Token string `json:"csrf_token"`
	}
	if err := c.Do(ctx, http.MethodGet, PathCSRFToken, nil, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", fmt.Errorf("%w: empty csrf_token", ErrMalformed)
	}
	return payload.Token, nil
}
