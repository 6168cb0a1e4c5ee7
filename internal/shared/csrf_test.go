package shared_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/backend"
	"github.com/saas-dashboard/dashboard/internal/shared"
)

func TestFormTokenVerifies(t *testing.T) {
	sm, _ := newSessions(t)
	m := shared.NewCSRFManager("secret")
	var token string
	sess, _ := roundTrip(t, sm, nil, func(s *shared.Session) { token = m.Token(s) })

	require.NotEmpty(t, token)
	assert.Equal(t, token, m.Token(sess))
	assert.NoError(t, m.Verify(sess, token))
	assert.ErrorIs(t, m.Verify(sess, token+"x"), shared.ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.Verify(sess, ""), shared.ErrCSRFTokenMissing)
}

func TestFormTokenSurvivesRegenerateButNotRotate(t *testing.T) {
	sm, _ := newSessions(t)
	m := shared.NewCSRFManager("secret")
	var token string
	sess, _ := roundTrip(t, sm, nil, func(s *shared.Session) { token = m.Token(s) })

	sm.Regenerate(sess)
	assert.NoError(t, m.Verify(sess, token))

	m.Rotate(sess)
	assert.ErrorIs(t, m.Verify(sess, token), shared.ErrCSRFTokenMissing)
}

func TestTokenFromRequest(t *testing.T) {
	form := url.Values{shared.CSRFFormField: {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, "from-form", shared.TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(shared.CSRFHeader, "from-header")
	assert.Equal(t, "from-header", shared.TokenFromRequest(req))
}

func TestUserSafeMessage(t *testing.T) {
	conflict := &backend.StatusError{Status: http.StatusConflict, Detail: "Username already registered"}
	assert.Equal(t, "Username already registered", shared.UserSafeMessage(conflict))
	assert.Equal(t, "conflict", shared.ErrorKind(conflict))

	raw := errors.New("dial tcp 10.0.0.7:8000: connect: connection refused")
	msg := shared.UserSafeMessage(raw)
	assert.NotContains(t, msg, "10.0.0.7")
	assert.Equal(t, "unavailable", shared.ErrorKind(raw))

	assert.Contains(t, shared.UserSafeMessage(&backend.StatusError{Status: http.StatusUnauthorized}), "sign in")
	assert.Empty(t, shared.UserSafeMessage(nil))
}
