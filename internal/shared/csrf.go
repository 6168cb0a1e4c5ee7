package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	// CSRFSessionKey is the key used to persist the form nonce in the browser session.
	CSRFSessionKey = "form_csrf_nonce"
	// CSRFFormField is the form field name carrying the token.
	CSRFFormField = "csrf_token"
	// CSRFHeader lets scripts send the token instead of a form field.
	CSRFHeader = "X-Dashboard-CSRF"
)

// CSRFManager protects the dashboard's own forms. It is unrelated to the
// backend's CSRF token: the browser never sees that one.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager using the provided secret key.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// Token returns the form token for sess, creating the session nonce on
// first use. The token is an HMAC over the nonce and the browser session's
// client ID, so it stays valid across Regenerate.
func (m *CSRFManager) Token(sess *Session) string {
	if sess == nil {
		return ""
	}
	nonce := sess.Get(CSRFSessionKey)
	if nonce == "" {
		nonce = randomNonce()
		sess.Set(CSRFSessionKey, nonce)
	}
	return m.sign(sess.ClientID(), nonce)
}

// Rotate discards the nonce so previously rendered forms stop validating.
func (m *CSRFManager) Rotate(sess *Session) {
	if sess == nil {
		return
	}
	sess.Delete(CSRFSessionKey)
}

// Verify checks token against sess.
func (m *CSRFManager) Verify(sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	nonce := sess.Get(CSRFSessionKey)
	if nonce == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(m.sign(sess.ClientID(), nonce)), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// TokenFromRequest reads the token from the form or the header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.PostFormValue(CSRFFormField)); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get(CSRFHeader))
}

func (m *CSRFManager) sign(clientID, nonce string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(clientID))
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func randomNonce() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
