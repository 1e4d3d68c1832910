// Package testutil holds helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookrec/internal/httpx"
	"bookrec/internal/platform/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	TestUserID    = "7f9c2ba4-e88f-4d6e-9a2b-3c1d5e7f9a0b"
	TestSessionID = "0b1c2d3e-4f50-4617-8293-a4b5c6d7e8f9"
)

// Token signs a valid access token for userID bound to sessionID.
func Token(t testing.TB, secret, userID, sessionID string) string {
	t.Helper()
	token, err := crypto.GenerateToken(secret, userID, sessionID, time.Hour)
	require.NoError(t, err)
	return token
}

// ExpiredToken signs a token that expired an hour ago.
func ExpiredToken(t testing.TB, secret, userID, sessionID string) string {
	t.Helper()
	c := crypto.Claims{
		Sub: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// NewRequest builds a request with body encoded as JSON. A string body is
// sent verbatim so tests can post malformed payloads.
func NewRequest(method, path string, body any) *http.Request {
	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, bytes.NewBufferString(b))
	default:
		encoded, _ := json.Marshal(b)
		r = httptest.NewRequest(method, path, bytes.NewReader(encoded))
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// NewRequestAs builds a request that already carries an authenticated user,
// as AuthMiddleware would leave it. An empty userID leaves it anonymous.
func NewRequestAs(method, path string, body any, userID string) *http.Request {
	r := NewRequest(method, path, body)
	if userID == "" {
		return r
	}
	return r.WithContext(httpx.ContextWithUser(r.Context(), userID, TestSessionID))
}

// Envelope is the decoded form of any httpx response.
type Envelope struct {
	Success bool                    `json:"success"`
	Data    json.RawMessage         `json:"data"`
	Meta    map[string]any          `json:"meta"`
	Error   httpx.ErrorResponseBody `json:"error"`
}

// Decode parses rec's body as a response envelope.
func Decode(t testing.TB, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// DecodeData parses the data member of rec's envelope into v.
func DecodeData(t testing.TB, rec *httptest.ResponseRecorder, v any) Envelope {
	t.Helper()
	env := Decode(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, v))
	return env
}
