package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/internal/session"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
)

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(session.NewMemoryKV(), 30*time.Minute, 10*time.Minute, logger.NewNop())
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Session-Token", "xyz789")
	assert.Equal(t, "xyz789", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))
}

func TestSessionAuthAcceptsLiveSession(t *testing.T) {
	sessions := newSessionStore(t)
	token, err := sessions.Create(context.Background(), &model.UserSnapshot{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	var seenUserID, seenToken string
	handler := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = GetUserID(r.Context())
		seenToken = GetSessionToken(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", seenUserID)
	assert.Equal(t, token, seenToken)
}

func TestSessionAuthRejectsMissingToken(t *testing.T) {
	handler := SessionAuth(newSessionStore(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuthRejectsUnknownToken(t *testing.T) {
	handler := SessionAuth(newSessionStore(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserOnBareContext(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))
	assert.Empty(t, GetUserID(context.Background()))
	assert.Empty(t, GetSessionToken(context.Background()))
}
