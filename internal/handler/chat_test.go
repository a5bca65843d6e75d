package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpaw-ai/companion-platform/internal/conversation"
	"github.com/trailpaw-ai/companion-platform/internal/dialogue"
	"github.com/trailpaw-ai/companion-platform/internal/llm"
	"github.com/trailpaw-ai/companion-platform/internal/middleware"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/internal/session"
	"github.com/trailpaw-ai/companion-platform/internal/store"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
)

// stubGenerator streams canned fragments, then completes or fails.
type stubGenerator struct {
	fragments []string
	err       error
}

func (g *stubGenerator) CompleteStream(ctx context.Context, req *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResult, error) {
	var content string
	for i, f := range g.fragments {
		if err := callback(f, i); err != nil {
			return nil, err
		}
		content += f
	}
	if g.err != nil {
		return nil, g.err
	}
	return &llm.GenerationResult{Content: content, Model: req.Model}, nil
}

type chatFixture struct {
	router *chi.Mux
	store  *store.Store
	token  string
}

func newChatFixture(t *testing.T, gen dialogue.Generator) *chatFixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.SeedPersonas(ctx, []model.Persona{
		{ID: "luna", Name: "Luna", SystemPrompt: "You are Luna.", Model: "test-model", MaxTokens: 256},
	}))

	log := logger.NewNop()
	sessions := session.NewStore(session.NewMemoryKV(), 30*time.Minute, 10*time.Minute, log)
	token, err := sessions.Create(ctx, &model.UserSnapshot{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	dir := conversation.NewDirectory(s, log)
	res := conversation.NewResolver(s)
	orch := dialogue.NewOrchestrator(dir, res, s, s, gen, nil, log)
	h := NewChatHandler(orch, dir, s, nil, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(sessions))
		r.Post("/api/v1/personas/{id}/chat", h.Chat)
		r.Get("/api/v1/personas/{id}/history", h.History)
		r.Post("/api/v1/personas/{id}/reset", h.Reset)
	})

	return &chatFixture{router: r, store: s, token: token}
}

func (f *chatFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var evs []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				ev.name = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				ev.data = v
			}
		}
		if ev.name != "" {
			evs = append(evs, ev)
		}
	}
	return evs
}

func TestChatStreamsFragmentsThenDone(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{fragments: []string{"Hel", "lo ", "there"}})

	w := f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	evs := parseSSE(t, w.Body.String())
	require.Len(t, evs, 4)

	for i, want := range []string{"Hel", "lo ", "there"} {
		assert.Equal(t, "message", evs[i].name)
		var frag map[string]string
		require.NoError(t, json.Unmarshal([]byte(evs[i].data), &frag))
		assert.Equal(t, want, frag["content"])
	}

	require.Equal(t, "done", evs[3].name)
	var turn model.Message
	require.NoError(t, json.Unmarshal([]byte(evs[3].data), &turn))
	assert.Equal(t, model.RoleAssistant, turn.Role)
	assert.Equal(t, "Hello there", turn.Content)
}

func TestChatBackendFailureEmitsSingleErrorEvent(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{
		fragments: []string{"par", "tial"},
		err:       errors.New("upstream overloaded"),
	})

	w := f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: "hi"})
	evs := parseSSE(t, w.Body.String())
	require.Len(t, evs, 3)

	last := evs[2]
	require.Equal(t, "error", last.name)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(last.data), &payload))
	assert.Equal(t, "backend_failure", payload["code"])
}

func TestChatUnknownPersona(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{fragments: []string{"x"}})

	w := f.do(t, http.MethodPost, "/api/v1/personas/ghost/chat", model.ChatRequest{Message: "hi"})
	evs := parseSSE(t, w.Body.String())
	require.Len(t, evs, 1)
	assert.Equal(t, "error", evs[0].name)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(evs[0].data), &payload))
	assert.Equal(t, "not_found", payload["code"])
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{})

	w := f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatRequiresAuth(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(model.ChatRequest{Message: "hi"}))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/personas/luna/chat", &buf)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// brokenStreamWriter fails every write after the first allowed ones, the
// way a closed client connection does.
type brokenStreamWriter struct {
	*httptest.ResponseRecorder
	allowed int
	writes  int
}

func (b *brokenStreamWriter) Write(p []byte) (int, error) {
	if b.writes >= b.allowed {
		return 0, errors.New("write: broken pipe")
	}
	b.writes++
	return b.ResponseRecorder.Write(p)
}

func TestChatStopsStreamingWhenClientWriteFails(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{fragments: []string{"a", "b", "c"}})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(model.ChatRequest{Message: "hi"}))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/personas/luna/chat", &buf)
	r.Header.Set("Authorization", "Bearer "+f.token)

	w := &brokenStreamWriter{ResponseRecorder: httptest.NewRecorder(), allowed: 1}
	f.router.ServeHTTP(w, r)

	// Only the event written before the connection broke made it out.
	evs := parseSSE(t, w.Body.String())
	require.Len(t, evs, 1)
	assert.Equal(t, "message", evs[0].name)
}

func TestHistoryIncludesResetMarkers(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{fragments: []string{"hello"}})

	f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: "first"})

	w := f.do(t, http.MethodPost, "/api/v1/personas/luna/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/personas/luna/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ConversationID)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, model.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, resp.Messages[1].Role)
	assert.True(t, resp.Messages[2].ContextReset, "the audit view keeps reset markers")
}

func TestHistoryBeforeFirstContact(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{})

	w := f.do(t, http.MethodGet, "/api/v1/personas/luna/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetBeforeFirstContact(t *testing.T) {
	f := newChatFixture(t, &stubGenerator{})

	w := f.do(t, http.MethodPost, "/api/v1/personas/luna/reset", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetExcludesEarlierTurnsFromNextWindow(t *testing.T) {
	gen := &stubGenerator{fragments: []string{"ok"}}
	f := newChatFixture(t, gen)
	ctx := context.Background()

	f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: "remember this"})
	f.do(t, http.MethodPost, "/api/v1/personas/luna/reset", nil)
	f.do(t, http.MethodPost, "/api/v1/personas/luna/chat", model.ChatRequest{Message: "after reset"})

	conv, err := f.store.ConversationByUserAndPersona(ctx, "u1", "luna")
	require.NoError(t, err)

	win, err := conversation.NewResolver(f.store).ResolveAll(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, win, 2)
	assert.Equal(t, "after reset", win[0].Content)
	assert.Equal(t, model.RoleAssistant, win[1].Role)
}
