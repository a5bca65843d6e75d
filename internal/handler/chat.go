package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/conversation"
	"github.com/trailpaw-ai/companion-platform/internal/dialogue"
	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/events"
	"github.com/trailpaw-ai/companion-platform/internal/middleware"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
	"github.com/trailpaw-ai/companion-platform/pkg/metrics"
)

// HistoryReader reads a conversation's full ordered log.
type HistoryReader interface {
	MessagesByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
}

// ChatHandler serves the SSE dialogue endpoint plus the history and
// context-reset endpoints, all keyed by persona.
type ChatHandler struct {
	orchestrator *dialogue.Orchestrator
	directory    *conversation.Directory
	history      HistoryReader
	publisher    *events.Publisher
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler. publisher may be nil.
func NewChatHandler(
	orchestrator *dialogue.Orchestrator,
	directory *conversation.Directory,
	history HistoryReader,
	publisher *events.Publisher,
	log *logger.Logger,
) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		directory:    directory,
		history:      history,
		publisher:    publisher,
		logger:       log,
	}
}

// Chat handles POST /api/v1/personas/{id}/chat
//
// The response is an SSE stream with exactly one terminal event:
// `message` fragments, then `done` on success or `error` on failure.
// The connection has no artificial timeout; client disconnect cancels
// the in-flight generation.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "id")

	if err := middleware.ValidatePersonaID(personaID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	for ev := range h.orchestrator.RunTurn(ctx, userID, personaID, req.Message) {
		switch ev.Type {
		case dialogue.EventMessage:
			if err := sendSSEEvent(w, flusher, "message", map[string]string{"content": ev.Fragment}); err != nil {
				// Client is gone. Returning ends the request, which
				// cancels the in-flight generation via ctx.
				return
			}

		case dialogue.EventDone:
			if err := sendSSEEvent(w, flusher, "done", ev.Turn); err != nil {
				h.logger.Warn("failed to deliver done event", zap.Error(err))
			}
			return

		case dialogue.EventError:
			status := "backend_failure"
			if errors.Is(ev.Err, errs.ErrNotFound) {
				status = "not_found"
			} else if errors.Is(ev.Err, errs.ErrStoreUnavailable) {
				status = "store_unavailable"
			}
			if err := sendSSEEvent(w, flusher, "error", map[string]string{
				"code":    status,
				"message": ev.Err.Error(),
			}); err != nil {
				h.logger.Warn("failed to deliver error event", zap.Error(err))
			}
			return
		}
	}
}

// History handles GET /api/v1/personas/{id}/history
//
// This is the audit view: the full ordered log including reset markers,
// not the bounded context window.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "id")

	conv, err := h.directory.FindByUserAndPersona(ctx, userID, personaID)
	if err != nil {
		writeErr(w, err)
		return
	}

	msgs, err := h.history.MessagesByConversation(ctx, conv.ID)
	if err != nil {
		h.logger.Error("failed to load history", zap.Error(err))
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.HistoryResponse{
		ConversationID: conv.ID,
		Messages:       msgs,
	})
}

// Reset handles POST /api/v1/personas/{id}/reset
//
// A reset appends a marker to the log; nothing is deleted, and nothing
// before the marker ever re-enters the context window.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "id")

	conv, err := h.directory.FindByUserAndPersona(ctx, userID, personaID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := h.directory.ResetContext(ctx, conv.ID); err != nil {
		h.logger.Error("failed to reset context", zap.Error(err))
		writeErr(w, err)
		return
	}

	h.publisher.Publish(ctx, &model.AuditEvent{
		Type:           model.AuditContextReset,
		UserID:         userID,
		PersonaID:      personaID,
		ConversationID: conv.ID,
		CreatedAt:      time.Now(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
