package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/conversation"
	"github.com/trailpaw-ai/companion-platform/internal/middleware"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
)

// PersonaCatalog lists the configured personas.
type PersonaCatalog interface {
	Personas(ctx context.Context) ([]model.Persona, error)
}

// PersonaHandler serves the persona catalog joined with the caller's
// conversations.
type PersonaHandler struct {
	catalog   PersonaCatalog
	directory *conversation.Directory
	logger    *logger.Logger
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(catalog PersonaCatalog, directory *conversation.Directory, log *logger.Logger) *PersonaHandler {
	return &PersonaHandler{
		catalog:   catalog,
		directory: directory,
		logger:    log,
	}
}

// List handles GET /api/v1/personas
//
// Each persona comes back with the caller's conversation, created lazily on
// first sight so the client always has a conversation id to work with.
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	personas, err := h.catalog.Personas(ctx)
	if err != nil {
		h.logger.Error("failed to list personas", zap.Error(err))
		writeErr(w, err)
		return
	}

	items := make([]model.PersonaListItem, 0, len(personas))
	for _, p := range personas {
		conv, err := h.directory.GetOrCreate(ctx, userID, p.ID)
		if err != nil {
			h.logger.Error("failed to resolve conversation",
				zap.String("persona_id", p.ID),
				zap.Error(err),
			)
			writeErr(w, err)
			return
		}
		items = append(items, model.PersonaListItem{
			Persona:      p,
			Conversation: conv,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"personas": items})
}
