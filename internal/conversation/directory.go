// Package conversation owns the (user, persona) → conversation mapping and
// the bounded context window handed to the generation backend.
package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
	"github.com/trailpaw-ai/companion-platform/pkg/metrics"
)

// DirectoryStore is the slice of the durable store the directory needs.
type DirectoryStore interface {
	ConversationByUserAndPersona(ctx context.Context, userID, personaID string) (*model.Conversation, error)
	ConversationByID(ctx context.Context, id string) (*model.Conversation, error)
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	IncrementConversationStats(ctx context.Context, id string, inputTokens, outputTokens int) error
	TouchConversation(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg *model.Message) error
	PersonaByID(ctx context.Context, id string) (*model.Persona, error)
}

// Directory enforces single-conversation-per-(user, persona) and owns the
// conversation lifecycle stats.
type Directory struct {
	store DirectoryStore
	log   *logger.Logger
}

// NewDirectory creates a conversation directory.
func NewDirectory(store DirectoryStore, log *logger.Logger) *Directory {
	return &Directory{store: store, log: log}
}

// FindByUserAndPersona is a pure lookup with no side effects.
func (d *Directory) FindByUserAndPersona(ctx context.Context, userID, personaID string) (*model.Conversation, error) {
	return d.store.ConversationByUserAndPersona(ctx, userID, personaID)
}

// GetOrCreate returns the pair's conversation, creating it on first contact.
//
// Creation is safe under concurrent first contact: the insert runs under a
// uniqueness constraint, and a conflict is recovered by re-reading the row
// the winner created. The conflict never surfaces to the caller.
func (d *Directory) GetOrCreate(ctx context.Context, userID, personaID string) (*model.Conversation, error) {
	conv, err := d.store.ConversationByUserAndPersona(ctx, userID, personaID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	if _, err := d.store.PersonaByID(ctx, personaID); err != nil {
		return nil, err
	}

	conv = &model.Conversation{
		ID:                uuid.NewString(),
		UserID:            userID,
		PersonaID:         personaID,
		Status:            model.ConversationActive,
		ContextWindowSize: model.DefaultContextWindowSize,
	}

	err = d.store.CreateConversation(ctx, conv)
	if errors.Is(err, errs.ErrConflict) {
		// Lost the first-contact race; the winner's row is authoritative.
		return d.store.ConversationByUserAndPersona(ctx, userID, personaID)
	}
	if err != nil {
		return nil, err
	}

	metrics.ConversationsCreated.Inc()
	d.log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
		zap.String("persona_id", personaID),
	)
	return conv, nil
}

// ResetContext appends a context-reset marker to the conversation's log and
// refreshes updated_at. History stays queryable for audit; only future
// window resolution is affected. Counters are untouched.
func (d *Directory) ResetContext(ctx context.Context, conversationID string) error {
	if _, err := d.store.ConversationByID(ctx, conversationID); err != nil {
		return err
	}

	if err := d.store.AppendMessage(ctx, model.NewResetMarker(conversationID)); err != nil {
		return err
	}
	if err := d.store.TouchConversation(ctx, conversationID); err != nil {
		return err
	}

	metrics.ContextResets.Inc()
	d.log.Info("context reset", zap.String("conversation_id", conversationID))
	return nil
}

// UpdateStats applies one completed turn's deltas: message count +1, token
// totals += deltas, last-message and updated timestamps refreshed. Each call
// is one increment; the dialogue orchestrator calls it exactly once per
// successful turn.
func (d *Directory) UpdateStats(ctx context.Context, conversationID string, inputTokens, outputTokens int) error {
	return d.store.IncrementConversationStats(ctx, conversationID, inputTokens, outputTokens)
}
