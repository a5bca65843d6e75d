package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// ConversationByUserAndPersona returns the single conversation for the pair,
// or errs.ErrNotFound.
func (s *Store) ConversationByUserAndPersona(ctx context.Context, userID, personaID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ConversationByID returns a conversation by id, or errs.ErrNotFound.
func (s *Store) ConversationByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// CreateConversation inserts a new conversation row. The unique index on
// (user_id, persona_id) turns a concurrent first-contact duplicate into
// errs.ErrConflict; the directory recovers by re-reading.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	return translate(s.db.WithContext(ctx).Create(conv).Error)
}

// IncrementConversationStats applies one turn's stat deltas in a single
// UPDATE: message count +1, token totals += deltas, last_message_at and
// updated_at refreshed. Each call is one increment; exactly-once is the
// caller's contract.
func (s *Store) IncrementConversationStats(ctx context.Context, id string, inputTokens, outputTokens int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"message_count":       gorm.Expr("message_count + 1"),
			"total_input_tokens":  gorm.Expr("total_input_tokens + ?", inputTokens),
			"total_output_tokens": gorm.Expr("total_output_tokens + ?", outputTokens),
			"last_message_at":     now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// TouchConversation refreshes updated_at without touching counters.
func (s *Store) TouchConversation(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}
