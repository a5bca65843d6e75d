package store

import (
	"context"

	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// AppendMessage writes one immutable message to the conversation log.
// The autoincrement id assigned here is the insertion order readers rely on.
func (s *Store) AppendMessage(ctx context.Context, msg *model.Message) error {
	return translate(s.db.WithContext(ctx).Create(msg).Error)
}

// MessagesByConversation returns the full ordered log for a conversation,
// oldest first.
func (s *Store) MessagesByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}
