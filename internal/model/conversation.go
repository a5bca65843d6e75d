package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// DefaultContextWindowSize is the number of messages a new conversation
// considers as model context.
const DefaultContextWindowSize = 20

// Conversation is the single ongoing relationship between one user and one
// persona. The (UserID, PersonaID) pair is unique; concurrent first contact
// converges on one row through the store's uniqueness constraint.
//
// Conversations are never hard-deleted. A context reset appends a marker
// message to the history instead of mutating rows.
type Conversation struct {
	ID                string             `json:"id" gorm:"primaryKey;size:36"`
	UserID            string             `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_conversations_user_persona"`
	PersonaID         string             `json:"persona_id" gorm:"size:36;not null;uniqueIndex:idx_conversations_user_persona"`
	Status            ConversationStatus `json:"status" gorm:"size:16;not null;default:active"`
	MessageCount      int                `json:"message_count" gorm:"not null;default:0"`
	TotalInputTokens  int64              `json:"total_input_tokens" gorm:"not null;default:0"`
	TotalOutputTokens int64              `json:"total_output_tokens" gorm:"not null;default:0"`
	ContextWindowSize int                `json:"context_window_size" gorm:"not null;default:20"`
	LastMessageAt     *time.Time         `json:"last_message_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
