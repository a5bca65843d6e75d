package model

import (
	"fmt"
	"time"
)

// Role is the closed set of message senders. Adding a role means extending
// this enumeration and the exhaustive mapping below; there is no other
// dispatch on message kinds anywhere in the codebase.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a storage role string onto the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	case RoleSystem:
		return RoleSystem, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ResetMarkerContent is the human-readable content stored on context reset
// markers. Window resolution keys off the ContextReset flag, never off this
// string, so user text equal to the marker cannot truncate a window.
const ResetMarkerContent = "[CONTEXT_RESET]"

// Message is one immutable turn in a conversation's append-only log.
// The autoincrement ID doubles as the per-conversation insertion order;
// readers sort by it, never by application-level sequencing.
//
// SenderID holds the user id for user turns, the persona id for assistant
// turns, and is null for system messages.
type Message struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID string    `json:"conversation_id" gorm:"size:36;not null;index:idx_messages_conversation"`
	Role           Role      `json:"role" gorm:"size:16;not null"`
	Content        string    `json:"content" gorm:"type:text"`
	SenderID       *string   `json:"sender_id" gorm:"size:36"`
	ContextReset   bool      `json:"context_reset" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_messages_created"`
}

// NewResetMarker builds the system message that marks a context reset point.
func NewResetMarker(conversationID string) *Message {
	return &Message{
		ConversationID: conversationID,
		Role:           RoleSystem,
		Content:        ResetMarkerContent,
		ContextReset:   true,
	}
}

// ChatRequest is the request body for one dialogue turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// HistoryResponse is the audit view of a conversation's full log,
// reset markers included.
type HistoryResponse struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}
