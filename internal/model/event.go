package model

import (
	"time"
)

// AuditEventType classifies events published to the audit stream.
type AuditEventType string

const (
	AuditTurnCompleted  AuditEventType = "turn_completed"
	AuditTurnFailed     AuditEventType = "turn_failed"
	AuditContextReset   AuditEventType = "context_reset"
	AuditSessionCreated AuditEventType = "session_created"
	AuditSessionEvicted AuditEventType = "session_evicted"
)

// AuditEvent is the record published to JetStream for downstream consumers.
// Publishing is best-effort and never gates turn persistence.
type AuditEvent struct {
	ID             string         `json:"id"`
	Type           AuditEventType `json:"type"`
	UserID         string         `json:"user_id"`
	PersonaID      string         `json:"persona_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
