package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "COMPANION_AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "companion"
)

// Publisher publishes audit events onto the JetStream audit stream.
type Publisher struct {
	client *Client
	log    *logger.Logger
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// EnsureStream ensures the audit stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Dialogue and session audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create audit stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event is published on.
func Subject(userID string, kind model.AuditEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, kind)
}

// Publish emits one audit event. A nil publisher drops it; failures are
// logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, event *model.AuditEvent) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to encode audit event", zap.Error(err))
		return
	}

	if _, err := p.client.JetStream().Publish(ctx, Subject(event.UserID, event.Type), data); err != nil {
		p.log.Warn("failed to publish audit event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
