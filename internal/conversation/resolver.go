package conversation

import (
	"context"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// HistoryReader is the slice of the durable store the resolver needs.
type HistoryReader interface {
	MessagesByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Resolver reconstructs the bounded context window for a conversation.
// It is a pure function of stored state: safe to call repeatedly, no
// mutation.
type Resolver struct {
	history HistoryReader
}

// NewResolver creates a context window resolver.
func NewResolver(history HistoryReader) *Resolver {
	return &Resolver{history: history}
}

// ResolveAll returns the unbounded context window: every message strictly
// after the most recent reset marker (or the whole log when none exists),
// oldest first. Reset markers themselves never appear in a window.
func (r *Resolver) ResolveAll(ctx context.Context, conversationID string) ([]model.Message, error) {
	msgs, err := r.history.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return window(msgs), nil
}

// Resolve returns the context window capped at the most recent limit
// messages. The reset boundary applies first, then the cap drops
// oldest-first. limit must be positive.
func (r *Resolver) Resolve(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, errs.InvalidArgumentf("context window limit must be positive, got %d", limit)
	}

	win, err := r.ResolveAll(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(win) > limit {
		win = win[len(win)-limit:]
	}
	return win, nil
}

// window slices the log strictly after the last reset marker. A reset is a
// hard left boundary: nothing before it ever re-enters context.
func window(msgs []model.Message) []model.Message {
	start := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ContextReset {
			start = i + 1
			break
		}
	}
	return msgs[start:]
}
