package dialogue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/events"
	"github.com/trailpaw-ai/companion-platform/internal/llm"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
	"github.com/trailpaw-ai/companion-platform/pkg/metrics"
)

// Directory is the conversation directory slice the orchestrator needs.
type Directory interface {
	GetOrCreate(ctx context.Context, userID, personaID string) (*model.Conversation, error)
	UpdateStats(ctx context.Context, conversationID string, inputTokens, outputTokens int) error
}

// ContextResolver supplies the bounded context window for a conversation.
type ContextResolver interface {
	Resolve(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// HistoryAppender persists turns to the append-only log.
type HistoryAppender interface {
	AppendMessage(ctx context.Context, msg *model.Message) error
}

// PersonaSource resolves persona configuration.
type PersonaSource interface {
	PersonaByID(ctx context.Context, id string) (*model.Persona, error)
}

// Generator is the generation backend: a lazy, finite, non-restartable
// fragment stream with a completion or error signal, cancellable via ctx.
type Generator interface {
	CompleteStream(ctx context.Context, req *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResult, error)
}

// Orchestrator runs dialogue turns. One instance is shared by all requests;
// each turn is an independent state machine:
//
//	Resolving → Streaming → Finalizing → Done
//	                 any non-terminal → Failed
//
// Invariants: exactly one user-turn write per invocation; exactly one
// assistant-turn write and one stats update per successful invocation;
// zero assistant-turn writes and zero stats updates on failure.
type Orchestrator struct {
	directory Directory
	resolver  ContextResolver
	history   HistoryAppender
	personas  PersonaSource
	generator Generator
	publisher *events.Publisher
	counter   *TokenCounter
	log       *logger.Logger
}

// NewOrchestrator creates a dialogue orchestrator. publisher may be nil.
func NewOrchestrator(
	directory Directory,
	resolver ContextResolver,
	history HistoryAppender,
	personas PersonaSource,
	generator Generator,
	publisher *events.Publisher,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		directory: directory,
		resolver:  resolver,
		history:   history,
		personas:  personas,
		generator: generator,
		publisher: publisher,
		counter:   NewTokenCounter(),
		log:       log,
	}
}

// RunTurn executes one chat turn and returns its event stream. The channel
// is closed after the single terminal event. Cancelling ctx (client
// disconnect) cancels the in-flight backend stream promptly.
func (o *Orchestrator) RunTurn(ctx context.Context, userID, personaID, content string) <-chan Event {
	out := make(chan Event, 32)
	t := &turn{
		orch:      o,
		userID:    userID,
		personaID: personaID,
		content:   content,
		out:       out,
	}
	go t.run(ctx)
	return out
}

// turn is the per-invocation state machine.
type turn struct {
	orch      *Orchestrator
	userID    string
	personaID string
	content   string
	out       chan Event

	terminal bool
}

// emit delivers an event without blocking past client disconnect.
func (t *turn) emit(ctx context.Context, ev Event) error {
	select {
	case t.out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail emits the single terminal error event. Later calls are no-ops, which
// makes "error after error" unrepresentable rather than merely unlikely.
// The send blocks until the consumer drains any buffered fragments: a
// connected consumer keeps reading, and a disconnect cancels ctx, so the
// terminal event is either delivered or the client is gone.
func (t *turn) fail(ctx context.Context, err error) {
	if t.terminal {
		return
	}
	t.terminal = true
	select {
	case t.out <- Event{Type: EventError, Err: err}:
	case <-ctx.Done():
	}
}

// finish emits the single terminal done event.
func (t *turn) finish(ctx context.Context, assistant *model.Message) {
	if t.terminal {
		return
	}
	t.terminal = true
	_ = t.emit(ctx, Event{Type: EventDone, Turn: assistant})
}

func (t *turn) run(ctx context.Context) {
	defer close(t.out)

	o := t.orch
	start := time.Now()

	tracer := otel.Tracer("dialogue")
	ctx, span := tracer.Start(ctx, "dialogue.turn")
	span.SetAttributes(
		attribute.String("persona.id", t.personaID),
		attribute.String("user.id", t.userID),
	)
	defer span.End()

	status := "success"
	var genModel string
	var tokensIn, tokensOut int
	defer func() {
		metrics.RecordTurn(t.personaID, status, time.Since(start).Seconds(), genModel, tokensIn, tokensOut)
	}()

	// Resolving: persona config and the pair's single conversation.
	persona, err := o.personas.PersonaByID(ctx, t.personaID)
	if err != nil {
		status = "failed"
		span.SetStatus(codes.Error, "persona lookup failed")
		t.fail(ctx, err)
		return
	}

	conv, err := o.directory.GetOrCreate(ctx, t.userID, t.personaID)
	if err != nil {
		status = "failed"
		span.RecordError(err)
		t.fail(ctx, err)
		return
	}

	// The user turn is persisted before generation begins so a crash
	// mid-generation never loses what the user said.
	userTurn := &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        t.content,
		SenderID:       &t.userID,
	}
	if err := o.history.AppendMessage(ctx, userTurn); err != nil {
		status = "failed"
		span.RecordError(err)
		t.fail(ctx, err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	window, err := o.resolver.Resolve(ctx, conv.ID, conv.ContextWindowSize)
	if err != nil {
		status = "failed"
		span.RecordError(err)
		t.fail(ctx, err)
		return
	}

	req := t.buildRequest(persona, window, userTurn.ID)

	// Streaming: relay fragments verbatim, in production order. The
	// callback's error return propagates consumer cancellation back to
	// the backend stream.
	result, err := o.generator.CompleteStream(ctx, req, func(fragment string, index int) error {
		return t.emit(ctx, Event{Type: EventMessage, Fragment: fragment})
	})
	if err != nil {
		// No assistant turn is written for a half-generated reply. The
		// user turn above stays persisted regardless.
		status = "failed"
		span.SetStatus(codes.Error, "generation failed")
		span.RecordError(err)
		o.log.Error("generation stream failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		o.publisher.Publish(context.WithoutCancel(ctx), &model.AuditEvent{
			Type:           model.AuditTurnFailed,
			UserID:         t.userID,
			PersonaID:      t.personaID,
			ConversationID: conv.ID,
			Reason:         err.Error(),
		})
		t.fail(ctx, errs.BackendFailure(err))
		return
	}

	// Finalizing: one assistant write, one stats update.
	genModel = result.Model
	tokensIn = result.TokensIn
	tokensOut = result.TokensOut
	if tokensIn == 0 {
		tokensIn = t.estimatePromptTokens(req)
	}
	if tokensOut == 0 {
		tokensOut = o.counter.Count(result.Content)
	}

	assistant := &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        result.Content,
		SenderID:       &t.personaID,
	}
	if err := o.history.AppendMessage(ctx, assistant); err != nil {
		status = "failed"
		span.RecordError(err)
		t.fail(ctx, err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	if err := o.directory.UpdateStats(ctx, conv.ID, tokensIn, tokensOut); err != nil {
		// The assistant turn is durable; losing the stat increment is a
		// store fault the caller must hear about.
		status = "failed"
		span.RecordError(err)
		t.fail(ctx, err)
		return
	}

	o.publisher.Publish(context.WithoutCancel(ctx), &model.AuditEvent{
		Type:           model.AuditTurnCompleted,
		UserID:         t.userID,
		PersonaID:      t.personaID,
		ConversationID: conv.ID,
		Metadata: map[string]any{
			"tokens_in":  tokensIn,
			"tokens_out": tokensOut,
			"model":      genModel,
		},
	})

	o.log.Info("turn completed",
		zap.String("conversation_id", conv.ID),
		zap.String("persona_id", t.personaID),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
		zap.Duration("duration", time.Since(start)),
	)

	t.finish(ctx, assistant)
}

// buildRequest assembles the backend request from the persona config, the
// resolved window, and the new user message. The freshly appended user turn
// comes back from the resolver; it is excluded by id and re-added last so it
// appears exactly once.
func (t *turn) buildRequest(persona *model.Persona, window []model.Message, userTurnID int64) *llm.GenerationRequest {
	msgs := make([]llm.ChatMessage, 0, len(window)+1)
	for _, m := range window {
		if m.ID == userTurnID || m.Role == model.RoleSystem {
			continue
		}
		msgs = append(msgs, llm.ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	msgs = append(msgs, llm.ChatMessage{
		Role:    string(model.RoleUser),
		Content: t.content,
	})

	return &llm.GenerationRequest{
		Model:        persona.Model,
		SystemPrompt: persona.SystemPrompt,
		Temperature:  persona.Temperature,
		TopP:         persona.TopP,
		MaxTokens:    persona.MaxTokens,
		Messages:     msgs,
	}
}

func (t *turn) estimatePromptTokens(req *llm.GenerationRequest) int {
	n := t.orch.counter.Count(req.SystemPrompt)
	for _, m := range req.Messages {
		n += t.orch.counter.Count(m.Content)
	}
	return n
}
