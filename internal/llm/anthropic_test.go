package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anthropicStreamBody is a minimal server-sent event stream in the wire
// format the messages endpoint produces.
const anthropicStreamBody = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-haiku-20240307","stop_reason":null,"usage":{"input_tokens":25,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":9}}

event: message_stop
data: {"type":"message_stop"}

`

func newStubAnthropicClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(srv.URL),
		),
	}
}

func TestAnthropicCompleteStreamReportsUsage(t *testing.T) {
	c := newStubAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(anthropicStreamBody))
	})

	var fragments []string
	result, err := c.CompleteStream(context.Background(), &GenerationRequest{
		Model:     "claude-3-haiku-20240307",
		MaxTokens: 256,
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(fragment string, index int) error {
		fragments = append(fragments, fragment)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", " there"}, fragments)
	assert.Equal(t, "Hello there", result.Content)
	assert.Equal(t, "end_turn", result.StopReason)

	// Usage comes from the stream events, not from a local estimate.
	assert.Equal(t, 25, result.TokensIn)
	assert.Equal(t, 9, result.TokensOut)
}

func TestAnthropicCompleteStreamCallbackCancels(t *testing.T) {
	c := newStubAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(anthropicStreamBody))
	})

	calls := 0
	_, err := c.CompleteStream(context.Background(), &GenerationRequest{
		Model:     "claude-3-haiku-20240307",
		MaxTokens: 256,
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(fragment string, index int) error {
		calls++
		return context.Canceled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
