package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ServerReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.ServerWriteTimeout, "SSE streams must not be cut off by a write timeout")
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionRenewBelow)
	assert.Equal(t, "personas.yaml", cfg.PersonasFile)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_TIMEOUT", "1h")
	t.Setenv("RATE_LIMIT_REQUESTS", "120")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.SessionTimeout)
	assert.Equal(t, 120, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("SESSION_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
}

func writePersonasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPersonas(t *testing.T) {
	path := writePersonasFile(t, `
personas:
  - id: luna
    name: Luna
    description: A gentle companion.
    system_prompt: You are Luna.
    model: test-model
    temperature: 0.8
    max_tokens: 1024
  - id: rex
    name: Rex
    system_prompt: You are Rex.
`)

	personas, err := LoadPersonas(path)
	require.NoError(t, err)
	require.Len(t, personas, 2)

	luna := personas[0]
	assert.Equal(t, "luna", luna.ID)
	assert.Equal(t, "You are Luna.", luna.SystemPrompt)
	assert.Equal(t, 0.8, luna.Temperature)
	assert.Equal(t, 1024, luna.MaxTokens)
	assert.Equal(t, 1.0, luna.TopP, "top_p defaults when omitted")

	// Generation defaults fill in for rex.
	rex := personas[1]
	assert.Equal(t, 4096, rex.MaxTokens)
	assert.Equal(t, 0.7, rex.Temperature)
}

func TestLoadPersonasMissingID(t *testing.T) {
	path := writePersonasFile(t, `
personas:
  - name: Nameless
    system_prompt: prompt
`)

	_, err := LoadPersonas(path)
	assert.Error(t, err)
}

func TestLoadPersonasMissingSystemPrompt(t *testing.T) {
	path := writePersonasFile(t, `
personas:
  - id: luna
    name: Luna
`)

	_, err := LoadPersonas(path)
	assert.Error(t, err)
}

func TestLoadPersonasMissingFile(t *testing.T) {
	_, err := LoadPersonas(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadPersonasMalformedYAML(t *testing.T) {
	path := writePersonasFile(t, "personas: [not closed")

	_, err := LoadPersonas(path)
	assert.Error(t, err)
}
