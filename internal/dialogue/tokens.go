package dialogue

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates token counts for stats when the generation
// backend does not report usage.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter creates a counter over the cl100k_base encoding. When the
// encoding cannot be loaded the counter falls back to a bytes/4 heuristic.
func NewTokenCounter() *TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

// Count returns the estimated token count of text.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.enc == nil {
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
