package chat

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/haleth/cardchat/internal/models"
)

// Request carries one full request/response cycle to the remote provider:
// the card's grounding text plus the ordered turn history (the new user turn
// is the last element). System, when set, replaces the configured standing
// instructions for this request; the study tools use it for their own prompts.
type Request struct {
	System  string
	Context string
	Turns   []models.Turn
}

// Response is the assistant's reply.
type Response struct {
	Text  string
	Model string
}

// Client translates an ordered turn sequence plus context into a single
// request/response cycle with a remote chat provider. Implementations must
// not retry beyond the configured bounded number of attempts, so a flaky
// network cannot produce duplicate-looking assistant turns.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Settings configures a provider client.
type Settings struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	Instructions string
	Timeout      time.Duration
	MaxRetries   int // silent retries on TIMEOUT/NETWORK_ERROR only
	RateLimit    rate.Limit
	RateBurst    int
	BaseURL      string // OpenAI only; overridable for tests
}

func (s Settings) withDefaults() Settings {
	if s.Model == "" {
		s.Model = "gpt-4o-mini"
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 300
	}
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.RateLimit <= 0 {
		s.RateLimit = rate.Limit(1)
	}
	if s.RateBurst <= 0 {
		s.RateBurst = 2
	}
	if s.BaseURL == "" {
		s.BaseURL = "https://api.openai.com/v1"
	}
	return s
}

// systemText combines the standing instructions with the card's visible text.
func systemText(instructions, cardContext string) string {
	if cardContext == "" {
		return instructions
	}
	return instructions + "\n\nThe current flashcard is:\n" + cardContext
}
