package chat

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
)

// GeminiClient talks to Google's Gemini API through the genai SDK.
type GeminiClient struct {
	client   *genai.Client
	limiter  *rate.Limiter
	settings Settings
	log      *logger.Logger
}

// NewGemini creates a Gemini-backed chat client.
func NewGemini(ctx context.Context, settings Settings) (*GeminiClient, error) {
	settings = settings.withDefaults()
	if settings.APIKey == "" {
		return nil, errors.NewConfigMissingError("Gemini API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	return &GeminiClient{
		client:   client,
		limiter:  rate.NewLimiter(settings.RateLimit, settings.RateBurst),
		settings: settings,
		log:      logger.Default().WithPrefix("gemini"),
	}, nil
}

var _ Client = (*GeminiClient)(nil)

func (c *GeminiClient) Send(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContext(ctx).WithPrefix("gemini")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTimeoutError(err)
	}

	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	instructions := c.settings.Instructions
	if req.System != "" {
		instructions = req.System
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(c.settings.MaxTokens),
		Temperature:       genai.Ptr(float32(c.settings.Temperature)),
		SystemInstruction: genai.NewContentFromText(systemText(instructions, req.Context), genai.RoleUser),
	}

	callCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	log.Debug("sending generate request: model=%s, turns=%d", c.settings.Model, len(req.Turns))
	start := time.Now()

	resp, err := c.client.Models.GenerateContent(callCtx, c.settings.Model, contents, cfg)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		log.Error("empty response from provider")
		return nil, errors.NewProviderError("provider returned no response text", nil)
	}

	log.Info("generate response received in %v", time.Since(start))
	return &Response{Text: text, Model: c.settings.Model}, nil
}

func classifyGeminiError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(err)
	}

	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return errors.NewAuthError(err)
		case apiErr.Code == http.StatusTooManyRequests:
			return errors.NewRateLimitedError(err)
		default:
			return errors.NewProviderError("chat provider error", err)
		}
	}
	return errors.NewNetworkError(err)
}
