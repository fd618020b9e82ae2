package chat

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
)

// OpenAIClient talks to the OpenAI chat completions endpoint.
type OpenAIClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	settings   Settings
	log        *logger.Logger
}

// NewOpenAI creates an OpenAI-backed chat client.
func NewOpenAI(settings Settings) *OpenAIClient {
	settings = settings.withDefaults()
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: settings.Timeout},
		limiter:    rate.NewLimiter(settings.RateLimit, settings.RateBurst),
		settings:   settings,
		log:        logger.Default().WithPrefix("openai"),
	}
}

var _ Client = (*OpenAIClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) Send(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContext(ctx).WithPrefix("openai")

	if c.settings.APIKey == "" {
		return nil, errors.NewConfigMissingError("OpenAI API key")
	}

	instructions := c.settings.Instructions
	if req.System != "" {
		instructions = req.System
	}

	messages := make([]chatMessage, 0, len(req.Turns)+1)
	messages = append(messages, chatMessage{
		Role:    "system",
		Content: systemText(instructions, req.Context),
	})
	for _, t := range req.Turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Text})
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.settings.Model,
		Messages:    messages,
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
	})
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	// At most settings.MaxRetries silent retries, and only for transient
	// transport failures. Provider-side rejections are never retried.
	attempts := c.settings.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewTimeoutError(err)
		}

		log.Debug("sending completion request: model=%s, messages=%d, attempt=%d", c.settings.Model, len(messages), attempt)
		start := time.Now()

		resp, err := c.doRequest(ctx, body)
		if err == nil {
			log.Info("completion received in %v", time.Since(start))
			return resp, nil
		}

		lastErr = err
		code := errors.CodeOf(err)
		if code != errors.ErrCodeNetworkError && code != errors.ErrCodeTimeout {
			return nil, err
		}
		if attempt < attempts {
			log.Warn("transient provider failure (%s), retrying: %v", code, err)
		}
	}
	return nil, lastErr
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (*Response, error) {
	log := logger.FromContext(ctx).WithPrefix("openai")
	url := c.settings.BaseURL + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.settings.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		log.Error("completion request failed: status=%d, body=%s", httpResp.StatusCode, string(respBody))
		return nil, classifyStatus(httpResp.StatusCode, string(respBody))
	}

	var out completionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		log.Error("failed to decode completion response: %v", err)
		return nil, errors.NewProviderError("malformed provider response", err)
	}
	if out.Error != nil {
		return nil, errors.NewProviderError(out.Error.Message, nil)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, errors.NewProviderError("provider returned no response text", nil)
	}

	return &Response{Text: out.Choices[0].Message.Content, Model: out.Model}, nil
}

func classifyTransportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(err)
	}
	return errors.NewNetworkError(err)
}

func classifyStatus(status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuthError(err)
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitedError(err)
	case status >= 500:
		return errors.NewProviderError("chat provider error", err)
	default:
		return errors.NewProviderError(fmt.Sprintf("unexpected provider status %d", status), err)
	}
}
