// Package ai provides the upstream language-model boundary for Ellie,
// generating assistant replies via OpenAI's API or compatible services.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/elliebot/internal/config"
)

// Message roles as understood by the upstream chat completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors for the upstream boundary. ErrNotConfigured means no API
// key is set and must be surfaced before any store or network activity;
// ErrUpstream wraps any failure of the model call itself.
var (
	ErrNotConfigured = errors.New("upstream API key not configured")
	ErrUpstream      = errors.New("upstream AI error")
)

// Message is one role/content entry in a conversation sent upstream.
type Message struct {
	Role    string
	Content string
}

// Client generates assistant replies from an ordered conversation.
type Client interface {
	// Configured reports whether an upstream credential is set.
	Configured() bool

	// GenerateReply sends the conversation upstream and returns the
	// assistant's reply. Fails with ErrNotConfigured when no credential is
	// set and with ErrUpstream on any transport, API, or response failure.
	GenerateReply(ctx context.Context, messages []Message) (string, error)
}

// openAIClient implements Client using the go-openai SDK.
type openAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a new upstream client from configuration. A missing token is
// not an error here: the client is created unconfigured so the absence can
// be reported on the chat path and on /health.
func New(cfg config.AIConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &openAIClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger.With("component", "ai"),
	}

	if cfg.Token != "" {
		clientCfg := openai.DefaultConfig(cfg.Token)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(clientCfg)
	}

	return c
}

// Configured reports whether an upstream credential is set.
func (c *openAIClient) Configured() bool {
	return c.client != nil
}

// GenerateReply sends the conversation to the chat completions endpoint and
// returns the first choice's content.
func (c *openAIClient) GenerateReply(ctx context.Context, messages []Message) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toChatCompletionMessages(messages),
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Chat completion request failed",
			"model", c.model, "error", err, "duration", time.Since(start))
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		c.logger.ErrorContext(ctx, "Chat completion returned no choices", "model", c.model)
		return "", fmt.Errorf("%w: malformed response: no choices", ErrUpstream)
	}

	c.logger.DebugContext(ctx, "Chat completion succeeded",
		"model", c.model, "duration", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}

func toChatCompletionMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// classifyError wraps an SDK failure with ErrUpstream, keeping the failure's
// kind and message so callers can report what went wrong upstream.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: api error (status %d): %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: request error (status %d): %v", ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", ErrUpstream, err)
	}

	return fmt.Errorf("%w: network error: %v", ErrUpstream, err)
}
