// Package llm adapts an OpenAI-compatible chat completion API to the
// ReasoningClient port.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"ForecastBot/internal/config"
	"ForecastBot/internal/domain"
	"ForecastBot/internal/ports"
)

// Client calls the reasoning service with per-call timeout and bounded
// retries for transient failures. Malformed responses are never retried here;
// that is the caller's concern.
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	maxRetries uint64
}

var _ ports.ReasoningClient = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.ReasoningConfig, maxRetries uint64) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: maxRetries,
	}
}

// Complete sends one system+user exchange and returns the first choice text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	var content string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			if !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("no response choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: reasoning service: %v", domain.ErrSourceUnavailable, err)
	}
	return content, nil
}

// isTransient reports whether an API error is worth retrying: rate limits and
// server-side failures are, client-side mistakes are not.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	// Network-level errors arrive untyped.
	return true
}
