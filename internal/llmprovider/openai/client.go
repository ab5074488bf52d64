// Package openai adapts the OpenAI chat-completions API to the research
// core's single-turn llmprovider.Invoker contract.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"deepresearch/internal/observability"
)

// Client invokes one model with one user-turn prompt.
type Client struct {
	sdk         openai.Client
	model       string
	temperature float64
}

// Config parameterizes a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// New builds a Client.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{sdk: openai.NewClient(opts...), model: model, temperature: cfg.Temperature}
}

// Invoke sends prompt as a single user message and returns the reply text.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	log := observability.FromContext(ctx)
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if c.temperature > 0 {
		params.Temperature = param.NewOpt(c.temperature)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("openai_invoke_error")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	log.Debug().Str("model", c.model).Dur("duration", dur).Msg("openai_invoke_ok")
	return resp.Choices[0].Message.Content, nil
}
