// Package anthropic adapts the Anthropic Messages API to the research
// core's single-turn llmprovider.Invoker contract.
package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"deepresearch/internal/observability"
)

const defaultMaxTokens int64 = 2048

// Client invokes one model with one user-turn prompt and returns the
// concatenated text of the reply. It carries no conversation state; the
// strategies (internal/strategy) own prompt construction per call.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// Config parameterizes a Client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

// New builds a Client. httpClient may be nil to use http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens}
}

// Invoke sends prompt as a single user message and returns the reply text.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	log := observability.FromContext(ctx)
	start := time.Now()

	resp, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("anthropic_invoke_error")
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text := block.Text; text != "" {
			sb.WriteString(text)
		}
	}
	log.Debug().Str("model", c.model).Dur("duration", dur).Msg("anthropic_invoke_ok")
	return sb.String(), nil
}
