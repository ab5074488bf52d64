// Package gemini adapts the Google genai SDK to the research core's
// single-turn llmprovider.Invoker contract.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"deepresearch/internal/observability"
)

// Client invokes one Gemini model with one user-turn prompt.
type Client struct {
	sdk   *genai.Client
	model string
}

// Config parameterizes a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds a Client.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Client{sdk: client, model: model}, nil
}

// Invoke sends prompt as a single user turn and returns the reply text.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	log := observability.FromContext(ctx)
	start := time.Now()

	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("gemini_invoke_error")
		return "", err
	}
	log.Debug().Str("model", c.model).Dur("duration", dur).Msg("gemini_invoke_ok")
	return resp.Text(), nil
}
