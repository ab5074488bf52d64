// Package embedclient is a thin HTTP client for an OpenAI-compatible
// embeddings endpoint, used by internal/localindex to turn chunks into
// vectors for the embedding index.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config parameterizes the embedding endpoint.
type Config struct {
	BaseURL   string
	Path      string // default "/v1/embeddings"
	APIKey    string
	APIHeader string // default "Authorization"
	Model     string
	Timeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "/v1/embeddings"
	}
	if c.APIHeader == "" {
		c.APIHeader = "Authorization"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client embeds text batches against one configured endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

// New builds a Client. httpClient may be nil to use http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg.withDefaults(), client: httpClient}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per input string, in the same order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+c.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		if c.cfg.APIHeader == "Authorization" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		} else {
			req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embed endpoint returned %s: %s", resp.Status, string(raw))
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("embed endpoint returned %d vectors, wanted %d", len(parsed.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if v == nil && i < len(parsed.Data) {
			out[i] = parsed.Data[i].Embedding
		}
	}
	return out, nil
}
