// Package elasticsearch implements a second local/archival-style search
// engine over a self-hosted Elasticsearch index. No Elasticsearch client
// library is wired into this module's dependency set, so this adapter talks
// to the REST search API directly over net/http + encoding/json (documented
// in DESIGN.md as a stdlib exception).
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"deepresearch/internal/searchengine"
)

// Config parameterizes an Engine instance.
type Config struct {
	BaseURL    string
	Index      string
	APIKey     string
	MaxResults int
}

// Engine queries one Elasticsearch index's _search endpoint with a
// multi_match query over a fixed field set.
type Engine struct {
	cfg    Config
	client *http.Client
}

// New builds an Engine. client must be non-nil.
func New(cfg Config, client *http.Client) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &Engine{cfg: cfg, client: client}
}

func (e *Engine) Name() string            { return "elasticsearch" }
func (e *Engine) RequiresAPIKey() bool     { return e.cfg.APIKey != "" }
func (e *Engine) RequiresLLM() bool        { return false }
func (e *Engine) SupportsFullSearch() bool { return false }

type esQuery struct {
	Size  int `json:"size"`
	Query struct {
		MultiMatch struct {
			Query  string   `json:"query"`
			Fields []string `json:"fields"`
		} `json:"multi_match"`
	} `json:"query"`
}

type esHit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

type esResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

type esDoc struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (e *Engine) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	body := esQuery{Size: e.cfg.MaxResults}
	body.Query.MultiMatch.Query = q.Text
	body.Query.MultiMatch.Fields = []string{"title^2", "content"}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "marshal elasticsearch query", err)
	}

	url := strings.TrimSuffix(e.cfg.BaseURL, "/") + "/" + e.cfg.Index + "/_search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build elasticsearch request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "ApiKey "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "elasticsearch request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "elasticsearch rate limited", nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, searchengine.NewError(searchengine.ErrorKindAuth, "elasticsearch auth failed", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("elasticsearch returned HTTP %d", resp.StatusCode), nil)
	}

	var parsed esResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode elasticsearch response", err)
	}

	out := make([]searchengine.SearchResult, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		var doc esDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		out = append(out, searchengine.SearchResult{
			ID:       h.ID,
			Title:    doc.Title,
			Link:     doc.URL,
			Snippet:  truncate(doc.Content, 300),
			Source:   "elasticsearch",
			Score:    h.Score,
			HasScore: true,
		})
	}
	return out, nil
}

// GetFullContent is unsupported: the indexed document's content field is
// already the canonical text this adapter offers.
func (e *Engine) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	return previews, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
