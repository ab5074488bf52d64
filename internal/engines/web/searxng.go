package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"deepresearch/internal/searchengine"
)

// SearXNG is the self-hosted meta-engine adapter. Unlike the generic-web
// family it needs no API key and is the engine the rate limit tracker
// optimistically defaults to 0.1s for, since it's typically local.
type SearXNG struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewSearXNG builds a SearXNG adapter against a self-hosted instance.
func NewSearXNG(baseURL string, maxResults int, client *http.Client) *SearXNG {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearXNG{baseURL: baseURL, maxResults: maxResults, client: client}
}

func (e *SearXNG) Name() string            { return "searxng" }
func (e *SearXNG) RequiresAPIKey() bool     { return false }
func (e *SearXNG) RequiresLLM() bool        { return false }
func (e *SearXNG) SupportsFullSearch() bool { return true }

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (e *SearXNG) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "searxng rate limited", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "searxng non-2xx response", nil)
	}

	var body searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode searxng response", err)
	}

	out := make([]searchengine.SearchResult, 0, len(body.Results))
	for i, r := range body.Results {
		if len(out) >= e.maxResults {
			break
		}
		out = append(out, searchengine.SearchResult{
			ID:      "searxng-" + itoa(i),
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
			Source:  "searxng",
		})
	}
	return out, nil
}

func (e *SearXNG) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		out[i] = p
		text, err := fetchReadable(ctx, e.client, p.Link)
		if err != nil {
			out[i].Content = p.Snippet
			out[i].FullContent = p.Snippet
			continue
		}
		out[i].Content = text
		out[i].FullContent = text
	}
	return out, nil
}
