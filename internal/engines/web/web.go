// Package web implements the web meta-engine and the web-generic engine
// family (Brave-style, Google-PSE-style, Serp-style, DDG-style, and a
// self-hosted SearXNG-style meta-engine), all behind the shared
// searchengine.Engine contract.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"deepresearch/internal/searchengine"

	"github.com/go-shiori/go-readability"
)

// ResponseParser extracts previews from a provider's raw JSON response body.
type ResponseParser func(body []byte) ([]searchengine.SearchResult, error)

// Config parameterizes one GenericWeb engine instance.
type Config struct {
	Name       string
	BaseURL    string
	APIKey     string
	Region     string
	Language   string
	SafeSearch string
	MaxResults int
	NoAPIKey   bool
	Parse      ResponseParser
	// BuildRequest composes the outbound request for one page of results.
	// startIndex is 0-based, counted in results (not pages).
	BuildRequest func(ctx context.Context, cfg Config, query string, startIndex int) (*http.Request, error)
}

// GenericWeb paginates a provider's search API until MaxResults is reached,
// authenticating via an injected API key, and extracts readable main-content
// text for full-content retrieval.
type GenericWeb struct {
	cfg    Config
	client *http.Client
}

// New constructs a GenericWeb engine. client must be non-nil (callers share
// one pooled, instrumented client per engine per the concurrency model).
func New(cfg Config, client *http.Client) *GenericWeb {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &GenericWeb{cfg: cfg, client: client}
}

func (e *GenericWeb) Name() string            { return e.cfg.Name }
func (e *GenericWeb) RequiresAPIKey() bool     { return !e.cfg.NoAPIKey }
func (e *GenericWeb) RequiresLLM() bool        { return false }
func (e *GenericWeb) SupportsFullSearch() bool { return true }

func (e *GenericWeb) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	if !e.cfg.NoAPIKey && e.cfg.APIKey == "" {
		return nil, searchengine.NewError(searchengine.ErrorKindAuth, e.cfg.Name+": missing API key", nil)
	}

	var out []searchengine.SearchResult
	for len(out) < e.cfg.MaxResults {
		req, err := e.cfg.BuildRequest(ctx, e.cfg, q.Text, len(out))
		if err != nil {
			return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build request", err)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, searchengine.NewError(searchengine.ErrorKindTransport, "request failed", err)
		}
		body, kind, err := readAndClassify(resp)
		if err != nil {
			return nil, err
		}
		if kind != 0 {
			return nil, searchengine.NewError(kind, fmt.Sprintf("%s returned HTTP %d", e.cfg.Name, resp.StatusCode), nil)
		}

		page, err := e.cfg.Parse(body)
		if err != nil {
			return nil, searchengine.NewError(searchengine.ErrorKindParse, "parse response", err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			page[i].Source = e.cfg.Name
		}
		out = append(out, page...)
	}
	if len(out) > e.cfg.MaxResults {
		out = out[:e.cfg.MaxResults]
	}
	return out, nil
}

func (e *GenericWeb) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		out[i] = p
		if p.Link == "" {
			continue
		}
		text, err := fetchReadable(ctx, e.client, p.Link)
		if err != nil {
			// Per-item failure degrades to the snippet, not a whole-batch error.
			out[i].Content = p.Snippet
			out[i].FullContent = p.Snippet
			continue
		}
		out[i].Content = text
		out[i].FullContent = text
	}
	return out, nil
}

func fetchReadable(ctx context.Context, client *http.Client, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", link, resp.StatusCode)
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.TextContent), nil
}

// readAndClassify reads the response body and maps rate-limit / auth status
// codes to their searchengine.ErrorKind. kind is 0 (ErrorKindUnknown) when
// the status is success-shaped and the caller should parse body normally.
func readAndClassify(resp *http.Response) ([]byte, searchengine.ErrorKind, error) {
	defer resp.Body.Close()
	var body []byte
	dec := json.NewDecoder(resp.Body)
	raw := json.RawMessage{}
	if err := dec.Decode(&raw); err == nil {
		body = raw
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return body, searchengine.ErrorKindRateLimited, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return body, searchengine.ErrorKindAuth, nil
	}
	if resp.StatusCode >= 500 {
		return body, searchengine.ErrorKindTransport, nil
	}
	if resp.StatusCode >= 400 {
		return body, searchengine.ErrorKindParse, nil
	}
	return body, 0, nil
}

func addCommonParams(v url.Values, cfg Config) {
	if cfg.Region != "" {
		v.Set("gl", cfg.Region)
	}
	if cfg.Language != "" {
		v.Set("hl", cfg.Language)
	}
	if cfg.SafeSearch != "" {
		v.Set("safe", cfg.SafeSearch)
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
