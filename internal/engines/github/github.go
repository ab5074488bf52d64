// Package github implements the GitHub search engine adapter: repositories,
// code, issues, and users, with optional LLM-assisted query rewriting and
// on-demand README retrieval.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"deepresearch/internal/searchengine"
)

// QueryOptimizer rewrites a natural-language query into GitHub's search
// filter syntax (stars:>N, language:, in:name,description,readme, ...). A
// nil optimizer leaves the query untouched.
type QueryOptimizer func(ctx context.Context, query string) (string, error)

// SearchType selects which GitHub search endpoint is queried.
type SearchType string

const (
	SearchRepositories SearchType = "repositories"
	SearchCode         SearchType = "code"
	SearchIssues       SearchType = "issues"
	SearchUsers        SearchType = "users"
)

const githubAPIBase = "https://api.github.com"

// GitHub adapts one of GitHub's search endpoints to the research engine
// contract.
type GitHub struct {
	client        *http.Client
	apiBase       string
	apiKey        string
	searchType    SearchType
	includeReadme bool
	maxResults    int
	optimize      QueryOptimizer
}

// New builds a GitHub adapter. apiKey may be empty (unauthenticated requests
// are subject to GitHub's much lower anonymous rate limit). optimize may be
// nil, in which case the raw query text is sent as-is.
func New(apiKey string, searchType SearchType, includeReadme bool, maxResults int, optimize QueryOptimizer, client *http.Client) *GitHub {
	if searchType == "" {
		searchType = SearchRepositories
	}
	if maxResults <= 0 {
		maxResults = 15
	}
	return &GitHub{
		client:        client,
		apiBase:       githubAPIBase,
		apiKey:        apiKey,
		searchType:    searchType,
		includeReadme: includeReadme,
		maxResults:    maxResults,
		optimize:      optimize,
	}
}

func (e *GitHub) Name() string            { return "github" }
func (e *GitHub) RequiresAPIKey() bool     { return false }
func (e *GitHub) RequiresLLM() bool        { return false }
func (e *GitHub) SupportsFullSearch() bool { return e.includeReadme && e.searchType == SearchRepositories }

func (e *GitHub) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	query := q.Text
	if e.optimize != nil {
		if optimized, err := e.optimize(ctx, query); err == nil && strings.TrimSpace(optimized) != "" {
			query = optimized
		}
	}

	v := url.Values{}
	v.Set("q", query)
	v.Set("per_page", strconv.Itoa(e.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBase+"/search/"+string(e.searchType)+"?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build github request", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "deepresearch-agent")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "token "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "github request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "github rate limited", nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "github rate limit exhausted", nil)
		}
		return nil, searchengine.NewError(searchengine.ErrorKindAuth, "github rejected credentials", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("github returned HTTP %d", resp.StatusCode), nil)
	}

	return e.parseResults(resp.Body)
}

func (e *GitHub) parseResults(body io.Reader) ([]searchengine.SearchResult, error) {
	switch e.searchType {
	case SearchCode:
		return decodeGithub(body, parseCodeItem)
	case SearchIssues:
		return decodeGithub(body, parseIssueItem)
	case SearchUsers:
		return decodeGithub(body, parseUserItem)
	default:
		return decodeGithub(body, parseRepositoryItem)
	}
}

type githubSearchEnvelope struct {
	Items []json.RawMessage `json:"items"`
}

func decodeGithub(r io.Reader, parse func(json.RawMessage) (searchengine.SearchResult, bool)) ([]searchengine.SearchResult, error) {
	var env githubSearchEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode github search response", err)
	}
	out := make([]searchengine.SearchResult, 0, len(env.Items))
	for _, raw := range env.Items {
		result, ok := parse(raw)
		if !ok {
			continue
		}
		out = append(out, result)
	}
	return out, nil
}

func parseRepositoryItem(raw json.RawMessage) (searchengine.SearchResult, bool) {
	var repo struct {
		FullName        string `json:"full_name"`
		HTMLURL         string `json:"html_url"`
		Description     string `json:"description"`
		StargazersCount int    `json:"stargazers_count"`
		Language        string `json:"language"`
	}
	if err := json.Unmarshal(raw, &repo); err != nil {
		return searchengine.SearchResult{}, false
	}
	snippet := repo.Description
	if snippet == "" {
		snippet = "No description provided"
	}
	return searchengine.SearchResult{
		ID:      repo.FullName,
		Title:   repo.FullName,
		Link:    repo.HTMLURL,
		Snippet: snippet,
		Source:  "github",
		Extra: map[string]any{
			"stars":    repo.StargazersCount,
			"language": repo.Language,
		},
	}, true
}

func parseCodeItem(raw json.RawMessage) (searchengine.SearchResult, bool) {
	var code struct {
		Name       string `json:"name"`
		Path       string `json:"path"`
		HTMLURL    string `json:"html_url"`
		Repository struct {
			FullName string `json:"full_name"`
			HTMLURL  string `json:"html_url"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(raw, &code); err != nil {
		return searchengine.SearchResult{}, false
	}
	return searchengine.SearchResult{
		ID:      code.Repository.FullName + ":" + code.Path,
		Title:   code.Name,
		Link:    code.HTMLURL,
		Snippet: code.Path,
		Source:  "github",
		Extra: map[string]any{
			"repo_name": code.Repository.FullName,
			"repo_url":  code.Repository.HTMLURL,
		},
	}, true
}

func parseIssueItem(raw json.RawMessage) (searchengine.SearchResult, bool) {
	var issue struct {
		Title           string `json:"title"`
		HTMLURL         string `json:"html_url"`
		Body            string `json:"body"`
		State           string `json:"state"`
		RepositoryURL   string `json:"repository_url"`
		Number          int    `json:"number"`
		PullRequestFlag any    `json:"pull_request,omitempty"`
	}
	if err := json.Unmarshal(raw, &issue); err != nil {
		return searchengine.SearchResult{}, false
	}
	snippet := issue.Body
	if len(snippet) > 300 {
		snippet = snippet[:300] + "..."
	}
	return searchengine.SearchResult{
		ID:      fmt.Sprintf("%s#%d", issue.RepositoryURL, issue.Number),
		Title:   issue.Title,
		Link:    issue.HTMLURL,
		Snippet: snippet,
		Source:  "github",
		Extra:   map[string]any{"state": issue.State},
	}, true
}

func parseUserItem(raw json.RawMessage) (searchengine.SearchResult, bool) {
	var user struct {
		Login   string `json:"login"`
		HTMLURL string `json:"html_url"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return searchengine.SearchResult{}, false
	}
	return searchengine.SearchResult{
		ID:      user.Login,
		Title:   user.Login,
		Link:    user.HTMLURL,
		Snippet: user.Type,
		Source:  "github",
	}, true
}

// GetFullContent fetches and base64-decodes each repository's README via the
// contents API. Only meaningful for SearchRepositories; other search types
// return previews unchanged (SupportsFullSearch reports false for them).
func (e *GitHub) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		out[i] = p
		readme, err := e.fetchReadme(ctx, p.ID)
		if err != nil {
			out[i].Content = p.Snippet
			out[i].FullContent = p.Snippet
			continue
		}
		out[i].Content = readme
		out[i].FullContent = readme
	}
	return out, nil
}

func (e *GitHub) fetchReadme(ctx context.Context, repoFullName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBase+"/repos/"+repoFullName+"/readme", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "deepresearch-agent")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "token "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch readme for %s: HTTP %d", repoFullName, resp.StatusCode)
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Encoding != "base64" {
		return payload.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
