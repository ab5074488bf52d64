// Package academic implements the academic search engine family: arXiv,
// PubMed, Semantic Scholar, and Wikipedia, all behind the shared
// searchengine.Engine contract.
package academic

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"deepresearch/internal/searchengine"
)

// ArXiv queries the arXiv Atom export API directly; there is no maintained
// Go client in the dependency set, so this talks XML over the shared HTTP
// client instead.
type ArXiv struct {
	client     *http.Client
	baseURL    string
	maxResults int
	sortBy     string // relevance|lastUpdatedDate|submittedDate
	sortOrder  string // ascending|descending
}

const arxivBaseURL = "http://export.arxiv.org/api/query"

// NewArXiv builds an arXiv adapter. maxResults below 25 is raised to 25,
// mirroring the generous over-fetch the reference implementation uses before
// relevance filtering trims the result set back down.
func NewArXiv(maxResults int, client *http.Client) *ArXiv {
	if maxResults < 25 {
		maxResults = 25
	}
	return &ArXiv{client: client, baseURL: arxivBaseURL, maxResults: maxResults, sortBy: "relevance", sortOrder: "descending"}
}

func (e *ArXiv) Name() string            { return "arxiv" }
func (e *ArXiv) RequiresAPIKey() bool     { return false }
func (e *ArXiv) RequiresLLM() bool        { return false }
func (e *ArXiv) SupportsFullSearch() bool { return false }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	JournalRef string `xml:"journal_ref"`
}

func (e *ArXiv) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("search_query", "all:"+q.Text)
	v.Set("max_results", strconv.Itoa(e.maxResults))
	v.Set("sortBy", e.sortBy)
	v.Set("sortOrder", e.sortOrder)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build arxiv request", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "arxiv request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "arxiv rate limited", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("arxiv returned HTTP %d", resp.StatusCode), nil)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode arxiv feed", err)
	}
	return parseArxivFeed(feed), nil
}

func parseArxivFeed(feed arxivFeed) []searchengine.SearchResult {
	out := make([]searchengine.SearchResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		snippet := strings.TrimSpace(entry.Summary)
		if len(snippet) > 250 {
			snippet = snippet[:250] + "..."
		}
		out = append(out, searchengine.SearchResult{
			ID:      entry.ID,
			Title:   strings.TrimSpace(entry.Title),
			Link:    entry.ID,
			Snippet: snippet,
			Source:  "arxiv",
			Extra: map[string]any{
				"authors":     firstAuthors(entry.Authors, 3),
				"published":   entry.Published,
				"journal_ref": entry.JournalRef,
			},
		})
	}
	return out
}

// GetFullContent is unsupported: full-text retrieval would require
// downloading and OCR/PDF-extracting the paper, which this adapter does not
// do. The runner falls back to the preview snippet automatically.
func (e *ArXiv) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	return previews, nil
}

func firstAuthors(authors []struct {
	Name string `xml:"name"`
}, n int) []string {
	if len(authors) < n {
		n = len(authors)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, authors[i].Name)
	}
	return out
}
