package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"deepresearch/internal/searchengine"
)

// SemanticScholar queries the Semantic Scholar Graph API. An API key raises
// the shared rate limit but is optional.
type SemanticScholar struct {
	client     *http.Client
	apiKey     string
	maxResults int
}

const semanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

// NewSemanticScholar builds a Semantic Scholar adapter. apiKey may be empty.
func NewSemanticScholar(apiKey string, maxResults int, client *http.Client) *SemanticScholar {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SemanticScholar{client: client, apiKey: apiKey, maxResults: maxResults}
}

func (e *SemanticScholar) Name() string            { return "semantic_scholar" }
func (e *SemanticScholar) RequiresAPIKey() bool     { return false }
func (e *SemanticScholar) RequiresLLM() bool        { return false }
func (e *SemanticScholar) SupportsFullSearch() bool { return false }

type semanticScholarResponse struct {
	Data []struct {
		PaperID string `json:"paperId"`
		Title   string `json:"title"`
		Abstract string `json:"abstract"`
		Year    int    `json:"year"`
		Venue   string `json:"venue"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		FieldsOfStudy []string `json:"fieldsOfStudy"`
	} `json:"data"`
}

func (e *SemanticScholar) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("query", q.Text)
	v.Set("limit", strconv.Itoa(e.maxResults))
	v.Set("fields", "title,abstract,year,venue,authors,fieldsOfStudy")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticScholarBaseURL+"/paper/search?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build semantic scholar request", err)
	}
	if e.apiKey != "" {
		req.Header.Set("x-api-key", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "semantic scholar request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "semantic scholar rate limited", nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, searchengine.NewError(searchengine.ErrorKindAuth, "semantic scholar rejected credentials", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("semantic scholar returned HTTP %d", resp.StatusCode), nil)
	}

	var parsed semanticScholarResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode semantic scholar response", err)
	}

	out := make([]searchengine.SearchResult, 0, len(parsed.Data))
	for _, paper := range parsed.Data {
		authors := make([]string, 0, len(paper.Authors))
		for _, a := range paper.Authors {
			authors = append(authors, a.Name)
		}
		out = append(out, searchengine.SearchResult{
			ID:      paper.PaperID,
			Title:   paper.Title,
			Link:    "https://www.semanticscholar.org/paper/" + paper.PaperID,
			Snippet: paper.Abstract,
			Source:  "semantic_scholar",
			Extra: map[string]any{
				"authors":         authors,
				"year":            paper.Year,
				"venue":           paper.Venue,
				"fields_of_study": paper.FieldsOfStudy,
			},
		})
	}
	return out, nil
}

// GetFullContent is unsupported: Semantic Scholar's API does not expose full
// paper text. The runner degrades to the abstract snippet.
func (e *SemanticScholar) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	return previews, nil
}
