package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"deepresearch/internal/searchengine"
)

// Wikipedia queries the MediaWiki action API: list=search for candidate
// titles, then prop=extracts for each title's plain-text summary.
type Wikipedia struct {
	client     *http.Client
	language   string
	sentences  int
	maxResults int
}

// NewWikipedia builds a Wikipedia adapter. language is a MediaWiki language
// code (e.g. "en"); sentences bounds the extract length requested per page.
func NewWikipedia(language string, sentences, maxResults int, client *http.Client) *Wikipedia {
	if language == "" {
		language = "en"
	}
	if sentences <= 0 {
		sentences = 5
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Wikipedia{client: client, language: language, sentences: sentences, maxResults: maxResults}
}

func (e *Wikipedia) Name() string            { return "wikipedia" }
func (e *Wikipedia) RequiresAPIKey() bool     { return false }
func (e *Wikipedia) RequiresLLM() bool        { return false }
func (e *Wikipedia) SupportsFullSearch() bool { return false }

func (e *Wikipedia) apiURL() string {
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", e.language)
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

func (e *Wikipedia) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	titles, err := e.search(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, nil
	}

	out := make([]searchengine.SearchResult, 0, len(titles))
	for _, title := range titles {
		extract, err := e.extract(ctx, title)
		if err != nil {
			// A single page failing (disambiguation, deletion race) does not
			// fail the whole query; it is simply skipped.
			continue
		}
		if extract == "" {
			continue
		}
		out = append(out, searchengine.SearchResult{
			ID:      title,
			Title:   title,
			Link:    fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", e.language, strings.ReplaceAll(title, " ", "_")),
			Snippet: extract,
			Source:  "wikipedia",
		})
	}
	return out, nil
}

func (e *Wikipedia) search(ctx context.Context, query string) ([]string, error) {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("list", "search")
	v.Set("srsearch", query)
	v.Set("srlimit", strconv.Itoa(e.maxResults))
	v.Set("format", "json")

	body, err := e.get(ctx, v)
	if err != nil {
		return nil, err
	}
	var parsed wikiSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode wikipedia search response", err)
	}
	titles := make([]string, 0, len(parsed.Query.Search))
	for _, item := range parsed.Query.Search {
		titles = append(titles, item.Title)
	}
	return titles, nil
}

func (e *Wikipedia) extract(ctx context.Context, title string) (string, error) {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("prop", "extracts")
	v.Set("exintro", "1")
	v.Set("explaintext", "1")
	v.Set("exsentences", strconv.Itoa(e.sentences))
	v.Set("titles", title)
	v.Set("format", "json")
	v.Set("redirects", "1")

	body, err := e.get(ctx, v)
	if err != nil {
		return "", err
	}
	var parsed wikiExtractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", searchengine.NewError(searchengine.ErrorKindParse, "decode wikipedia extract response", err)
	}
	for _, page := range parsed.Query.Pages {
		if page.Missing {
			continue
		}
		return strings.TrimSpace(page.Extract), nil
	}
	return "", nil
}

func (e *Wikipedia) get(ctx context.Context, v url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL()+"?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build wikipedia request", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "wikipedia request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "wikipedia rate limited", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("wikipedia returned HTTP %d", resp.StatusCode), nil)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "read wikipedia body", err)
	}
	return raw, nil
}

// GetFullContent is unsupported: the extract already is the canonical
// summary this adapter offers. The runner keeps the preview content as-is.
func (e *Wikipedia) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	return previews, nil
}
