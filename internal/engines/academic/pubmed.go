package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"deepresearch/internal/searchengine"
)

// PubMed queries NCBI's E-utilities (esearch for IDs, esummary for
// metadata). An API key raises NCBI's per-second rate limit but is optional.
type PubMed struct {
	client  *http.Client
	apiKey  string
	maxHits int
}

const (
	pubmedBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubmedSearchURL  = pubmedBaseURL + "/esearch.fcgi"
	pubmedSummaryURL = pubmedBaseURL + "/esummary.fcgi"
)

// NewPubMed builds a PubMed adapter. apiKey may be empty.
func NewPubMed(apiKey string, maxHits int, client *http.Client) *PubMed {
	if maxHits <= 0 {
		maxHits = 10
	}
	return &PubMed{client: client, apiKey: apiKey, maxHits: maxHits}
}

func (e *PubMed) Name() string            { return "pubmed" }
func (e *PubMed) RequiresAPIKey() bool     { return false }
func (e *PubMed) RequiresLLM() bool        { return false }
func (e *PubMed) SupportsFullSearch() bool { return false }

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryArticle struct {
	Title           string `json:"title"`
	PubDate         string `json:"pubdate"`
	Source          string `json:"source"`
	FullJournalName string `json:"fulljournalname"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (e *PubMed) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	ids, err := e.search(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.summarize(ctx, ids)
}

func (e *PubMed) search(ctx context.Context, query string) ([]string, error) {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("term", query)
	v.Set("retmode", "json")
	v.Set("retmax", fmt.Sprint(e.maxHits))
	if e.apiKey != "" {
		v.Set("api_key", e.apiKey)
	}

	body, err := e.get(ctx, pubmedSearchURL, v)
	if err != nil {
		return nil, err
	}
	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode pubmed esearch", err)
	}
	return parsed.ESearchResult.IDList, nil
}

func (e *PubMed) summarize(ctx context.Context, ids []string) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("id", strings.Join(ids, ","))
	v.Set("retmode", "json")
	v.Set("rettype", "summary")
	if e.apiKey != "" {
		v.Set("api_key", e.apiKey)
	}

	body, err := e.get(ctx, pubmedSummaryURL, v)
	if err != nil {
		return nil, err
	}
	var parsed esummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode pubmed esummary", err)
	}

	out := make([]searchengine.SearchResult, 0, len(ids))
	for _, pmid := range ids {
		raw, ok := parsed.Result[pmid]
		if !ok {
			continue
		}
		var article esummaryArticle
		if err := json.Unmarshal(raw, &article); err != nil {
			continue
		}
		authors := make([]string, 0, len(article.Authors))
		for _, a := range article.Authors {
			authors = append(authors, a.Name)
		}
		out = append(out, searchengine.SearchResult{
			ID:      pmid,
			Title:   article.Title,
			Link:    "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
			Snippet: fmt.Sprintf("%s (%s)", article.FullJournalName, article.PubDate),
			Source:  "pubmed",
			Extra: map[string]any{
				"authors": authors,
				"journal": article.FullJournalName,
				"pubdate": article.PubDate,
			},
		})
	}
	return out, nil
}

func (e *PubMed) get(ctx context.Context, base string, v url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build pubmed request", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "pubmed request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "pubmed rate limited", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("pubmed returned HTTP %d", resp.StatusCode), nil)
	}

	var buf []byte
	dec := json.NewDecoder(resp.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "read pubmed body", err)
	}
	buf = raw
	return buf, nil
}

// GetFullContent is unsupported: abstract/full-text fetch via efetch is not
// implemented. The runner degrades to the summary snippet.
func (e *PubMed) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	return previews, nil
}
