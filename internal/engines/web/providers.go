package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"deepresearch/internal/searchengine"
)

// NewBrave builds a GenericWeb engine talking to the Brave Search API.
func NewBrave(apiKey string, maxResults int, client *http.Client) *GenericWeb {
	return New(Config{
		Name:       "brave",
		BaseURL:    "https://api.search.brave.com/res/v1/web/search",
		APIKey:     apiKey,
		MaxResults: maxResults,
		Parse:      parseBrave,
		BuildRequest: func(ctx context.Context, cfg Config, query string, startIndex int) (*http.Request, error) {
			v := url.Values{}
			v.Set("q", query)
			v.Set("offset", itoa(startIndex/10))
			v.Set("count", "10")
			addCommonParams(v, cfg)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"?"+v.Encode(), nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("X-Subscription-Token", cfg.APIKey)
			req.Header.Set("Accept", "application/json")
			return req, nil
		},
	}, client)
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func parseBrave(body []byte) ([]searchengine.SearchResult, error) {
	var r braveResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	out := make([]searchengine.SearchResult, 0, len(r.Web.Results))
	for i, item := range r.Web.Results {
		out = append(out, searchengine.SearchResult{
			ID:      "brave-" + itoa(i),
			Title:   item.Title,
			Link:    item.URL,
			Snippet: item.Description,
		})
	}
	return out, nil
}

// NewGooglePSE builds a GenericWeb engine talking to Google Programmable
// Search Engine's JSON API.
func NewGooglePSE(apiKey, cx string, maxResults int, client *http.Client) *GenericWeb {
	return New(Config{
		Name:       "google_pse",
		BaseURL:    "https://www.googleapis.com/customsearch/v1",
		APIKey:     apiKey,
		MaxResults: maxResults,
		Parse:      parseGooglePSE,
		BuildRequest: func(ctx context.Context, cfg Config, query string, startIndex int) (*http.Request, error) {
			v := url.Values{}
			v.Set("q", query)
			v.Set("key", cfg.APIKey)
			v.Set("cx", cx)
			v.Set("start", itoa(startIndex+1))
			addCommonParams(v, cfg)
			return http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"?"+v.Encode(), nil)
		},
	}, client)
}

type googlePSEResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func parseGooglePSE(body []byte) ([]searchengine.SearchResult, error) {
	var r googlePSEResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	out := make([]searchengine.SearchResult, 0, len(r.Items))
	for i, item := range r.Items {
		out = append(out, searchengine.SearchResult{
			ID:      "google_pse-" + itoa(i),
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return out, nil
}

// NewSerpAPI builds a GenericWeb engine talking to SerpApi's Google Search
// wrapper.
func NewSerpAPI(apiKey string, maxResults int, client *http.Client) *GenericWeb {
	return New(Config{
		Name:       "serpapi",
		BaseURL:    "https://serpapi.com/search",
		APIKey:     apiKey,
		MaxResults: maxResults,
		Parse:      parseSerpAPI,
		BuildRequest: func(ctx context.Context, cfg Config, query string, startIndex int) (*http.Request, error) {
			v := url.Values{}
			v.Set("q", query)
			v.Set("api_key", cfg.APIKey)
			v.Set("start", itoa(startIndex))
			addCommonParams(v, cfg)
			return http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"?"+v.Encode(), nil)
		},
	}, client)
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func parseSerpAPI(body []byte) ([]searchengine.SearchResult, error) {
	var r serpAPIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	out := make([]searchengine.SearchResult, 0, len(r.OrganicResults))
	for i, item := range r.OrganicResults {
		out = append(out, searchengine.SearchResult{
			ID:      "serpapi-" + itoa(i),
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return out, nil
}

// NewDuckDuckGo builds a GenericWeb engine talking to DuckDuckGo's
// instant-answer JSON endpoint. It does not require an API key.
func NewDuckDuckGo(maxResults int, client *http.Client) *GenericWeb {
	return New(Config{
		Name:       "ddg",
		BaseURL:    "https://api.duckduckgo.com/",
		NoAPIKey:   true,
		MaxResults: maxResults,
		Parse:      parseDuckDuckGo,
		BuildRequest: func(ctx context.Context, cfg Config, query string, startIndex int) (*http.Request, error) {
			v := url.Values{}
			v.Set("q", query)
			v.Set("format", "json")
			v.Set("no_html", "1")
			return http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"?"+v.Encode(), nil)
		},
	}, client)
}

type ddgResponse struct {
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func parseDuckDuckGo(body []byte) ([]searchengine.SearchResult, error) {
	var r ddgResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	out := make([]searchengine.SearchResult, 0, len(r.RelatedTopics))
	for i, item := range r.RelatedTopics {
		if item.FirstURL == "" {
			continue
		}
		out = append(out, searchengine.SearchResult{
			ID:      "ddg-" + itoa(i),
			Title:   item.Text,
			Link:    item.FirstURL,
			Snippet: item.Text,
		})
	}
	return out, nil
}
