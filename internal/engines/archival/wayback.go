// Package archival implements the Internet Archive Wayback Machine adapter.
package archival

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"deepresearch/internal/searchengine"
)

// URLResolver turns a free-text query into candidate URLs when the query
// itself is not already a URL or bare domain. Wiring a generic web engine
// here lets Wayback look up pages for topical queries instead of only
// literal URLs.
type URLResolver func(ctx context.Context, query string) ([]string, error)

// Wayback queries the Internet Archive's CDX API for historical snapshots
// of a URL.
type Wayback struct {
	client             *http.Client
	maxResults         int
	maxSnapshotsPerURL int
	closestOnly        bool
	resolveURLs        URLResolver

	configWarned bool
}

const (
	waybackAvailableAPI = "https://archive.org/wayback/available"
	waybackCDXAPI       = "https://web.archive.org/cdx/search/cdx"
)

var (
	urlPattern    = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+(?:/[^\s]*)?`)
	domainPattern = regexp.MustCompile(`^(?:[-\w.]|(?:%[\da-fA-F]{2}))+\.\w+$`)
)

// NewWayback builds a Wayback adapter. resolveURLs may be nil; if the query
// is not itself a URL or bare domain and no resolver is configured, the
// engine returns no results and records a ConfigError exactly once per
// Wayback instance rather than failing the whole run.
func NewWayback(maxResults, maxSnapshotsPerURL int, closestOnly bool, resolveURLs URLResolver, client *http.Client) *Wayback {
	if maxResults <= 0 {
		maxResults = 10
	}
	if maxSnapshotsPerURL <= 0 {
		maxSnapshotsPerURL = 3
	}
	return &Wayback{
		client:             client,
		maxResults:         maxResults,
		maxSnapshotsPerURL: maxSnapshotsPerURL,
		closestOnly:        closestOnly,
		resolveURLs:        resolveURLs,
	}
}

func (e *Wayback) Name() string            { return "wayback" }
func (e *Wayback) RequiresAPIKey() bool     { return false }
func (e *Wayback) RequiresLLM() bool        { return false }
func (e *Wayback) SupportsFullSearch() bool { return true }

func (e *Wayback) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	urls, err := e.extractURLs(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, nil
	}

	var out []searchengine.SearchResult
	for _, u := range urls {
		if len(out) >= e.maxResults {
			break
		}
		snaps, err := e.snapshots(ctx, u)
		if err != nil {
			continue
		}
		out = append(out, snaps...)
	}
	if len(out) > e.maxResults {
		out = out[:e.maxResults]
	}
	return out, nil
}

// extractURLs interprets the query as, in order: literal URLs, a bare
// domain, whatever an externally supplied resolver finds, then a
// best-effort domain guess.
func (e *Wayback) extractURLs(ctx context.Context, query string) ([]string, error) {
	if found := urlPattern.FindAllString(query, -1); len(found) > 0 {
		return found, nil
	}
	if domainPattern.MatchString(query) {
		return []string{"http://" + query}, nil
	}
	if e.resolveURLs != nil {
		urls, err := e.resolveURLs(ctx, query)
		if err == nil && len(urls) > 0 {
			return urls, nil
		}
	} else if !e.configWarned {
		e.configWarned = true
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "wayback: no URL resolver configured for free-text query", nil)
	}
	if strings.Contains(query, "/") && strings.Contains(query, ".") {
		return []string{"http://" + query}, nil
	}
	if strings.Contains(query, ".") {
		return []string{"http://" + query}, nil
	}
	return nil, nil
}

type availableResponse struct {
	ArchivedSnapshots struct {
		Closest struct {
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
			Status    string `json:"status"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

func (e *Wayback) snapshots(ctx context.Context, target string) ([]searchengine.SearchResult, error) {
	if e.closestOnly {
		return e.closestSnapshot(ctx, target)
	}
	return e.cdxSnapshots(ctx, target)
}

func (e *Wayback) closestSnapshot(ctx context.Context, target string) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("url", target)
	body, err := e.get(ctx, waybackAvailableAPI, v)
	if err != nil {
		return nil, err
	}
	var parsed availableResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode wayback available response", err)
	}
	if parsed.ArchivedSnapshots.Closest.URL == "" {
		return nil, nil
	}
	ts := parsed.ArchivedSnapshots.Closest.Timestamp
	return []searchengine.SearchResult{{
		ID:      target + "#" + ts,
		Title:   "Archived: " + target,
		Link:    parsed.ArchivedSnapshots.Closest.URL,
		Snippet: "Snapshot from " + formatTimestamp(ts),
		Source:  "wayback",
		Extra:   map[string]any{"original_url": target, "timestamp": ts},
	}}, nil
}

func (e *Wayback) cdxSnapshots(ctx context.Context, target string) ([]searchengine.SearchResult, error) {
	v := url.Values{}
	v.Set("url", target)
	v.Set("output", "json")
	v.Set("limit", fmt.Sprint(e.maxSnapshotsPerURL))
	v.Set("collapse", "timestamp:8")

	body, err := e.get(ctx, waybackCDXAPI, v)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "decode wayback cdx response", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	header := rows[0]
	tsIdx, origIdx, statusIdx := colIndex(header, "timestamp"), colIndex(header, "original"), colIndex(header, "statuscode")

	out := make([]searchengine.SearchResult, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tsIdx < 0 || tsIdx >= len(row) {
			continue
		}
		ts := row[tsIdx]
		original := target
		if origIdx >= 0 && origIdx < len(row) {
			original = row[origIdx]
		}
		snapshotURL := fmt.Sprintf("https://web.archive.org/web/%s/%s", ts, original)
		status := ""
		if statusIdx >= 0 && statusIdx < len(row) {
			status = row[statusIdx]
		}
		out = append(out, searchengine.SearchResult{
			ID:      original + "#" + ts,
			Title:   "Archived: " + original,
			Link:    snapshotURL,
			Snippet: "Snapshot from " + formatTimestamp(ts) + " (HTTP " + status + ")",
			Source:  "wayback",
			Extra:   map[string]any{"original_url": original, "timestamp": ts},
		})
	}
	return out, nil
}

func colIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func formatTimestamp(ts string) string {
	if len(ts) < 14 {
		return ts
	}
	return fmt.Sprintf("%s-%s-%s %s:%s:%s", ts[0:4], ts[4:6], ts[6:8], ts[8:10], ts[10:12], ts[12:14])
}

func (e *Wayback) get(ctx context.Context, base string, v url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+v.Encode(), nil)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, "build wayback request", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "wayback request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, searchengine.NewError(searchengine.ErrorKindRateLimited, "wayback rate limited", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, fmt.Sprintf("wayback returned HTTP %d", resp.StatusCode), nil)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindParse, "read wayback body", err)
	}
	return raw, nil
}

// GetFullContent fetches the archived snapshot pages themselves and converts
// their HTML to markdown text with this package's fetchText.
func (e *Wayback) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		out[i] = p
		text, err := fetchText(ctx, e.client, p.Link)
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

// fetchText retrieves a snapshot page and converts its HTML body to
// Markdown, with links resolved against the snapshot's own origin so
// relative hrefs in archived pages still point somewhere useful.
func fetchText(ctx context.Context, client *http.Client, link string) (string, error) {
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
	var buf strings.Builder
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return "", err
	}

	md, err := htmltomarkdown.ConvertString(buf.String(), converter.WithDomain(baseOrigin(link)))
	if err != nil {
		return buf.String(), nil
	}
	return md, nil
}

func baseOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
