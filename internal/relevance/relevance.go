// Package relevance implements the LLM-driven relevance filters: a
// per-engine filter invoked from the default searchengine.Runner.Run
// composition, and a cross-engine filter that controls ordering and
// citation-index numbering across the concatenated previews of many
// engines.
package relevance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"deepresearch/internal/llmprovider"
	"deepresearch/internal/searchengine"
)

const (
	maxPerEngineContext = 30
	snippetTruncate     = 300
	defaultMaxFiltered  = 5
	crossEngineSkipBelow = 10
)

// ReputationScorer optionally weights a result by source reputation (e.g.
// journal impact) before ranking. New installs the NoopScorer, which leaves
// scores untouched; no strategy in this module installs any other scorer.
type ReputationScorer interface {
	Score(result searchengine.SearchResult) float64
}

// NoopScorer always returns 0, leaving LLM ranking as the only signal.
type NoopScorer struct{}

func (NoopScorer) Score(searchengine.SearchResult) float64 { return 0 }

// Filter is the per-engine relevance filter. It implements
// searchengine.RelevanceFilter.
type Filter struct {
	LLM               llmprovider.Invoker
	MaxFilteredResults int
	Reputation        ReputationScorer
}

// New builds a per-engine Filter with spec defaults (max 5 kept results).
func New(llm llmprovider.Invoker) *Filter {
	return &Filter{LLM: llm, MaxFilteredResults: defaultMaxFiltered, Reputation: NoopScorer{}}
}

// FilterForRelevance ranks previews against query using the LLM and keeps
// only the relevant ones, capped at MaxFilteredResults. Passes through
// unchanged when the LLM is absent or there's at most one preview to
// judge.
func (f *Filter) FilterForRelevance(ctx context.Context, previews []searchengine.SearchResult, query string) ([]searchengine.SearchResult, error) {
	if f == nil || f.LLM == nil || len(previews) <= 1 {
		return previews, nil
	}

	capped := previews
	if len(capped) > maxPerEngineContext {
		// High-reputation sources survive the context cap; NoopScorer
		// leaves the original order intact.
		if f.Reputation != nil {
			capped = append([]searchengine.SearchResult(nil), previews...)
			sort.SliceStable(capped, func(i, j int) bool {
				return f.Reputation.Score(capped[i]) > f.Reputation.Score(capped[j])
			})
		}
		capped = capped[:maxPerEngineContext]
	}

	prompt := buildRankingPrompt(query, capped)
	text, err := f.LLM.Invoke(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("relevance filter: llm invoke failed, passing previews through")
		return topK(previews, f.cap()), nil
	}

	indices, ok := parseIndexArray(text)
	if !ok {
		log.Warn().Str("response", text).Msg("relevance filter: could not parse ranked indices, returning top-K unchanged")
		return topK(previews, f.cap()), nil
	}

	kept := make([]searchengine.SearchResult, 0, len(indices))
	seen := make(map[int]bool)
	for _, idx := range indices {
		if idx < 0 || idx >= len(capped) || seen[idx] {
			continue
		}
		seen[idx] = true
		kept = append(kept, capped[idx])
		if len(kept) >= f.cap() {
			break
		}
	}
	if len(kept) == 0 {
		return topK(previews, f.cap()), nil
	}
	return kept, nil
}

func (f *Filter) cap() int {
	if f.MaxFilteredResults > 0 {
		return f.MaxFilteredResults
	}
	return defaultMaxFiltered
}

func topK(previews []searchengine.SearchResult, k int) []searchengine.SearchResult {
	if k <= 0 || k >= len(previews) {
		return previews
	}
	return previews[:k]
}

// buildRankingPrompt builds the numbered "[i] Title / Snippet" context and
// asks for a JSON array of indices ranked most-to-least relevant.
func buildRankingPrompt(query string, previews []searchengine.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Rank the following search results by relevance to the query. ")
	sb.WriteString("Respond with a JSON array of the 0-based indices, most relevant first. ")
	sb.WriteString("Omit indices that are not relevant.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, p := range previews {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i, p.Title, truncate(p.Snippet, snippetTruncate))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// parseIndexArray locates the outermost "[ ... ]" in text and parses it as a
// JSON array of ints. Returns ok=false on any parse failure; callers fall
// back to the top-K previews unchanged.
func parseIndexArray(text string) ([]int, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end < start {
		return nil, false
	}
	raw := text[start : end+1]

	var parts []string
	depth := 0
	cur := strings.Builder{}
	for _, r := range raw[1 : len(raw)-1] {
		switch r {
		case ',':
			if depth == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
		case '[':
			depth++
		case ']':
			depth--
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}

	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// CrossEngineFilter is the multi-engine relevance filter: it ranks/reorders
// and optionally restamps citation indices over the concatenation of
// previews from many engines.
type CrossEngineFilter struct {
	LLM llmprovider.Invoker
}

// NewCrossEngine builds a CrossEngineFilter.
func NewCrossEngine(llm llmprovider.Invoker) *CrossEngineFilter {
	return &CrossEngineFilter{LLM: llm}
}

// Options controls one invocation of the cross-engine filter.
type Options struct {
	Query       string
	MaxResults  int
	StartIndex  int
	Reorder     bool
	Reindex     bool
}

// Filter concatenates previews across engines, optionally reorders them by
// LLM-judged relevance, truncates to MaxResults, and optionally restamps
// Index as StartIndex+1, StartIndex+2, ... over the kept items.
//
// If total previews <= 10 or no LLM is configured, filtering is skipped:
// the input is just truncated to MaxResults and indices are restamped if
// Reindex is set.
func (f *CrossEngineFilter) Filter(ctx context.Context, previews []searchengine.SearchResult, opts Options) []searchengine.SearchResult {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = len(previews)
	}

	ordered := previews
	if f.LLM != nil && len(previews) > crossEngineSkipBelow && opts.Reorder {
		if reranked, ok := f.rerank(ctx, previews, opts.Query); ok {
			ordered = reranked
		}
	}

	if len(ordered) > maxResults {
		ordered = ordered[:maxResults]
	}

	if opts.Reindex {
		for i := range ordered {
			ordered[i].Index = strconv.Itoa(opts.StartIndex + i + 1)
		}
	}
	return ordered
}

func (f *CrossEngineFilter) rerank(ctx context.Context, previews []searchengine.SearchResult, query string) ([]searchengine.SearchResult, bool) {
	capped := previews
	if len(capped) > maxPerEngineContext {
		capped = capped[:maxPerEngineContext]
	}
	prompt := buildRankingPrompt(query, capped)
	text, err := f.LLM.Invoke(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("cross-engine filter: llm invoke failed, falling back to original order")
		return nil, false
	}
	indices, ok := parseIndexArray(text)
	if !ok || len(indices) == 0 {
		return nil, false
	}
	out := make([]searchengine.SearchResult, 0, len(previews))
	seen := make(map[int]bool)
	for _, idx := range indices {
		if idx < 0 || idx >= len(capped) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, capped[idx])
	}
	for i, p := range previews {
		if i < len(capped) && seen[i] {
			continue
		}
		out = append(out, p)
	}
	return out, true
}

// Dedup removes results with a link already seen. The first occurrence keeps
// its position, but a later scored duplicate with a higher score replaces it.
// Used by the strategies before the single cross-engine filter pass so
// overlapping engines never produce two citations for one link.
func Dedup(results []searchengine.SearchResult) []searchengine.SearchResult {
	seen := make(map[string]int, len(results)) // link -> index in out
	out := make([]searchengine.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Link == "" {
			out = append(out, r)
			continue
		}
		if i, ok := seen[r.Link]; ok {
			if r.HasScore && (!out[i].HasScore || r.Score > out[i].Score) {
				out[i] = r
			}
			continue
		}
		seen[r.Link] = len(out)
		out = append(out, r)
	}
	return out
}

// SortByScoreDescending orders results by Score, highest first, leaving
// unscored results (HasScore == false) at the end in their original
// relative order.
func SortByScoreDescending(results []searchengine.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].HasScore != results[j].HasScore {
			return results[i].HasScore
		}
		return results[i].Score > results[j].Score
	})
}
