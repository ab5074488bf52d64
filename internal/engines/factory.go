// Package engines wires the adapter families (web, academic, archival,
// github, elasticsearch) into the runtime map[name]EngineRunner the
// orchestrator hands to strategies, reading one internal/config.EngineConfig
// per engine. The local and retriever engines need collaborators (an index,
// an external Retriever) a config document alone can't supply, so they are
// registered separately by the caller after Build returns.
package engines

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"deepresearch/internal/config"
	"deepresearch/internal/engines/academic"
	"deepresearch/internal/engines/archival"
	"deepresearch/internal/engines/elasticsearch"
	"deepresearch/internal/engines/github"
	"deepresearch/internal/engines/web"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/relevance"
	"deepresearch/internal/searchengine"
	"deepresearch/internal/settings"
)

// Build instantiates one searchengine.Runner per enabled entry in cfg,
// wrapping each adapter with tracker-driven retry and the per-engine
// relevance filter. Unknown kind/provider combinations are skipped with an
// error collected in the returned slice rather than aborting the whole
// build.
func Build(cfg []config.EngineConfig, tracker searchengine.Tracker, llm llmprovider.Invoker, sink searchengine.MetricsSink, client *http.Client) (map[string]*searchengine.Runner, []error) {
	out := make(map[string]*searchengine.Runner)
	var errs []error

	filter := relevance.New(llm)

	for _, ec := range cfg {
		if !ec.Enabled {
			continue
		}
		if ec.Kind == "local" || ec.Kind == "retriever" {
			// Registered separately by the caller; see the package doc.
			continue
		}
		engine, err := build(ec, llm, client)
		if err != nil {
			errs = append(errs, fmt.Errorf("engine %q: %w", ec.Name, err))
			continue
		}
		runner := searchengine.NewRunner(engine, tracker, filter)
		if sink != nil {
			runner.Sink = sink
		}
		out[engine.Name()] = runner
	}
	return out, errs
}

func build(ec config.EngineConfig, llm llmprovider.Invoker, client *http.Client) (searchengine.Engine, error) {
	opts := ec.Options
	provider := opts["provider"]
	maxResults := intOption(opts, "max_results", 10)

	switch ec.Kind {
	case "web":
		switch provider {
		case "brave":
			return web.NewBrave(ec.APIKey, maxResults, client), nil
		case "googlepse":
			return web.NewGooglePSE(ec.APIKey, opts["cx"], maxResults, client), nil
		case "serpapi":
			return web.NewSerpAPI(ec.APIKey, maxResults, client), nil
		case "ddg":
			return web.NewDuckDuckGo(maxResults, client), nil
		case "searxng":
			return web.NewSearXNG(ec.BaseURL, maxResults, client), nil
		default:
			return nil, fmt.Errorf("unknown web provider %q", provider)
		}

	case "academic":
		switch provider {
		case "wikipedia":
			return academic.NewWikipedia(opts["language"], intOption(opts, "sentences", 5), maxResults, client), nil
		case "arxiv":
			return academic.NewArXiv(maxResults, client), nil
		case "pubmed":
			return academic.NewPubMed(ec.APIKey, maxResults, client), nil
		case "semanticscholar":
			return academic.NewSemanticScholar(ec.APIKey, maxResults, client), nil
		default:
			return nil, fmt.Errorf("unknown academic provider %q", provider)
		}

	case "archival":
		closestOnly := opts["closest_only"] == "true"
		return archival.NewWayback(maxResults, intOption(opts, "max_snapshots_per_url", 3), closestOnly, nil, client), nil

	case "code":
		searchType := github.SearchRepositories
		if v, ok := opts["search_type"]; ok {
			searchType = github.SearchType(v)
		}
		includeReadme := opts["include_readme"] == "true"
		return github.New(ec.APIKey, searchType, includeReadme, maxResults, githubQueryOptimizer(llm, searchType), client), nil

	case "elasticsearch":
		return elasticsearch.New(elasticsearch.Config{
			BaseURL:    ec.BaseURL,
			Index:      opts["index"],
			APIKey:     ec.APIKey,
			MaxResults: maxResults,
		}, client), nil

	default:
		return nil, fmt.Errorf("unknown engine kind %q", ec.Kind)
	}
}

// Runners is the return type of Build, aliased so callers can name it
// without repeating the map literal.
type Runners = map[string]*searchengine.Runner

// ApplySettings attaches the runtime-mutable settings hooks to every built
// runner, currently the global snippets-only switch (search.snippets_only):
// when it reads "true", full-content retrieval is bypassed and previews are
// returned as results.
func ApplySettings(runners Runners, provider settings.Provider) {
	if provider == nil {
		return
	}
	snippetsOnly := func() bool {
		v, _ := provider.Get(context.Background(), "search.snippets_only", "false")
		return v == "true"
	}
	for _, r := range runners {
		r.SnippetsOnly = snippetsOnly
	}
}

// githubQueryOptimizer builds the LLM-driven rewriter that turns a
// natural-language request into GitHub search-qualifier syntax. A nil llm
// (engine configured without an LLM handle) degrades to the unoptimized
// query rather than making the engine unusable.
func githubQueryOptimizer(llm llmprovider.Invoker, searchType github.SearchType) github.QueryOptimizer {
	if llm == nil {
		return nil
	}
	return func(ctx context.Context, query string) (string, error) {
		prompt := fmt.Sprintf(githubOptimizePrompt, searchType, query)
		out, err := llm.Invoke(ctx, prompt)
		if err != nil {
			return query, err
		}
		rewritten := strings.TrimSpace(out)
		if rewritten == "" {
			return query, nil
		}
		return rewritten, nil
	}
}

const githubOptimizePrompt = `Rewrite the following natural-language request into a GitHub search query
for the %s endpoint, using GitHub's search qualifiers (stars:>N, language:,
in:name,description,readme, user:, org:, created:, pushed:, etc.) where they
help narrow the result set. Respond with only the rewritten query, no
explanation.

Request: %s`

func intOption(opts map[string]string, key string, fallback int) int {
	v, ok := opts[key]
	if !ok {
		return fallback
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
