// Package citation implements run-scoped citation handling: numbering,
// de-duplication by link, and stamping the results of a batch with the
// citation indices the orchestrator's synthesis step should cite inline.
package citation

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"deepresearch/internal/llmprovider"
	"deepresearch/internal/searchengine"
)

// Citation is a globally (run-scoped) unique numbered source.
type Citation struct {
	Index   string // 1-based, as a string
	Link    string
	Title   string
	Snippet string
}

// Handler assigns citation indices to results as they are selected, and
// synthesizes an LLM answer that inline-cites those indices. One Handler is
// scoped to one run; StartIndex increments are serialized by a mutex so
// concurrent sub-queries (source-based, decomposition fan-out) still
// produce monotonic, contiguous indices.
type Handler struct {
	llm llmprovider.Invoker

	mu        sync.Mutex
	byLink    map[string]string // link -> index
	citations []Citation
}

// New builds a Handler. llm may be nil; Synthesize then returns the stamped
// results' snippets, one per line, instead of an LLM-authored answer.
func New(llm llmprovider.Invoker) *Handler {
	return &Handler{llm: llm, byLink: make(map[string]string)}
}

// StartIndex returns the number of distinct citations issued so far. The
// next new link will be assigned StartIndex()+1.
func (h *Handler) StartIndex() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.citations)
}

// Assign stamps indices onto results: a result whose Link has already been
// cited in this run reuses its existing index; every other unique link gets
// the next integer after the current StartIndex. Idempotent on link
// equality: repeated calls with the same link set produce the same mapping.
func (h *Handler) Assign(results []searchengine.SearchResult) []searchengine.SearchResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]searchengine.SearchResult, len(results))
	for i, r := range results {
		idx, ok := h.byLink[r.Link]
		if !ok {
			n := len(h.citations) + 1
			idx = strconv.Itoa(n)
			h.byLink[r.Link] = idx
			h.citations = append(h.citations, Citation{
				Index:   idx,
				Link:    r.Link,
				Title:   r.Title,
				Snippet: r.Snippet,
			})
		}
		r.Index = idx
		out[i] = r
	}
	return out
}

// All returns every citation issued so far, ordered by index.
func (h *Handler) All() []Citation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Citation, len(h.citations))
	copy(out, h.citations)
	sort.Slice(out, func(i, j int) bool {
		ni, _ := strconv.Atoi(out[i].Index)
		nj, _ := strconv.Atoi(out[j].Index)
		return ni < nj
	})
	return out
}

// Synthesize assigns citations to results, then asks the LLM to produce an
// answer to question that inline-cites using those indices. Returns the
// stamped results and the synthesis text. On LLM failure, synthesis fails
// the current step only: the stamped results are still returned alongside
// an error.
func (h *Handler) Synthesize(ctx context.Context, question string, results []searchengine.SearchResult) ([]searchengine.SearchResult, string, error) {
	stamped := h.Assign(results)
	if h.llm == nil {
		return stamped, fallbackSynthesis(stamped), nil
	}
	prompt := buildSynthesisPrompt(question, stamped)
	text, err := h.llm.Invoke(ctx, prompt)
	if err != nil {
		return stamped, "", searchengine.NewError(searchengine.ErrorKindLLM, "citation synthesis failed", err)
	}
	return stamped, text, nil
}

func fallbackSynthesis(results []searchengine.SearchResult) string {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Snippet)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func buildSynthesisPrompt(question string, results []searchengine.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the numbered sources below. Cite sources inline as [n].\n\n")
	sb.WriteString("Question: " + question + "\n\n")
	for _, r := range results {
		sb.WriteString("[" + r.Index + "] " + r.Title + "\n" + r.Snippet + "\n\n")
	}
	return sb.String()
}
