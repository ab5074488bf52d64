// Package retriever adapts an externally-supplied Retriever object to the
// searchengine.Engine contract. Callers install named retrievers with
// Registry.Register.
package retriever

import (
	"context"
	"fmt"
	"sync"

	"deepresearch/internal/searchengine"
)

// Document is one retrieved item from an external retriever.
type Document struct {
	ID       string
	Title    string
	Link     string
	Content  string
	Score    float64
	HasScore bool
}

// Retriever is the external collaborator this adapter wraps: retrieve(query)
// -> [document].
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// Engine wraps a Retriever behind the searchengine.Engine contract. Its
// previews already carry the retriever's own ranking, so the default
// Runner composition skips the LLM relevance filter for it, the same as
// the Local engine.
type Engine struct {
	name      string
	retriever Retriever
}

// New builds an Engine named name wrapping retriever.
func New(name string, retriever Retriever) *Engine {
	return &Engine{name: name, retriever: retriever}
}

func (e *Engine) Name() string            { return e.name }
func (e *Engine) RequiresAPIKey() bool     { return false }
func (e *Engine) RequiresLLM() bool        { return false }
func (e *Engine) SupportsFullSearch() bool { return true }

func (e *Engine) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	if e.retriever == nil {
		return nil, searchengine.NewError(searchengine.ErrorKindConfig, fmt.Sprintf("retriever %q not configured", e.name), nil)
	}
	docs, err := e.retriever.Retrieve(ctx, q.Text)
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindTransport, "retriever invocation failed", err)
	}

	out := make([]searchengine.SearchResult, 0, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", e.name, i)
		}
		out = append(out, searchengine.SearchResult{
			ID:       id,
			Title:    d.Title,
			Link:     d.Link,
			Snippet:  truncate(d.Content, 300),
			Source:   e.name,
			Score:    d.Score,
			HasScore: d.HasScore,
			Extra:    map[string]any{"_full_content": d.Content},
		})
	}
	return out, nil
}

func (e *Engine) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		full := p
		if v, ok := p.Extra["_full_content"].(string); ok {
			full.Content = v
			full.FullContent = v
		}
		out[i] = full
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Registry is a thread-safe name -> Retriever map; registering an existing
// name overwrites it.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Register installs retriever as a named engine, overwriting any previous
// registration under the same name.
func (r *Registry) Register(name string, retriever Retriever) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = New(name, retriever)
}

// Get returns the named engine, or false if nothing is registered under
// that name.
func (r *Registry) Get(name string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns every currently registered retriever name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.engines))
	for name := range r.engines {
		out = append(out, name)
	}
	return out
}
