// Package findings implements the append-only, run-scoped log of
// intermediate synthesis steps: one Finding per strategy phase, plus
// the formatting helper the orchestrator returns to its caller.
package findings

import (
	"fmt"
	"strings"
	"sync"

	"deepresearch/internal/searchengine"
)

// Phase names the strategy step that produced a Finding. "Error" is
// reserved for the orchestrator's exception-to-finding conversion.
type Phase string

const (
	PhaseSearch    Phase = "Search"
	PhaseAnalysis  Phase = "Analysis"
	PhaseSynthesis Phase = "Synthesis"
	PhaseError     Phase = "Error"
)

// Finding is one entry in the append-only record.
type Finding struct {
	Phase         Phase
	Question      string
	Content       string
	SearchResults []searchengine.SearchResult
	Documents     []string
}

// Document is an auxiliary source attached outside the normal search path
// (e.g. a retriever's raw document), tracked separately from Findings so
// AddDocuments never reorders the Finding log.
type Document struct {
	Source  string
	Content string
}

// Repository is an append-only, run-scoped log. It holds no persistence of
// its own; the outer system may archive Format's output if it wants to.
type Repository struct {
	mu        sync.Mutex
	findings  []Finding
	documents []Document
}

// New returns an empty Repository for one run.
func New() *Repository {
	return &Repository{}
}

// Add appends f to the log. Findings are returned later in the order
// appended: strategy-dispatch order within a single run.
func (r *Repository) Add(f Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
}

// AddDocuments appends docs to the auxiliary document list.
func (r *Repository) AddDocuments(docs []Document) {
	if len(docs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = append(r.documents, docs...)
}

// All returns a snapshot copy of the findings appended so far.
func (r *Repository) All() []Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)
	return out
}

// Documents returns a snapshot copy of the auxiliary documents.
func (r *Repository) Documents() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Document, len(r.documents))
	copy(out, r.documents)
	return out
}

// Len reports how many findings have been appended.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.findings)
}

// Format renders findings plus currentKnowledge into the string the
// orchestrator returns as ResearchResult.FormattedFindings.
func Format(fs []Finding, currentKnowledge string) string {
	var sb strings.Builder
	for i, f := range fs {
		fmt.Fprintf(&sb, "## %s", f.Phase)
		if f.Question != "" {
			fmt.Fprintf(&sb, ": %s", f.Question)
		}
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(f.Content))
		sb.WriteString("\n\n")
		if i < len(fs)-1 {
			sb.WriteString("---\n\n")
		}
	}
	if currentKnowledge != "" {
		sb.WriteString("## Current Knowledge\n\n")
		sb.WriteString(strings.TrimSpace(currentKnowledge))
		sb.WriteString("\n")
	}
	return sb.String()
}
