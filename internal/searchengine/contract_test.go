package searchengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	waits    []float64
	outcomes []bool
}

func (f *fakeTracker) GetWaitTime(string) float64 { return 0 }
func (f *fakeTracker) RecordOutcome(_ context.Context, _ string, wait float64, success bool, _ int, _ string, _ *int) {
	f.waits = append(f.waits, wait)
	f.outcomes = append(f.outcomes, success)
}

type fakeEngine struct {
	name        string
	previewErrs []error
	previews    []SearchResult
	full        []SearchResult
	calls       int
	supportsFull bool
}

func (e *fakeEngine) Name() string               { return e.name }
func (e *fakeEngine) RequiresAPIKey() bool        { return false }
func (e *fakeEngine) RequiresLLM() bool           { return false }
func (e *fakeEngine) SupportsFullSearch() bool    { return e.supportsFull }

func (e *fakeEngine) GetPreviews(ctx context.Context, q Query) ([]SearchResult, error) {
	idx := e.calls
	e.calls++
	if idx < len(e.previewErrs) && e.previewErrs[idx] != nil {
		return nil, e.previewErrs[idx]
	}
	return e.previews, nil
}

func (e *fakeEngine) GetFullContent(ctx context.Context, previews []SearchResult) ([]SearchResult, error) {
	return e.full, nil
}

func TestRunner_RetriesOnlyOnRateLimited(t *testing.T) {
	tracker := &fakeTracker{}
	engine := &fakeEngine{
		name: "test",
		previewErrs: []error{
			NewError(ErrorKindRateLimited, "throttled", nil),
			NewError(ErrorKindRateLimited, "throttled", nil),
			nil,
		},
		previews: []SearchResult{{ID: "1", Title: "a", Link: "http://a"}},
	}
	r := NewRunner(engine, tracker, nil)
	r.PreviewTimeout = 0

	out := r.Run(context.Background(), Query{Text: "q"})
	require.Len(t, out, 1)
	require.Equal(t, 3, engine.calls)
	require.Equal(t, []bool{false, false, true}, tracker.outcomes)
}

func TestRunner_NonRateLimitDoesNotRetry(t *testing.T) {
	tracker := &fakeTracker{}
	engine := &fakeEngine{
		name:        "test",
		previewErrs: []error{NewError(ErrorKindTransport, "dns failure", nil)},
	}
	r := NewRunner(engine, tracker, nil)

	out := r.Run(context.Background(), Query{Text: "q"})
	require.Nil(t, out)
	require.Equal(t, 1, engine.calls)
}

func TestRunner_SnippetsOnlySkipsFullContent(t *testing.T) {
	tracker := &fakeTracker{}
	engine := &fakeEngine{
		name:         "test",
		previews:     []SearchResult{{ID: "1", Title: "a", Link: "http://a"}},
		full:         []SearchResult{{ID: "1", Title: "a", Link: "http://a", Content: "full"}},
		supportsFull: true,
	}
	r := NewRunner(engine, tracker, nil)
	r.SnippetsOnly = func() bool { return true }

	out := r.Run(context.Background(), Query{Text: "q"})
	require.Len(t, out, 1)
	require.Empty(t, out[0].Content)
}

func TestRunner_FullContentWhenSupported(t *testing.T) {
	tracker := &fakeTracker{}
	engine := &fakeEngine{
		name:         "test",
		previews:     []SearchResult{{ID: "1", Title: "a", Link: "http://a"}},
		full:         []SearchResult{{ID: "1", Title: "a", Link: "http://a", Content: "full"}},
		supportsFull: true,
	}
	r := NewRunner(engine, tracker, nil)

	out := r.Run(context.Background(), Query{Text: "q"})
	require.Len(t, out, 1)
	require.Equal(t, "full", out[0].Content)
}

func TestRunner_EmptyPreviewsShortCircuits(t *testing.T) {
	tracker := &fakeTracker{}
	engine := &fakeEngine{name: "test"}
	r := NewRunner(engine, tracker, nil)

	out := r.Run(context.Background(), Query{Text: "q"})
	require.Nil(t, out)
}
