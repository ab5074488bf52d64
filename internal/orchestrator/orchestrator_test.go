package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/findings"
	"deepresearch/internal/metricssink"
	"deepresearch/internal/searchengine"
	"deepresearch/internal/strategy"
)

type fakeStrategy struct {
	name   string
	result strategy.Result
	err    error
	panics bool
}

func (s *fakeStrategy) Name() string { return s.name }
func (s *fakeStrategy) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (strategy.Result, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func fixedFactory(strategies map[string]strategy.Strategy) StrategyFactory {
	return func(strategy.Deps) map[string]strategy.Strategy { return strategies }
}

func TestOrchestrator_DispatchesNamedStrategy(t *testing.T) {
	direct := &fakeStrategy{name: "direct", result: strategy.Result{
		Iterations:       1,
		CurrentKnowledge: "Paris",
		Findings:         []findings.Finding{{Phase: findings.PhaseSynthesis, Content: "Paris is the capital"}},
	}}
	o := New(strategy.Deps{}, nil, nil)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"direct": direct, "router": direct})

	res := o.Research(context.Background(), "What is the capital of France?", searchengine.ResearchContext{Strategy: "direct"})

	require.Equal(t, "direct", res.Strategy)
	require.Equal(t, 1, res.Iterations)
	require.Contains(t, res.CurrentKnowledge, "Paris")
	require.NotEmpty(t, res.ResearchID)
}

func TestOrchestrator_UnknownStrategyFallsBackToRouter(t *testing.T) {
	router := &fakeStrategy{name: "router", result: strategy.Result{Iterations: 1}}
	o := New(strategy.Deps{}, nil, nil)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"router": router})

	res := o.Research(context.Background(), "q", searchengine.ResearchContext{Strategy: "nonexistent"})
	require.Equal(t, "router", res.Strategy)
}

func TestOrchestrator_StrategyErrorBecomesErrorFinding(t *testing.T) {
	failing := &fakeStrategy{name: "direct", err: context.DeadlineExceeded}
	o := New(strategy.Deps{}, nil, nil)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"direct": failing, "router": failing})

	res := o.Research(context.Background(), "q", searchengine.ResearchContext{Strategy: "direct"})

	require.Len(t, res.Findings, 1)
	require.Equal(t, findings.PhaseError, res.Findings[0].Phase)
	require.Contains(t, res.CurrentKnowledge, "Error:")
}

func TestOrchestrator_StrategyPanicBecomesErrorFinding(t *testing.T) {
	panicking := &fakeStrategy{name: "direct", panics: true}
	o := New(strategy.Deps{}, nil, nil)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"direct": panicking, "router": panicking})

	res := o.Research(context.Background(), "q", searchengine.ResearchContext{Strategy: "direct"})

	require.Len(t, res.Findings, 1)
	require.Equal(t, findings.PhaseError, res.Findings[0].Phase)
	require.Contains(t, res.CurrentKnowledge, "panicked")
}

func TestOrchestrator_CancelledResultIsPreserved(t *testing.T) {
	cancelled := &fakeStrategy{name: "direct", result: strategy.Result{Iterations: 2, Cancelled: true}}
	o := New(strategy.Deps{}, nil, nil)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"direct": cancelled, "router": cancelled})

	res := o.Research(context.Background(), "q", searchengine.ResearchContext{Strategy: "direct"})

	require.True(t, res.Cancelled)
	require.Equal(t, 2, res.Iterations)
}

func TestOrchestrator_RecordsOneRunLevelMetricsRow(t *testing.T) {
	direct := &fakeStrategy{name: "direct", result: strategy.Result{
		Iterations: 1,
		Findings:   []findings.Finding{{Phase: findings.PhaseSynthesis, Content: "done"}},
	}}
	sink := metricssink.NewMemorySink()
	o := New(strategy.Deps{}, nil, sink)
	o.Factory = fixedFactory(map[string]strategy.Strategy{"direct": direct, "router": direct})

	res := o.Research(context.Background(), "q", searchengine.ResearchContext{Strategy: "direct"})

	rows := sink.Snapshot()
	require.Len(t, rows, 1)
	require.Equal(t, "research", rows[0].Engine)
	require.True(t, rows[0].Success)
	require.Equal(t, res.ResearchID, rows[0].ResearchID)
}

func TestChannelPublisher_PublishesWithoutBlocking(t *testing.T) {
	p := NewChannelPublisher(1)
	p.Publish(ProgressEvent{Message: "one"})
	p.Publish(ProgressEvent{Message: "dropped"}) // buffer full, must not block

	ev := <-p.Events
	require.Equal(t, "one", ev.Message)
}
