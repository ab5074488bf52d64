package engines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/config"
	"deepresearch/internal/ratelimit"
	"deepresearch/internal/settings"
)

func testTracker(t *testing.T) *ratelimit.Tracker {
	t.Helper()
	tr, err := ratelimit.NewTracker(context.Background(), ratelimit.NewMemoryStore(), ratelimit.Config{})
	require.NoError(t, err)
	return tr
}

func TestBuild_SkipsDisabledAndCollectsUnknownKinds(t *testing.T) {
	cfg := []config.EngineConfig{
		{Name: "ddg", Kind: "web", Enabled: true, Options: map[string]string{"provider": "ddg"}},
		{Name: "off", Kind: "web", Enabled: false, Options: map[string]string{"provider": "brave"}},
		{Name: "docs", Kind: "local", Enabled: true}, // registered separately, not an error
		{Name: "bogus", Kind: "teleport", Enabled: true},
	}

	runners, errs := Build(cfg, testTracker(t), nil, nil, nil)

	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "bogus")
	require.Len(t, runners, 1)
	require.Contains(t, runners, "ddg")
}

func TestBuild_UnknownProviderIsCollectedNotFatal(t *testing.T) {
	cfg := []config.EngineConfig{
		{Name: "weird", Kind: "web", Enabled: true, Options: map[string]string{"provider": "altavista"}},
		{Name: "wiki", Kind: "academic", Enabled: true, Options: map[string]string{"provider": "wikipedia"}},
	}

	runners, errs := Build(cfg, testTracker(t), nil, nil, nil)

	require.Len(t, errs, 1)
	require.Len(t, runners, 1)
	require.Contains(t, runners, "wikipedia")
}

func TestBuild_CoversEveryConfigurableFamily(t *testing.T) {
	cfg := []config.EngineConfig{
		{Name: "brave", Kind: "web", Enabled: true, APIKey: "k", Options: map[string]string{"provider": "brave"}},
		{Name: "arxiv", Kind: "academic", Enabled: true, Options: map[string]string{"provider": "arxiv"}},
		{Name: "wayback", Kind: "archival", Enabled: true},
		{Name: "github", Kind: "code", Enabled: true, APIKey: "k"},
		{Name: "es", Kind: "elasticsearch", Enabled: true, BaseURL: "http://localhost:9200", Options: map[string]string{"index": "docs"}},
	}

	runners, errs := Build(cfg, testTracker(t), nil, nil, nil)

	require.Empty(t, errs)
	require.Len(t, runners, 5)
}

func TestApplySettings_WiresSnippetsOnly(t *testing.T) {
	cfg := []config.EngineConfig{
		{Name: "ddg", Kind: "web", Enabled: true, Options: map[string]string{"provider": "ddg"}},
	}
	runners, errs := Build(cfg, testTracker(t), nil, nil, nil)
	require.Empty(t, errs)

	provider := settings.NewMemoryProvider(map[string]string{"search.snippets_only": "true"})
	ApplySettings(runners, provider)
	require.True(t, runners["ddg"].SnippetsOnly())

	require.NoError(t, provider.Set(context.Background(), "search.snippets_only", "false"))
	require.False(t, runners["ddg"].SnippetsOnly())
}

func TestGithubQueryOptimizer_NilLLMDegradesToNil(t *testing.T) {
	require.Nil(t, githubQueryOptimizer(nil, "repositories"))
}

func TestIntOption(t *testing.T) {
	opts := map[string]string{"max_results": "25", "bad": "x9"}
	require.Equal(t, 25, intOption(opts, "max_results", 10))
	require.Equal(t, 10, intOption(opts, "bad", 10))
	require.Equal(t, 10, intOption(opts, "missing", 10))
}
