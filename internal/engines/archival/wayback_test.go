package archival

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWayback_ExtractURLs_LiteralURL(t *testing.T) {
	e := NewWayback(5, 3, false, nil, http.DefaultClient)
	urls, err := e.extractURLs(context.Background(), "see https://example.com/page for details")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/page"}, urls)
}

func TestWayback_ExtractURLs_BareDomain(t *testing.T) {
	e := NewWayback(5, 3, false, nil, http.DefaultClient)
	urls, err := e.extractURLs(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"http://example.com"}, urls)
}

func TestWayback_ExtractURLs_NoResolverReturnsConfigError(t *testing.T) {
	e := NewWayback(5, 3, false, nil, http.DefaultClient)
	_, err := e.extractURLs(context.Background(), "climate change policy")
	require.Error(t, err)
}

func TestWayback_ExtractURLs_ResolverUsedForFreeText(t *testing.T) {
	resolver := func(ctx context.Context, query string) ([]string, error) {
		return []string{"http://resolved.example"}, nil
	}
	e := NewWayback(5, 3, false, resolver, http.DefaultClient)
	urls, err := e.extractURLs(context.Background(), "climate change policy")
	require.NoError(t, err)
	require.Equal(t, []string{"http://resolved.example"}, urls)
}

func TestFormatTimestamp(t *testing.T) {
	require.Equal(t, "2020-01-02 03:04:05", formatTimestamp("20200102030405"))
	require.Equal(t, "short", formatTimestamp("short"))
}
