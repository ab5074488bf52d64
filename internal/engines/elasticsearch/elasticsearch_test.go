package elasticsearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

func TestEngine_ParsesHitsIntoSearchResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := esResponse{}
		doc, _ := json.Marshal(esDoc{Title: "t", URL: "http://x", Content: "body text"})
		resp.Hits.Hits = append(resp.Hits.Hits, esHit{ID: "1", Score: 1.5, Source: doc})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Index: "docs"}, http.DefaultClient)
	out, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "http://x", out[0].Link)
	require.Equal(t, "elasticsearch", out[0].Source)
	require.True(t, out[0].HasScore)
}

func TestEngine_RateLimitedMapsToRateLimitedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Index: "docs"}, http.DefaultClient)
	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
	require.Equal(t, searchengine.ErrorKindRateLimited, searchengine.KindOf(err))
}

func TestEngine_AuthFailureMapsToAuthKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Index: "docs", APIKey: "k"}, http.DefaultClient)
	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
	require.Equal(t, searchengine.ErrorKindAuth, searchengine.KindOf(err))
}

func TestEngine_RequiresAPIKeyReflectsConfig(t *testing.T) {
	withKey := New(Config{APIKey: "k"}, http.DefaultClient)
	require.True(t, withKey.RequiresAPIKey())

	withoutKey := New(Config{}, http.DefaultClient)
	require.False(t, withoutKey.RequiresAPIKey())
}

func TestEngine_GetFullContentIsPassthrough(t *testing.T) {
	e := New(Config{}, http.DefaultClient)
	in := []searchengine.SearchResult{{ID: "1", Snippet: "s"}}
	out, err := e.GetFullContent(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}
