package academic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"deepresearch/internal/searchengine"

	"github.com/stretchr/testify/require"
)

func TestArXiv_ParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1234.5678</id>
    <title>A Paper</title>
    <summary>An abstract.</summary>
    <published>2020-01-01T00:00:00Z</published>
    <author><name>A. Uthor</name></author>
  </entry>
</feed>`))
	}))
	defer srv.Close()

	e := NewArXiv(10, http.DefaultClient)
	e.baseURL = srv.URL

	results, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "test"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "A Paper", results[0].Title)
	require.Equal(t, "An abstract.", results[0].Snippet)
}

func TestArXiv_RaisesMaxResultsFloor(t *testing.T) {
	e := NewArXiv(5, http.DefaultClient)
	require.Equal(t, 25, e.maxResults)
}

func TestWikipedia_Defaults(t *testing.T) {
	e := NewWikipedia("", 0, 0, http.DefaultClient)
	require.Equal(t, "en", e.language)
	require.Equal(t, 5, e.sentences)
	require.Equal(t, 10, e.maxResults)
	require.False(t, e.RequiresAPIKey())
	require.False(t, e.SupportsFullSearch())
}

func TestPubMed_APIKeyIsOptional(t *testing.T) {
	e := NewPubMed("", 5, http.DefaultClient)
	require.Equal(t, "", e.apiKey)
	require.False(t, e.RequiresAPIKey())
}

func TestSemanticScholar_Defaults(t *testing.T) {
	e := NewSemanticScholar("", 0, http.DefaultClient)
	require.Equal(t, 10, e.maxResults)
	require.Equal(t, "semantic_scholar", e.Name())
}
