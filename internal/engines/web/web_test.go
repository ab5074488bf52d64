package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"deepresearch/internal/searchengine"

	"github.com/stretchr/testify/require"
)

func TestGenericWeb_MissingAPIKeyIsAuthError(t *testing.T) {
	e := NewBrave("", 5, http.DefaultClient)
	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
	require.Equal(t, searchengine.ErrorKindAuth, searchengine.KindOf(err))
}

func TestGenericWeb_RateLimitedMapsToRateLimitedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewBrave("key", 5, http.DefaultClient)
	e.cfg.BaseURL = srv.URL

	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
	require.Equal(t, searchengine.ErrorKindRateLimited, searchengine.KindOf(err))
}

func TestGenericWeb_ParsesBraveResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := braveResponse{}
		resp.Web.Results = append(resp.Web.Results, struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		}{Title: "t", URL: "http://x", Description: "d"})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewBrave("key", 1, http.DefaultClient)
	e.cfg.BaseURL = srv.URL

	results, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "http://x", results[0].Link)
	require.Equal(t, "brave", results[0].Source)
}

func TestDuckDuckGo_NoAPIKeyRequired(t *testing.T) {
	e := NewDuckDuckGo(5, http.DefaultClient)
	require.False(t, e.RequiresAPIKey())
}
