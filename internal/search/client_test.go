package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contentmill/internal/config"
	"github.com/raphaelgruber/contentmill/internal/metrics"
)

func testClient(url string, collector *metrics.Collector) *Client {
	cfg := config.Config{
		SearchURL:         url,
		SearchAPIKey:      "key",
		SearchModel:       "sonar",
		SearchInputPrice:  1,
		SearchOutputPrice: 2,
	}
	return NewClient(cfg, collector)
}

func TestSearch(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": " 72% of customers expect 24/7 support. "}}],
			"citations": ["https://a.example/report", "https://b.example/post"],
			"search_results": [{"title": "Report", "url": "https://a.example/report", "date": "2025-01-02", "snippet": "72%"}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 500}
		}`))
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	res, err := testClient(srv.URL, collector).Search(context.Background(), "support hours statistics", "de-DE")
	require.NoError(t, err)

	assert.Equal(t, "sonar", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[0].Content, "de-DE")
	assert.Equal(t, "support hours statistics", got.Messages[1].Content)

	assert.Equal(t, "72% of customers expect 24/7 support.", res.Content)
	require.Len(t, res.Sources, 2, "citations are merged with search results by URL")
	assert.Equal(t, "Report", res.Sources[0].Title)
	assert.Equal(t, "https://b.example/post", res.Sources[1].URL)
	assert.InDelta(t, 1.0+1.0, res.CostEstimate, 1e-9)

	snap := collector.Snapshot()
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(1), snap.Search.Count)
}

func TestSearch_ReportedCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}],"usage":{"prompt_tokens":10,"cost":{"total_cost":0.006}}}`))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, nil).Search(context.Background(), "q", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.006, res.CostEstimate, 1e-9)
	assert.Empty(t, res.Sources)
}

func TestSearch_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exhausted", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		collector := metrics.NewCollector()
		_, err := testClient(srv.URL, collector).Search(context.Background(), "q", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exhausted")
		assert.Equal(t, int64(1), collector.Snapshot().Search.Failures)
	})

	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, nil).Search(context.Background(), "q", "")
		assert.Error(t, err)
	})

	t.Run("misconfigured", func(t *testing.T) {
		_, err := NewClient(config.Config{}, nil).Search(context.Background(), "q", "")
		assert.Error(t, err)
	})
}
