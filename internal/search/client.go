// Package search queries the deep-search service and enriches the sources it cites.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/contentmill/internal/config"
	"github.com/raphaelgruber/contentmill/internal/metrics"
)

// Source is one citation returned with a search answer.
type Source struct {
	Title   string
	URL     string
	Snippet string
	Date    string
}

// Result is a search answer with its citations.
type Result struct {
	Query        string
	Content      string
	Sources      []Source
	CostEstimate float64
}

// Client calls a Perplexity-compatible chat-completions endpoint that returns citations.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	inputPrice  float64
	outputPrice float64
	httpClient  *http.Client
	metrics     *metrics.Collector
}

// NewClient builds a client from configuration.
func NewClient(cfg config.Config, collector *metrics.Collector) *Client {
	return &Client{
		endpoint:    cfg.SearchURL,
		apiKey:      cfg.SearchAPIKey,
		model:       cfg.SearchModel,
		inputPrice:  cfg.SearchInputPrice,
		outputPrice: cfg.SearchOutputPrice,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		metrics: collector,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type searchResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Date    string `json:"date"`
		Snippet string `json:"snippet"`
	} `json:"search_results"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		Cost             *struct {
			TotalCost float64 `json:"total_cost"`
		} `json:"cost"`
	} `json:"usage"`
}

// Search runs one query. locale steers the answer language and regional focus.
func (c *Client) Search(ctx context.Context, query, locale string) (Result, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return Result{}, fmt.Errorf("search client misconfigured")
	}

	system := "Be precise and factual. Cite your sources. Prefer recent data with concrete numbers."
	if locale != "" {
		system += fmt.Sprintf(" Focus on the %s market and answer in its language.", locale)
	}

	body, err := json.Marshal(searchRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return Result{}, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.recordFailure()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("search error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.recordFailure()
		return Result{}, fmt.Errorf("decode search response: %w", err)
	}

	result := Result{Query: query, Sources: collectSources(decoded)}
	if len(decoded.Choices) > 0 {
		result.Content = strings.TrimSpace(decoded.Choices[0].Message.Content)
	}
	if decoded.Usage.Cost != nil {
		result.CostEstimate = decoded.Usage.Cost.TotalCost
	} else {
		result.CostEstimate = float64(decoded.Usage.PromptTokens)*c.inputPrice/1000 +
			float64(decoded.Usage.CompletionTokens)*c.outputPrice/1000
	}

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordCost(metrics.OpSearch, duration, result.CostEstimate)
	}
	slog.Debug("search complete",
		"query", query,
		"sources", len(result.Sources),
		"duration_ms", duration.Milliseconds(),
	)

	return result, nil
}

// collectSources merges search_results with bare citations, deduplicated by URL.
func collectSources(r searchResponse) []Source {
	seen := make(map[string]bool)
	var sources []Source
	for _, sr := range r.SearchResults {
		if sr.URL == "" || seen[sr.URL] {
			continue
		}
		seen[sr.URL] = true
		sources = append(sources, Source{Title: sr.Title, URL: sr.URL, Snippet: sr.Snippet, Date: sr.Date})
	}
	for _, u := range r.Citations {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		sources = append(sources, Source{URL: u})
	}
	return sources
}

func (c *Client) recordFailure() {
	if c.metrics != nil {
		c.metrics.RecordFailure(metrics.OpSearch)
	}
}
