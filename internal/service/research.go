package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

const (
	keyPointsPerQuery = 3
	summaryExcerpt    = 300
)

// citationRegex matches inline citation markers such as "[3]".
var citationRegex = regexp.MustCompile(`\[\d+\]`)

// researchQueries is the fixed query sequence: overview, statistics, recent developments.
var researchQueries = []string{
	"%s: comprehensive overview, definitions and key facts",
	"%s: latest statistics, market data and figures",
	"%s: recent developments, news and trends",
}

// Researcher builds a research digest from the deep-search service.
type Researcher struct {
	search   Searcher
	enricher SourceEnricher
	pacer    *Pacer
	now      func() time.Time
}

// NewResearcher creates a researcher. enricher may be nil.
func NewResearcher(search Searcher, enricher SourceEnricher, pacer *Pacer) *Researcher {
	return &Researcher{
		search:   search,
		enricher: enricher,
		pacer:    pacer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ConductResearch runs up to maxQueries searches and condenses them into a digest.
// Failed or empty queries are skipped; if all fail the digest is empty but valid.
// Only context cancellation is returned as an error.
func (r *Researcher) ConductResearch(ctx context.Context, topic, locale string, maxQueries int) (models.ResearchDigest, error) {
	digest := models.ResearchDigest{
		Queries:    []string{},
		Sources:    []models.SourceRecord{},
		Statistics: []models.Statistic{},
		KeyPoints:  []string{},
	}

	if maxQueries <= 0 || maxQueries > len(researchQueries) {
		maxQueries = len(researchQueries)
	}

	seenURL := make(map[string]bool)
	seenPoint := make(map[string]bool)
	var webIdx []int

	for _, pattern := range researchQueries[:maxQueries] {
		query := fmt.Sprintf(pattern, topic)
		digest.Queries = append(digest.Queries, query)

		if err := r.pacer.Wait(ctx); err != nil {
			return digest, err
		}

		res, err := r.search.Search(ctx, query, locale)
		if err != nil {
			if ctx.Err() != nil {
				return digest, ctx.Err()
			}
			slog.Warn("research query failed", "query", query, "error", err)
			continue
		}
		content := strings.TrimSpace(citationRegex.ReplaceAllString(res.Content, ""))
		if content == "" && len(res.Sources) == 0 {
			slog.Warn("research query returned nothing", "query", query)
			continue
		}
		digest.CostEstimate += res.CostEstimate

		captured := r.now()
		if content != "" {
			digest.Sources = append(digest.Sources, models.SourceRecord{
				Kind:       models.SourceKindSearchSummary,
				Title:      query,
				Excerpt:    clipRunes(content, summaryExcerpt),
				CapturedAt: captured,
			})
		}
		for _, src := range res.Sources {
			if src.URL == "" || seenURL[src.URL] {
				continue
			}
			seenURL[src.URL] = true
			title := src.Title
			if title == "" {
				title = src.URL
			}
			webIdx = append(webIdx, len(digest.Sources))
			digest.Sources = append(digest.Sources, models.SourceRecord{
				Kind:       models.SourceKindWeb,
				Title:      title,
				Excerpt:    src.Snippet,
				URL:        models.Ptr(src.URL),
				CapturedAt: captured,
			})
		}

		sentences := parser.Sentences(content)
		digest.Statistics = append(digest.Statistics, extractStatistics(sentences, query)...)
		for i, s := range sentences {
			if i >= keyPointsPerQuery {
				break
			}
			key := strings.ToLower(s)
			if !seenPoint[key] {
				seenPoint[key] = true
				digest.KeyPoints = append(digest.KeyPoints, s)
			}
		}
	}

	r.enrich(ctx, digest.Sources, webIdx)

	for i := range digest.Sources {
		digest.Sources[i].RelevanceScore = relevanceScore(i)
	}

	slog.Info("research complete",
		"topic", topic,
		"queries", len(digest.Queries),
		"sources", len(digest.Sources),
		"statistics", len(digest.Statistics),
		"key_points", len(digest.KeyPoints))
	return digest, nil
}

// enrich replaces web source titles and excerpts with what the pages say.
func (r *Researcher) enrich(ctx context.Context, sources []models.SourceRecord, webIdx []int) {
	if r.enricher == nil || len(webIdx) == 0 {
		return
	}
	urls := make([]string, len(webIdx))
	for i, idx := range webIdx {
		urls[i] = *sources[idx].URL
	}

	pages := make(map[string]string)
	excerpts := make(map[string]string)
	for _, p := range r.enricher.Enrich(ctx, urls) {
		pages[p.URL] = p.Title
		excerpts[p.URL] = p.Excerpt
	}
	for _, idx := range webIdx {
		u := *sources[idx].URL
		if t := pages[u]; t != "" {
			sources[idx].Title = t
		}
		if e := excerpts[u]; e != "" {
			sources[idx].Excerpt = e
		}
	}
}

// relevanceScore is 100 for rank 0, minus 10 per rank, never below 10.
func relevanceScore(rank int) int {
	return max(100-10*rank, 10)
}

// extractStatistics pulls numeric tokens out of sentences, keeping the sentence as context.
func extractStatistics(sentences []string, query string) []models.Statistic {
	var stats []models.Statistic
	for _, s := range sentences {
		for _, n := range parser.Numbers(s) {
			kind := statisticKind(n)
			if kind == models.StatCount && isYear(n) {
				continue
			}
			stats = append(stats, models.Statistic{
				Value:   n,
				Kind:    kind,
				Context: s,
				Query:   query,
			})
		}
	}
	return stats
}

func statisticKind(token string) string {
	switch {
	case strings.HasSuffix(token, "%"):
		return models.StatPercentage
	case strings.HasPrefix(token, "$") || strings.HasPrefix(token, "€") || strings.HasPrefix(token, "£"):
		return models.StatCurrency
	default:
		return models.StatCount
	}
}

func isYear(token string) bool {
	if len(token) != 4 {
		return false
	}
	n, err := strconv.Atoi(token)
	return err == nil && n >= 1900 && n <= 2100
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
