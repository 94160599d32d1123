package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/contentmill/internal/metrics"
)

const (
	maxPageBytes   = 2 << 20
	maxExcerpt     = 300
	enrichParallel = 4
)

// Page is the title and excerpt extracted from a source URL.
type Page struct {
	URL     string
	Title   string
	Excerpt string
}

// Enricher fetches cited pages and extracts a title and excerpt, honouring robots.txt.
type Enricher struct {
	client     *http.Client
	userAgent  string
	maxSources int
	metrics    *metrics.Collector

	mu     sync.Mutex
	robots map[string]*robotsEntry
}

type robotsEntry struct {
	once  sync.Once
	group *robotstxt.Group
}

// NewEnricher creates an enricher that fetches at most maxSources pages per call.
func NewEnricher(userAgent string, maxSources int, collector *metrics.Collector) *Enricher {
	return &Enricher{
		client:     &http.Client{Timeout: 15 * time.Second},
		userAgent:  userAgent,
		maxSources: maxSources,
		metrics:    collector,
		robots:     make(map[string]*robotsEntry),
	}
}

// Enrich returns one Page per fetched URL, in input order.
// Pages that are disallowed or fail to load are logged and left out.
func (e *Enricher) Enrich(ctx context.Context, urls []string) []Page {
	if len(urls) > e.maxSources {
		urls = urls[:e.maxSources]
	}

	pages := make([]*Page, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichParallel)
	for i, u := range urls {
		g.Go(func() error {
			start := time.Now()
			page, err := e.fetch(gctx, u)
			if err != nil {
				slog.Debug("source enrichment skipped", "url", u, "error", err)
				if e.metrics != nil {
					e.metrics.RecordFailure(metrics.OpEnrich)
				}
				return nil
			}
			if e.metrics != nil {
				e.metrics.RecordTiming(metrics.OpEnrich, time.Since(start))
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (e *Enricher) fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if !e.allowed(ctx, u) {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %s", resp.Status)
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = io.LimitReader(resp.Body, maxPageBytes)
	}
	raw, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{URL: rawURL}
	if article, err := readability.FromReader(bytes.NewReader(raw), u); err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Excerpt = strings.TrimSpace(article.Excerpt)
	}

	if page.Title == "" || page.Excerpt == "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		if page.Title == "" {
			page.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		if page.Excerpt == "" {
			page.Excerpt = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
		}
		if page.Excerpt == "" {
			page.Excerpt = strings.TrimSpace(doc.Find("p").First().Text())
		}
	}

	if page.Title == "" && page.Excerpt == "" {
		return nil, fmt.Errorf("no extractable content")
	}
	page.Excerpt = truncate(collapseSpace(page.Excerpt), maxExcerpt)
	return page, nil
}

// allowed consults the host's robots.txt, cached per host. A missing or unreadable file allows everything.
func (e *Enricher) allowed(ctx context.Context, u *url.URL) bool {
	host := u.Scheme + "://" + u.Host

	e.mu.Lock()
	entry, ok := e.robots[host]
	if !ok {
		entry = &robotsEntry{}
		e.robots[host] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		entry.group = e.loadRobots(ctx, host)
	})

	group := entry.group
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (e *Enricher) loadRobots(ctx context.Context, host string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		slog.Debug("robots.txt unreadable", "host", host, "error", err)
		return nil
	}
	return data.FindGroup(e.userAgent)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}
