package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/raphaelgruber/contentmill/internal/dispatch"
	"github.com/raphaelgruber/contentmill/internal/imagegen"
	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/search"
)

// scriptedLLM answers every call through respond and records the requests.
type scriptedLLM struct {
	respond func(n int, req llm.Request) (string, error)
	cost    float64

	mu       sync.Mutex
	requests []llm.Request
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()

	text, err := s.respond(n, req)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Text: text, CostEstimate: s.cost}, nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedLLM) request(i int) llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// outlineJSON builds a structured outline answer with n distinct sections.
func outlineJSON(title string, n int) string {
	topics := []string{
		"pricing tiers", "onboarding checklist", "security posture", "integration options",
		"reporting dashboards", "migration timeline", "team training", "billing cycles",
		"regional availability", "uptime commitments", "escalation paths", "roadmap preview",
	}
	plan := models.OutlinePlan{
		Title:           title,
		MetaDescription: "A practical overview of " + title + " with figures, steps and answers to common questions for buyers.",
		FocusKeyword:    "customer support",
	}
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		if i >= len(topics) {
			topic = fmt.Sprintf("%s %d", topic, i)
		}
		plan.Sections = append(plan.Sections, models.SectionSpec{
			Title:           strings.ToUpper(topic[:1]) + topic[1:],
			Objective:       "Describe " + topic,
			KeyPoints:       []string{"point about " + topic},
			TargetWordCount: 400,
		})
	}
	data, _ := json.Marshal(plan)
	return string(data)
}

func faqJSON(n int) string {
	var out struct {
		FAQ []models.FAQItem `json:"faq"`
	}
	for i := 0; i < n; i++ {
		out.FAQ = append(out.FAQ, models.FAQItem{
			Question: fmt.Sprintf("Question number %d?", i+1),
			Answer:   "A short answer that covers the essentials for the reader in plain words.",
		})
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// pipelineLLM answers each pipeline step by inspecting the request.
func pipelineLLM(title string, sections int) *scriptedLLM {
	return &scriptedLLM{
		cost: 0.01,
		respond: func(_ int, req llm.Request) (string, error) {
			switch {
			case req.Structured && req.Tier == llm.TierPremium:
				return outlineJSON(title, sections), nil
			case req.Structured:
				return faqJSON(6), nil
			case strings.Contains(req.System, "introductions"):
				return "Customer support keeps clients productive. This guide explains what to expect.", nil
			case strings.Contains(req.System, "conclusions"):
				return "Pick the plan that fits your team and get started today.", nil
			default:
				return "Support teams answer 80% of tickets within a day.\n\n- Clear steps\n- Named contacts", nil
			}
		},
	}
}

// stubSearch returns a canned result or error per query index.
type stubSearch struct {
	results []search.Result
	errs    []error

	mu      sync.Mutex
	queries []string
}

func (s *stubSearch) Search(_ context.Context, query, _ string) (search.Result, error) {
	s.mu.Lock()
	i := len(s.queries)
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if i < len(s.errs) && s.errs[i] != nil {
		return search.Result{}, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return search.Result{}, nil
}

// failingSearch fails every query.
type failingSearch struct{}

func (failingSearch) Search(context.Context, string, string) (search.Result, error) {
	return search.Result{}, errors.New("search unavailable")
}

type stubEnricher struct {
	pages []search.Page
}

func (s stubEnricher) Enrich(_ context.Context, urls []string) []search.Page {
	var out []search.Page
	for _, p := range s.pages {
		for _, u := range urls {
			if p.URL == u {
				out = append(out, p)
			}
		}
	}
	return out
}

type stubImages struct {
	image imagegen.Image
	err   error
}

func (s stubImages) Generate(context.Context, string, string) (imagegen.Image, error) {
	return s.image, s.err
}

// recordingDispatcher records tasks and optionally forwards them.
type recordingDispatcher struct {
	next dispatch.Dispatcher
	err  error

	mu    sync.Mutex
	tasks []dispatch.Task
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, task dispatch.Task) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
	if r.next != nil {
		return r.next.Dispatch(ctx, task)
	}
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *recordingDispatcher) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = nil
}

func (r *recordingDispatcher) recorded() []dispatch.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Task(nil), r.tasks...)
}
