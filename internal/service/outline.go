package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
)

var (
	// ErrSectionCount is returned when an outline has too few or too many sections.
	ErrSectionCount = errors.New("outline section count out of range")
	// ErrOverlappingSections is returned when two outline sections cover the same ground.
	ErrOverlappingSections = errors.New("outline sections overlap")
)

// Section word targets.
const (
	minSectionWords     = 350
	maxSectionWords     = 450
	defaultSectionWords = 400
)

// fallbackContext replaces research when the digest is empty.
const fallbackContext = "No research available; rely on broadly accepted knowledge " +
	"and avoid specific figures you cannot support."

// SectionRange bounds the number of outline sections.
type SectionRange struct {
	Min int
	Max int
}

// Contains reports whether n is inside the range.
func (r SectionRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Planner turns a topic and its research into an outline.
type Planner struct {
	llm              TextGenerator
	pacer            *Pacer
	overlapThreshold float64
}

// NewPlanner creates a planner. An overlap threshold of 0 disables the overlap check.
func NewPlanner(gen TextGenerator, pacer *Pacer, overlapThreshold float64) *Planner {
	return &Planner{llm: gen, pacer: pacer, overlapThreshold: overlapThreshold}
}

const outlineSystemPrompt = `You are a senior content strategist planning long-form marketing articles.
Respond with a single JSON object and nothing else. Use this exact shape:
{"title": string, "metaDescription": string, "focusKeyword": string,
 "sections": [{"title": string, "objective": string, "keyPoints": [string],
 "statsToInclude": [string], "targetWordCount": number}]}
The title must be 30-60 characters and contain the focus keyword.
The meta description must be 120-160 characters and contain the focus keyword.
Every section must cover distinct ground; never repeat a topic across sections.
Do not include an introduction, conclusion or FAQ section.`

// PlanOutline makes one structured call and validates the resulting plan.
func (p *Planner) PlanOutline(ctx context.Context, topic string, digest models.ResearchDigest, rng SectionRange, tpl *models.ContentTemplate) (models.OutlinePlan, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\n", topic)
	fmt.Fprintf(&prompt, "Number of sections: between %d and %d.\n", rng.Min, rng.Max)
	fmt.Fprintf(&prompt, "Each section targets %d-%d words.\n\n", minSectionWords, maxSectionWords)
	if tpl != nil && tpl.Instructions != "" {
		fmt.Fprintf(&prompt, "Content guidelines (%s): %s\n\n", tpl.Name, tpl.Instructions)
	}
	prompt.WriteString("Research:\n")
	prompt.WriteString(researchContext(digest))

	if err := p.pacer.Wait(ctx); err != nil {
		return models.OutlinePlan{}, err
	}
	resp, err := p.llm.Generate(ctx, llm.Request{
		System:      outlineSystemPrompt,
		Prompt:      prompt.String(),
		Tier:        llm.TierPremium,
		Temperature: 0.4,
		Structured:  true,
	})
	if err != nil {
		return models.OutlinePlan{}, fmt.Errorf("plan outline: %w", err)
	}

	var plan models.OutlinePlan
	if err := llm.DecodeJSON(resp.Text, &plan); err != nil {
		return models.OutlinePlan{}, fmt.Errorf("plan outline: %w", err)
	}
	if err := p.validate(&plan, topic, rng); err != nil {
		return models.OutlinePlan{}, err
	}

	slog.Info("outline planned", "topic", topic, "title", plan.Title, "sections", len(plan.Sections))
	return plan, nil
}

func (p *Planner) validate(plan *models.OutlinePlan, topic string, rng SectionRange) error {
	if !rng.Contains(len(plan.Sections)) {
		return fmt.Errorf("%w: got %d, want %d-%d", ErrSectionCount, len(plan.Sections), rng.Min, rng.Max)
	}

	plan.Title = strings.TrimSpace(plan.Title)
	if plan.Title == "" {
		plan.Title = topic
	}
	for i := range plan.Sections {
		s := &plan.Sections[i]
		s.Title = strings.TrimSpace(strings.TrimLeft(s.Title, "# "))
		if s.Title == "" {
			return fmt.Errorf("%w: section %d has no title", llm.ErrStructuredOutput, i+1)
		}
		s.TargetWordCount = clampWords(s.TargetWordCount)
	}

	if p.overlapThreshold <= 0 {
		return nil
	}
	tokens := make([]map[string]struct{}, len(plan.Sections))
	for i, s := range plan.Sections {
		tokens[i] = contentTokens(s.Title + " " + s.Objective)
	}
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			if sim := jaccard(tokens[i], tokens[j]); sim > p.overlapThreshold {
				return fmt.Errorf("%w: %q and %q (similarity %.2f)",
					ErrOverlappingSections, plan.Sections[i].Title, plan.Sections[j].Title, sim)
			}
		}
	}
	return nil
}

func clampWords(n int) int {
	if n == 0 {
		return defaultSectionWords
	}
	return min(max(n, minSectionWords), maxSectionWords)
}

// researchContext renders the digest for prompts, or the fallback when it is empty.
func researchContext(d models.ResearchDigest) string {
	if d.Empty() {
		return fallbackContext + "\n"
	}

	var b strings.Builder
	if len(d.KeyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, kp := range d.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}
	if len(d.Statistics) > 0 {
		b.WriteString("Statistics:\n")
		for i, s := range d.Statistics {
			if i >= 15 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s): %s\n", s.Value, s.Kind, s.Context)
		}
	}
	if len(d.Sources) > 0 {
		b.WriteString("Sources:\n")
		for _, s := range d.Sources {
			if s.URL != nil {
				fmt.Fprintf(&b, "- %s <%s>\n", s.Title, *s.URL)
			}
		}
	}
	return b.String()
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "your": {}, "you": {}, "are": {},
	"how": {}, "what": {}, "why": {}, "when": {}, "this": {}, "that": {}, "from": {},
	"into": {}, "about": {}, "our": {}, "their": {}, "its": {}, "can": {}, "will": {},
	"should": {}, "does": {}, "use": {}, "using": {}, "explain": {}, "describe": {},
	"cover": {}, "section": {}, "readers": {}, "reader": {},
}

// contentTokens lowercases text into distinct tokens, dropping stop words
// and tokens shorter than three runes.
func contentTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
