package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
)

const maxFAQItems = 8

// headingLineRegex matches a level-1 or level-2 Markdown heading line.
var headingLineRegex = regexp.MustCompile(`^#{1,2}\s+`)

// Writer produces section bodies, the introduction, the conclusion and the FAQ.
// Calls are strictly sequential and paced.
type Writer struct {
	llm        TextGenerator
	pacer      *Pacer
	retries    int
	retryDelay time.Duration
}

// NewWriter creates a writer that retries a failed call up to retries times.
func NewWriter(gen TextGenerator, pacer *Pacer, retries int, retryDelay time.Duration) *Writer {
	return &Writer{llm: gen, pacer: pacer, retries: max(retries, 0), retryDelay: retryDelay}
}

const sectionSystemPrompt = `You are an expert writer producing one section of a long-form article.
Write in Markdown. Do not repeat the section title as a heading.
Use ### subheadings, bullet or numbered lists and concrete figures where they help.
Never use # or ## headings.`

// WriteSections writes each outlined section in order. A section prompt
// carries only its own outline entry and the shared research.
func (w *Writer) WriteSections(ctx context.Context, plan models.OutlinePlan, digest models.ResearchDigest) ([]models.GeneratedSection, error) {
	research := researchContext(digest)
	sections := make([]models.GeneratedSection, 0, len(plan.Sections))

	for i, sec := range plan.Sections {
		var prompt strings.Builder
		fmt.Fprintf(&prompt, "Article: %s\n", plan.Title)
		fmt.Fprintf(&prompt, "Focus keyword: %s\n\n", plan.FocusKeyword)
		fmt.Fprintf(&prompt, "Section title: %s\n", sec.Title)
		fmt.Fprintf(&prompt, "Objective: %s\n", sec.Objective)
		if len(sec.KeyPoints) > 0 {
			fmt.Fprintf(&prompt, "Key points to cover:\n- %s\n", strings.Join(sec.KeyPoints, "\n- "))
		}
		if len(sec.StatsToInclude) > 0 {
			fmt.Fprintf(&prompt, "Statistics to include:\n- %s\n", strings.Join(sec.StatsToInclude, "\n- "))
		}
		fmt.Fprintf(&prompt, "Length: %d-%d words, aim for %d.\n\n", minSectionWords, maxSectionWords, sec.TargetWordCount)
		prompt.WriteString("Research:\n")
		prompt.WriteString(research)

		text, err := w.call(ctx, llm.Request{
			System:      sectionSystemPrompt,
			Prompt:      prompt.String(),
			Tier:        llm.TierStandard,
			Temperature: 0.7,
			MaxTokens:   1200,
		})
		if err != nil {
			return nil, fmt.Errorf("write section %d %q: %w", i+1, sec.Title, err)
		}

		sections = append(sections, models.GeneratedSection{
			Title: sec.Title,
			Body:  normalizeSectionBody(sec.Title, text),
		})
		slog.Debug("section written", "index", i+1, "title", sec.Title)
	}
	return sections, nil
}

// WriteIntro writes the opening paragraphs from the outline summary.
func (w *Writer) WriteIntro(ctx context.Context, plan models.OutlinePlan) (string, error) {
	text, err := w.call(ctx, llm.Request{
		System: "You write concise article introductions in Markdown. No headings. " +
			"Answer the core question in the first two sentences and stay under 60 words.",
		Prompt:      outlineSummary(plan),
		Tier:        llm.TierStandard,
		Temperature: 0.6,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("write intro: %w", err)
	}
	return normalizeSectionBody(plan.Title, text), nil
}

// WriteConclusion writes the closing section body from the outline summary.
func (w *Writer) WriteConclusion(ctx context.Context, plan models.OutlinePlan) (string, error) {
	text, err := w.call(ctx, llm.Request{
		System: "You write article conclusions in Markdown. No headings. " +
			"Summarize the main takeaways and end with a clear next step for the reader.",
		Prompt:      outlineSummary(plan),
		Tier:        llm.TierStandard,
		Temperature: 0.6,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("write conclusion: %w", err)
	}
	return normalizeSectionBody(ConclusionHeading, text), nil
}

// WriteFAQ asks for 5-8 question/answer pairs in one structured call.
// An unparsable answer is fatal.
func (w *Writer) WriteFAQ(ctx context.Context, plan models.OutlinePlan, digest models.ResearchDigest) ([]models.FAQItem, error) {
	text, err := w.call(ctx, llm.Request{
		System: `You write FAQ entries for articles. Respond with a single JSON object:
{"faq": [{"question": string, "answer": string}]}
Give 5 to 8 entries. Every question ends with "?" and every answer is 20 to 80 words.`,
		Prompt:      outlineSummary(plan) + "\nResearch:\n" + researchContext(digest),
		Tier:        llm.TierFast,
		Temperature: 0.5,
		Structured:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("write faq: %w", err)
	}

	var out struct {
		FAQ []models.FAQItem `json:"faq"`
	}
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("write faq: %w", err)
	}

	items := make([]models.FAQItem, 0, len(out.FAQ))
	for _, it := range out.FAQ {
		q, a := strings.TrimSpace(it.Question), strings.TrimSpace(it.Answer)
		if q == "" || a == "" {
			continue
		}
		items = append(items, models.FAQItem{Question: q, Answer: a})
		if len(items) == maxFAQItems {
			break
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("write faq: %w: no entries", llm.ErrStructuredOutput)
	}
	return items, nil
}

// call paces and performs one generation, retrying transient failures with
// a constant backoff. Fatal API errors are never retried.
func (w *Writer) call(ctx context.Context, req llm.Request) (string, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.retryDelay), uint64(w.retries)),
		ctx,
	)

	attempt := 0
	return backoff.RetryWithData(func() (string, error) {
		attempt++
		if err := w.pacer.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		resp, err := w.llm.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return "", backoff.Permanent(err)
			}
			slog.Warn("generation failed", "attempt", attempt, "error", err)
			return "", err
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return "", errors.New("empty generation")
		}
		return text, nil
	}, policy)
}

// outlineSummary is the shared context for intro, conclusion and FAQ prompts.
func outlineSummary(plan models.OutlinePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Article: %s\n", plan.Title)
	fmt.Fprintf(&b, "Focus keyword: %s\n", plan.FocusKeyword)
	b.WriteString("Sections:\n")
	for _, s := range plan.Sections {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.Objective)
	}
	return b.String()
}

// normalizeSectionBody drops an echoed title heading and demotes stray
// level-1 and level-2 headings so the body never introduces a section boundary.
func normalizeSectionBody(title, text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(strings.TrimLeft(lines[0], "#"))
		if strings.HasPrefix(lines[0], "#") && strings.EqualFold(first, strings.TrimSpace(title)) {
			lines = lines[1:]
		}
	}

	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence && headingLineRegex.MatchString(line) {
			lines[i] = "### " + strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
