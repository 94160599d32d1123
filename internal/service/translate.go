package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/contentmill/internal/db"
	"github.com/raphaelgruber/contentmill/internal/dispatch"
	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

// Translation task routing.
const (
	TaskTranslationRender = "translation.render"
	QueueTranslations     = "translations"
)

// maxUnitChars bounds a single translation call; larger units are chunked.
const maxUnitChars = 6000

// OutcomeStatus is the result of translating one language.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeExists  OutcomeStatus = "exists"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome reports what happened for one language.
type Outcome struct {
	Status OutcomeStatus
	Err    error
}

type translatePayload struct {
	DocumentID string `json:"document_id"`
	Language   string `json:"language"`
}

// Translator translates documents section by section.
type Translator struct {
	store      Store
	llm        TextGenerator
	pacer      *Pacer
	dispatcher dispatch.Dispatcher
}

// NewTranslator creates a translator. dispatcher is only needed for EnqueueTranslations.
func NewTranslator(store Store, gen TextGenerator, pacer *Pacer, dispatcher dispatch.Dispatcher) *Translator {
	return &Translator{store: store, llm: gen, pacer: pacer, dispatcher: dispatcher}
}

const translateSystemPrompt = `You are a professional translator.
Translate the user's text into %s.
Preserve all Markdown markup exactly: headings, lists, links, emphasis and tables.
Copy every {{placeholder}} verbatim without translating it.
Return only the translated text.`

// Translate processes languages in order. A failure in one language is
// recorded in its outcome and never stops the others.
func (t *Translator) Translate(ctx context.Context, doc *models.Document, languages []string) map[string]Outcome {
	out := make(map[string]Outcome, len(languages))
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, done := out[lang]; done {
			continue
		}
		out[lang] = t.translateOne(ctx, doc, lang)
		slog.Info("translation finished",
			"document_id", doc.ID,
			"language", lang,
			"status", out[lang].Status)
	}
	return out
}

func (t *Translator) translateOne(ctx context.Context, doc *models.Document, lang string) Outcome {
	exists, err := t.store.TranslationExists(ctx, doc.ID, lang)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("check translation: %w", err)}
	}
	if exists {
		return Outcome{Status: OutcomeExists}
	}

	title, err := t.translateUnit(ctx, doc.Title, lang)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("translate title: %w", err)}
	}

	preamble, sections := parser.SplitSections(doc.Body)
	var units []string
	if preamble != "" {
		tr, err := t.translateUnit(ctx, preamble, lang)
		if err != nil {
			return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("translate introduction: %w", err)}
		}
		units = append(units, tr)
	}
	for _, sec := range sections {
		tr, err := t.translateUnit(ctx, parser.JoinSections("", []parser.Section{sec}), lang)
		if err != nil {
			return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("translate section %q: %w", sec.Heading, err)}
		}
		units = append(units, tr)
	}

	err = t.store.CreateTranslation(ctx, models.TranslationRecord{
		DocumentID:      doc.ID,
		LanguageCode:    lang,
		TranslatedTitle: title,
		TranslatedBody:  strings.Join(units, "\n\n"),
	})
	if errors.Is(err, db.ErrAlreadyExists) {
		return Outcome{Status: OutcomeExists}
	}
	if err != nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("store translation: %w", err)}
	}
	return Outcome{Status: OutcomeCreated}
}

// translateUnit translates one unit, splitting it into chunks when it is too large.
func (t *Translator) translateUnit(ctx context.Context, text, lang string) (string, error) {
	chunks := []string{text}
	if len(text) > maxUnitChars {
		chunks = parser.ChunkText(text, maxUnitChars)
	}

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if err := t.pacer.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := t.llm.Generate(ctx, llm.Request{
			System:      fmt.Sprintf(translateSystemPrompt, lang),
			Prompt:      chunk,
			Tier:        llm.TierStandard,
			Temperature: 0.2,
		})
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(resp.Text))
	}
	return strings.Join(parts, "\n\n"), nil
}

// EnqueueTranslations dispatches one translation task per language.
func (t *Translator) EnqueueTranslations(ctx context.Context, docID string, languages []string) error {
	if t.dispatcher == nil {
		return errors.New("enqueue translations: no dispatcher configured")
	}
	for _, lang := range languages {
		task, err := dispatch.NewTask(TaskTranslationRender, QueueTranslations, translatePayload{
			DocumentID: docID,
			Language:   lang,
		})
		if err != nil {
			return err
		}
		if err := t.dispatcher.Dispatch(ctx, task); err != nil {
			return fmt.Errorf("dispatch translation %s: %w", lang, err)
		}
	}
	return nil
}

// HandleTranslate is the task handler for TaskTranslationRender.
// A failed language is returned so the dispatcher redelivers it.
func (t *Translator) HandleTranslate(ctx context.Context, task dispatch.Task) error {
	var p translatePayload
	if err := task.Decode(&p); err != nil {
		slog.Error("dropping malformed translation task", "task_id", task.ID, "error", err)
		return nil
	}

	doc, err := t.store.GetDocument(ctx, p.DocumentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		slog.Warn("translation skipped, document missing", "document_id", p.DocumentID)
		return nil
	}

	outcome := t.Translate(ctx, doc, []string{p.Language})[p.Language]
	if outcome.Status == OutcomeFailed {
		return outcome.Err
	}
	return nil
}
