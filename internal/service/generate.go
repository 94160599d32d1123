package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/contentmill/internal/db"
	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
	"github.com/raphaelgruber/contentmill/internal/templates"
)

// ErrDuplicateTitle is returned when a document with the same normalized title exists.
var ErrDuplicateTitle = errors.New("duplicate title")

// GenerateRequest describes one generation run.
type GenerateRequest struct {
	Topic    string
	Locale   string
	Language string
	// TemplateID forces a template; empty picks the best keyword match.
	TemplateID string
}

// GeneratorOptions tunes a generation run.
type GeneratorOptions struct {
	CallDelay        time.Duration
	MaxQueries       int
	Sections         SectionRange
	OverlapThreshold float64
	SectionRetries   int
	RetryDelay       time.Duration
	Gate             Gate
}

// Generator runs the research, outline, writing, assembly and quality pipeline.
type Generator struct {
	store    Store
	llm      TextGenerator
	search   Searcher
	enricher SourceEnricher
	images   ImageGenerator
	opts     GeneratorOptions
}

// NewGenerator creates a generator. enricher and images may be nil.
func NewGenerator(store Store, gen TextGenerator, search Searcher, enricher SourceEnricher, images ImageGenerator, opts GeneratorOptions) *Generator {
	if opts.Sections.Min == 0 && opts.Sections.Max == 0 {
		opts.Sections = SectionRange{Min: 8, Max: 12}
	}
	return &Generator{
		store:    store,
		llm:      gen,
		search:   search,
		enricher: enricher,
		images:   images,
		opts:     opts,
	}
}

// Generate runs one request end to end. Nothing is persisted unless every
// mandatory step succeeds.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*models.Document, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.New("generate: topic is required")
	}
	if req.Locale == "" {
		req.Locale = "en-US"
	}
	if req.Language == "" {
		req.Language = "en"
	}

	start := time.Now()
	pacer := NewPacer(g.opts.CallDelay)
	meter := &costMeter{next: g.llm}

	// 1. Template
	tpl, err := g.chooseTemplate(ctx, topic, req.TemplateID)
	if err != nil {
		return nil, err
	}

	// 2. Research
	digest, err := NewResearcher(g.search, g.enricher, pacer).ConductResearch(ctx, topic, req.Locale, g.opts.MaxQueries)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	// 3. Outline
	plan, err := NewPlanner(meter, pacer, g.opts.OverlapThreshold).PlanOutline(ctx, topic, digest, g.opts.Sections, tpl)
	if err != nil {
		return nil, err
	}

	// 4. Duplicate check
	fingerprint := models.Fingerprint(plan.Title)
	exists, err := g.store.FingerprintExists(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTitle, plan.Title)
	}

	// 5. Writing
	writer := NewWriter(meter, pacer, g.opts.SectionRetries, g.opts.RetryDelay)
	sections, err := writer.WriteSections(ctx, plan, digest)
	if err != nil {
		return nil, err
	}
	intro, err := writer.WriteIntro(ctx, plan)
	if err != nil {
		return nil, err
	}
	conclusion, err := writer.WriteConclusion(ctx, plan)
	if err != nil {
		return nil, err
	}
	faq, err := writer.WriteFAQ(ctx, plan, digest)
	if err != nil {
		return nil, err
	}

	// 6. Assembly
	bodySource := Assemble(intro, sections, conclusion)
	if tpl != nil && strings.TrimSpace(tpl.CTABlock) != "" {
		bodySource = normalizeBody(bodySource + "\n\n" + tpl.CTABlock)
	}

	// 7. Placeholders
	vars, err := g.store.GetVariables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load variables: %w", err)
	}
	doc := &models.Document{
		ID:                    uuid.NewString(),
		Topic:                 topic,
		Locale:                req.Locale,
		Language:              req.Language,
		TitleFingerprint:      fingerprint,
		TitleSource:           plan.Title,
		BodySource:            bodySource,
		MetaDescriptionSource: plan.MetaDescription,
		FocusKeyword:          plan.FocusKeyword,
		FAQ:                   faq,
		Sources:               digest.Sources,
		ResearchQueries:       digest.Queries,
	}
	if tpl != nil {
		doc.TemplateID = models.Ptr(tpl.ID)
	}
	rendered, err := renderDocument(doc, vars)
	if err != nil {
		return nil, err
	}
	applyRendered(doc, rendered)

	// 8. Featured image
	imageCost := g.featuredImage(ctx, doc)

	// 9. Quality gate
	verdict := g.opts.Gate.Check(doc)
	doc.QualityScore = verdict.Quality.WeightedTotal
	doc.QualityReport = verdict.Quality
	doc.BrandReport = verdict.Brand
	doc.Status = verdict.Status
	if doc.Status == models.StatusPublished {
		doc.PublishedAt = models.Ptr(time.Now().UTC())
	}
	doc.GenerationCost = digest.CostEstimate + meter.Total() + imageCost

	// 10. Persist
	if err := g.store.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTitle, plan.Title)
		}
		return nil, fmt.Errorf("persist document: %w", err)
	}
	if tpl != nil {
		if err := g.store.IncrementTemplateUsage(ctx, tpl.ID); err != nil {
			slog.Warn("failed to bump template usage", "template_id", tpl.ID, "error", err)
		}
	}

	slog.Info("document generated",
		"document_id", doc.ID,
		"title", doc.Title,
		"status", doc.Status,
		"quality", doc.QualityScore,
		"words", doc.WordCount,
		"cost", doc.GenerationCost,
		"duration", time.Since(start))
	return doc, nil
}

func (g *Generator) chooseTemplate(ctx context.Context, topic, id string) (*models.ContentTemplate, error) {
	if id != "" {
		tpl, err := g.store.GetTemplate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		if tpl == nil {
			return nil, fmt.Errorf("template %s: %w", id, db.ErrNotFound)
		}
		return tpl, nil
	}

	candidates, err := g.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	tpl, score := templates.BestMatch(candidates, topic)
	if tpl != nil {
		slog.Debug("template matched", "template_id", tpl.ID, "score", score)
	}
	return tpl, nil
}

// featuredImage is best effort; failures are logged and the document goes without.
func (g *Generator) featuredImage(ctx context.Context, doc *models.Document) float64 {
	if g.images == nil {
		return 0
	}
	prompt := fmt.Sprintf("Editorial header illustration for an article titled %q. Clean, modern, no text.", doc.Title)
	img, err := g.images.Generate(ctx, models.Slugify(doc.Title), prompt)
	if err != nil {
		slog.Warn("featured image failed", "title", doc.Title, "error", err)
		return 0
	}
	doc.FeaturedImage = models.Ptr(img.Location)
	return img.CostEstimate
}

// renderDocument renders the placeholder sources of doc against vars.
func renderDocument(doc *models.Document, vars map[string]string) (models.RenderedContent, error) {
	titleSource, bodySource := doc.TitleSource, doc.BodySource
	if titleSource == "" {
		titleSource = doc.Title
	}
	if bodySource == "" {
		bodySource = doc.Body
	}
	metaSource := doc.MetaDescriptionSource
	if metaSource == "" {
		metaSource = doc.MetaDescription
	}

	title, err := templates.Render(titleSource, vars)
	if err != nil {
		return models.RenderedContent{}, fmt.Errorf("render title: %w", err)
	}
	body, err := templates.Render(bodySource, vars)
	if err != nil {
		return models.RenderedContent{}, fmt.Errorf("render body: %w", err)
	}
	meta, err := templates.Render(metaSource, vars)
	if err != nil {
		return models.RenderedContent{}, fmt.Errorf("render meta description: %w", err)
	}

	return models.RenderedContent{
		Title:            title,
		Body:             body,
		MetaDescription:  meta,
		WordCount:        parser.WordCount(body),
		VariableSnapshot: templates.Snapshot(vars, titleSource, bodySource, metaSource),
	}, nil
}

func applyRendered(doc *models.Document, r models.RenderedContent) {
	doc.Title = r.Title
	doc.Body = r.Body
	doc.MetaDescription = r.MetaDescription
	doc.WordCount = r.WordCount
	doc.VariableSnapshot = r.VariableSnapshot
}

// costMeter sums the cost estimates of every call made through it.
type costMeter struct {
	next TextGenerator

	mu    sync.Mutex
	total float64
}

func (m *costMeter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := m.next.Generate(ctx, req)
	if err == nil {
		m.mu.Lock()
		m.total += resp.CostEstimate
		m.mu.Unlock()
	}
	return resp, err
}

// Total is the summed cost so far.
func (m *costMeter) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
