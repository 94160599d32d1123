// Package service implements the content pipeline: research, outlining,
// section writing, assembly, the quality gate, change propagation and
// translation.
package service

import (
	"context"

	"github.com/raphaelgruber/contentmill/internal/imagegen"
	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/search"
)

// TextGenerator performs one blocking generation call.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Searcher queries the deep-search service.
type Searcher interface {
	Search(ctx context.Context, query, locale string) (search.Result, error)
}

// SourceEnricher fetches source pages for title and excerpt extraction.
// Pages that cannot be fetched are omitted.
type SourceEnricher interface {
	Enrich(ctx context.Context, urls []string) []search.Page
}

// ImageGenerator produces a featured image and returns where it was stored.
type ImageGenerator interface {
	Generate(ctx context.Context, name, prompt string) (imagegen.Image, error)
}

// DocumentStore persists generated documents.
type DocumentStore interface {
	// CreateDocument returns db.ErrAlreadyExists when the id or title fingerprint is taken.
	CreateDocument(ctx context.Context, doc *models.Document) error
	// GetDocument returns nil, nil when the document does not exist.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	FingerprintExists(ctx context.Context, fingerprint string) (bool, error)
	FindPublishedBySnapshot(ctx context.Context, key, value string) ([]string, error)
	// ApplyRender replaces rendered content and snapshot in one transaction.
	ApplyRender(ctx context.Context, id string, r models.RenderedContent) error
	ListDocuments(ctx context.Context, status models.DocumentStatus, limit int) ([]models.Document, error)
}

// VariableStore holds the current template variable values.
type VariableStore interface {
	GetVariables(ctx context.Context) (map[string]string, error)
	SetVariable(ctx context.Context, key, value string) error
	ListVariables(ctx context.Context) ([]models.TemplateVariable, error)
}

// TemplateStore holds content templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]models.ContentTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.ContentTemplate, error)
	UpsertTemplate(ctx context.Context, tpl models.ContentTemplate) error
	IncrementTemplateUsage(ctx context.Context, id string) error
}

// BatchStore holds bulk-update batches and their items. The batch counters
// are only mutated through FinishItem and ResetFailedItems.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch models.BulkUpdateBatch, documentIDs []string) error
	GetBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error)
	GetItem(ctx context.Context, batchID, documentID string) (*models.BulkUpdateItem, error)
	ListItems(ctx context.Context, batchID string, status *models.ItemStatus) ([]models.BulkUpdateItem, error)
	StartBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error)
	// FinishItem moves a pending item to success or failed, bumps the
	// matching counter and completes a processing batch once every item
	// is accounted for. transitioned is false when the item was not pending.
	FinishItem(ctx context.Context, batchID, documentID string, success bool, errMsg string) (batch *models.BulkUpdateBatch, transitioned bool, err error)
	ResetFailedItems(ctx context.Context, batchID string) ([]string, *models.BulkUpdateBatch, error)
	CancelBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error)
}

// TranslationStore holds translations keyed by document and language.
type TranslationStore interface {
	TranslationExists(ctx context.Context, documentID, languageCode string) (bool, error)
	// CreateTranslation returns db.ErrAlreadyExists for a stored pair.
	CreateTranslation(ctx context.Context, rec models.TranslationRecord) error
	ListTranslations(ctx context.Context, documentID string) ([]models.TranslationRecord, error)
}

// Store is everything the pipeline persists.
type Store interface {
	DocumentStore
	VariableStore
	TemplateStore
	BatchStore
	TranslationStore
}
