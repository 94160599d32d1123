// Package memstore is an in-memory store with the same semantics and
// sentinel errors as the SurrealDB store. Every mutation runs under one mutex.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/contentmill/internal/db"
	"github.com/raphaelgruber/contentmill/internal/models"
)

// Store keeps all records in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	documents    map[string]models.Document
	fingerprints map[string]string
	variables    map[string]models.TemplateVariable
	templates    map[string]models.ContentTemplate
	batches      map[string]models.BulkUpdateBatch
	items        map[string]models.BulkUpdateItem
	translations map[string]models.TranslationRecord

	// FailApplyRender, when set, is consulted before every ApplyRender.
	FailApplyRender func(id string) error

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		documents:    make(map[string]models.Document),
		fingerprints: make(map[string]string),
		variables:    make(map[string]models.TemplateVariable),
		templates:    make(map[string]models.ContentTemplate),
		batches:      make(map[string]models.BulkUpdateBatch),
		items:        make(map[string]models.BulkUpdateItem),
		translations: make(map[string]models.TranslationRecord),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *Store) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("create document %s: %w", doc.ID, db.ErrAlreadyExists)
	}
	if _, ok := s.fingerprints[doc.TitleFingerprint]; ok {
		return fmt.Errorf("create document fingerprint %s: %w", doc.TitleFingerprint, db.ErrAlreadyExists)
	}

	now := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	s.documents[doc.ID] = cloneDocument(*doc)
	s.fingerprints[doc.TitleFingerprint] = doc.ID
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (s *Store) FingerprintExists(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fingerprints[fingerprint]
	return ok, nil
}

func (s *Store) FindPublishedBySnapshot(_ context.Context, key, value string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []models.Document
	for _, doc := range s.documents {
		if doc.Status != models.StatusPublished {
			continue
		}
		if v, ok := doc.VariableSnapshot[key]; ok && v == value {
			matches = append(matches, doc)
		}
	}
	slices.SortFunc(matches, func(a, b models.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	ids := make([]string, len(matches))
	for i, doc := range matches {
		ids[i] = doc.ID
	}
	return ids, nil
}

func (s *Store) ApplyRender(_ context.Context, id string, r models.RenderedContent) error {
	if s.FailApplyRender != nil {
		if err := s.FailApplyRender(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("apply render %s: %w", id, db.ErrNotFound)
	}
	doc.Title = r.Title
	doc.Body = r.Body
	doc.MetaDescription = r.MetaDescription
	doc.WordCount = r.WordCount
	doc.VariableSnapshot = maps.Clone(r.VariableSnapshot)
	doc.QualityScore = r.QualityScore
	doc.QualityReport = cloneQualityReport(r.QualityReport)
	doc.BrandReport = cloneBrandReport(r.BrandReport)
	doc.UpdatedAt = s.now()
	s.documents[id] = doc
	return nil
}

func (s *Store) ListDocuments(_ context.Context, status models.DocumentStatus, limit int) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var docs []models.Document
	for _, doc := range s.documents {
		if status == "" || doc.Status == status {
			docs = append(docs, cloneDocument(doc))
		}
	}
	slices.SortFunc(docs, func(a, b models.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// =============================================================================
// VARIABLES
// =============================================================================

func (s *Store) GetVariables(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.variables))
	for k, v := range s.variables {
		out[k] = v.Value
	}
	return out, nil
}

func (s *Store) SetVariable(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[key] = models.TemplateVariable{Key: key, Value: value, UpdatedAt: s.now()}
	return nil
}

func (s *Store) ListVariables(_ context.Context) ([]models.TemplateVariable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars := make([]models.TemplateVariable, 0, len(s.variables))
	for _, v := range s.variables {
		vars = append(vars, v)
	}
	slices.SortFunc(vars, func(a, b models.TemplateVariable) int {
		return strings.Compare(a.Key, b.Key)
	})
	return vars, nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Store) ListTemplates(_ context.Context) ([]models.ContentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpls := make([]models.ContentTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		tpls = append(tpls, cloneTemplate(t))
	}
	slices.SortFunc(tpls, func(a, b models.ContentTemplate) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tpls, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*models.ContentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	out := cloneTemplate(t)
	return &out, nil
}

func (s *Store) UpsertTemplate(_ context.Context, tpl models.ContentTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.templates[tpl.ID]; ok {
		tpl.UsageCount = existing.UsageCount
	} else {
		tpl.UsageCount = 0
	}
	s.templates[tpl.ID] = cloneTemplate(tpl)
	return nil
}

func (s *Store) IncrementTemplateUsage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return fmt.Errorf("template %s: %w", id, db.ErrNotFound)
	}
	t.UsageCount++
	s.templates[id] = t
	return nil
}

// =============================================================================
// BATCHES
// =============================================================================

func (s *Store) CreateBatch(_ context.Context, batch models.BulkUpdateBatch, documentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.ID]; ok {
		return fmt.Errorf("create batch %s: %w", batch.ID, db.ErrAlreadyExists)
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = s.now()
	}
	s.batches[batch.ID] = batch
	for _, docID := range documentIDs {
		s.items[models.BatchItemID(batch.ID, docID)] = models.BulkUpdateItem{
			BatchID:    batch.ID,
			DocumentID: docID,
			Status:     models.ItemPending,
		}
	}
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*models.BulkUpdateBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) GetItem(_ context.Context, batchID, documentID string) (*models.BulkUpdateItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[models.BatchItemID(batchID, documentID)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context, batchID string, status *models.ItemStatus) ([]models.BulkUpdateItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.BulkUpdateItem
	for _, item := range s.items {
		if item.BatchID != batchID {
			continue
		}
		if status != nil && item.Status != *status {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b models.BulkUpdateItem) int {
		return strings.Compare(a.DocumentID, b.DocumentID)
	})
	return items, nil
}

func (s *Store) StartBatch(_ context.Context, id string) (*models.BulkUpdateBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, db.ErrNotFound)
	}
	if b.Status == models.BatchPending {
		if b.AffectedCount == 0 {
			now := s.now()
			b.Status = models.BatchCompleted
			b.CompletedAt = &now
		} else {
			b.Status = models.BatchProcessing
		}
		s.batches[id] = b
	}
	return &b, nil
}

func (s *Store) FinishItem(_ context.Context, batchID, documentID string, success bool, errMsg string) (*models.BulkUpdateBatch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, false, fmt.Errorf("batch %s: %w", batchID, db.ErrNotFound)
	}

	key := models.BatchItemID(batchID, documentID)
	item, ok := s.items[key]
	transitioned := ok && item.Status == models.ItemPending
	if transitioned {
		item.Attempts++
		if success {
			item.Status = models.ItemSuccess
			item.ErrorMessage = nil
			b.UpdatedCount++
		} else {
			item.Status = models.ItemFailed
			msg := errMsg
			item.ErrorMessage = &msg
			b.FailedCount++
		}
		s.items[key] = item
	}

	if b.Status == models.BatchProcessing && b.UpdatedCount+b.FailedCount >= b.AffectedCount {
		now := s.now()
		b.Status = models.BatchCompleted
		b.CompletedAt = &now
	}
	s.batches[batchID] = b
	return &b, transitioned, nil
}

func (s *Store) ResetFailedItems(_ context.Context, batchID string) ([]string, *models.BulkUpdateBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, nil, fmt.Errorf("batch %s: %w", batchID, db.ErrNotFound)
	}

	var ids []string
	for key, item := range s.items {
		if item.BatchID != batchID || item.Status != models.ItemFailed {
			continue
		}
		item.Status = models.ItemPending
		item.ErrorMessage = nil
		s.items[key] = item
		ids = append(ids, item.DocumentID)
	}
	slices.Sort(ids)

	if len(ids) > 0 {
		b.FailedCount -= len(ids)
		if b.Status == models.BatchCompleted {
			b.Status = models.BatchProcessing
			b.CompletedAt = nil
		}
		s.batches[batchID] = b
	}
	return ids, &b, nil
}

func (s *Store) CancelBatch(_ context.Context, id string) (*models.BulkUpdateBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, db.ErrNotFound)
	}
	if b.Status == models.BatchPending || b.Status == models.BatchProcessing {
		b.Status = models.BatchCancelled
		s.batches[id] = b
	}
	return &b, nil
}

// =============================================================================
// TRANSLATIONS
// =============================================================================

func (s *Store) TranslationExists(_ context.Context, documentID, languageCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.translations[models.TranslationID(documentID, languageCode)]
	return ok, nil
}

func (s *Store) CreateTranslation(_ context.Context, rec models.TranslationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.TranslationID(rec.DocumentID, rec.LanguageCode)
	if _, ok := s.translations[key]; ok {
		return fmt.Errorf("create translation %s: %w", key, db.ErrAlreadyExists)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.translations[key] = rec
	return nil
}

func (s *Store) ListTranslations(_ context.Context, documentID string) ([]models.TranslationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []models.TranslationRecord
	for _, rec := range s.translations {
		if rec.DocumentID == documentID {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b models.TranslationRecord) int {
		return strings.Compare(a.LanguageCode, b.LanguageCode)
	})
	return recs, nil
}

func cloneDocument(d models.Document) models.Document {
	d.VariableSnapshot = maps.Clone(d.VariableSnapshot)
	d.FAQ = slices.Clone(d.FAQ)
	d.Sources = slices.Clone(d.Sources)
	d.ResearchQueries = slices.Clone(d.ResearchQueries)
	d.QualityReport = cloneQualityReport(d.QualityReport)
	d.BrandReport = cloneBrandReport(d.BrandReport)
	d.TemplateID = clonePtr(d.TemplateID)
	d.FeaturedImage = clonePtr(d.FeaturedImage)
	d.PublishedAt = clonePtr(d.PublishedAt)
	return d
}

func cloneQualityReport(r models.QualityReport) models.QualityReport {
	r.CriterionScores = maps.Clone(r.CriterionScores)
	r.Errors = slices.Clone(r.Errors)
	r.Warnings = slices.Clone(r.Warnings)
	return r
}

func cloneBrandReport(r models.BrandReport) models.BrandReport {
	r.Errors = slices.Clone(r.Errors)
	r.Warnings = slices.Clone(r.Warnings)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTemplate(t models.ContentTemplate) models.ContentTemplate {
	t.Keywords = slices.Clone(t.Keywords)
	return t
}
