package db

import (
	"context"
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/contentmill/internal/models"
)

// idRow decodes statements that only return the record id.
type idRow struct {
	ID surrealmodels.RecordID `json:"id"`
}

// documentFields projects the record key as a plain string id.
const documentFields = `*, record::id(id) AS id`

// CreateDocument inserts a new document keyed by doc.ID.
// Returns ErrAlreadyExists when the id or the title fingerprint is taken.
func (c *Client) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	sql := `INSERT INTO document $doc RETURN NONE`
	if _, err := query[any](ctx, c, sql, map[string]any{"doc": doc}); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID. Returns nil, nil if not found.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	sql := `SELECT ` + documentFields + ` FROM type::record("document", $id)`
	results, err := query[[]models.Document](ctx, c, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	docs, ok := first(results)
	if !ok || len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// FingerprintExists reports whether a document with the normalized title
// fingerprint is already stored.
func (c *Client) FingerprintExists(ctx context.Context, fingerprint string) (bool, error) {
	sql := `SELECT VALUE id FROM document WHERE title_fingerprint = $fp LIMIT 1`
	results, err := query[[]surrealmodels.RecordID](ctx, c, sql, map[string]any{"fp": fingerprint})
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	ids, _ := first(results)
	return len(ids) > 0, nil
}

// FindPublishedBySnapshot returns the IDs of published documents whose
// variable snapshot recorded key=value, oldest first.
func (c *Client) FindPublishedBySnapshot(ctx context.Context, key, value string) ([]string, error) {
	sql := `
		SELECT VALUE id FROM document
		WHERE status = "published" AND variable_snapshot[$key] = $value
		ORDER BY created_at ASC
	`
	results, err := query[[]surrealmodels.RecordID](ctx, c, sql, map[string]any{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return nil, fmt.Errorf("find by snapshot: %w", err)
	}

	recordIDs, _ := first(results)
	ids := make([]string, 0, len(recordIDs))
	for _, rid := range recordIDs {
		id, err := models.RecordIDString(rid)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ApplyRender writes a re-rendered title, body and metadata in a single
// statement so readers never observe a partial update.
func (c *Client) ApplyRender(ctx context.Context, id string, r models.RenderedContent) error {
	sql := `
		UPDATE type::record("document", $id) SET
			title = $title,
			body = $body,
			meta_description = $meta_description,
			word_count = $word_count,
			variable_snapshot = $snapshot,
			quality_score = $quality_score,
			quality_report = $quality_report,
			brand_report = $brand_report,
			updated_at = time::now()
		RETURN id
	`
	results, err := query[[]idRow](ctx, c, sql, map[string]any{
		"id":               id,
		"title":            r.Title,
		"body":             r.Body,
		"meta_description": r.MetaDescription,
		"word_count":       r.WordCount,
		"snapshot":         r.VariableSnapshot,
		"quality_score":    r.QualityScore,
		"quality_report":   r.QualityReport,
		"brand_report":     r.BrandReport,
	})
	if err != nil {
		return fmt.Errorf("apply render: %w", err)
	}
	ids, _ := first(results)
	if len(ids) == 0 {
		return fmt.Errorf("apply render %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDocuments returns documents newest first. An empty status lists all.
func (c *Client) ListDocuments(ctx context.Context, status models.DocumentStatus, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	vars := map[string]any{"limit": limit}
	if status != "" {
		where = `WHERE status = $status`
		vars["status"] = string(status)
	}

	sql := fmt.Sprintf(`SELECT %s FROM document %s ORDER BY created_at DESC LIMIT $limit`, documentFields, where)
	results, err := query[[]models.Document](ctx, c, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs, _ := first(results)
	return docs, nil
}
