package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/contentmill/internal/models"
)

// TranslationExists reports whether a translation for the pair is stored.
func (c *Client) TranslationExists(ctx context.Context, documentID, languageCode string) (bool, error) {
	sql := `SELECT id FROM type::record("translation", $id)`
	results, err := query[[]idRow](ctx, c, sql, map[string]any{
		"id": models.TranslationID(documentID, languageCode),
	})
	if err != nil {
		return false, fmt.Errorf("translation lookup: %w", err)
	}
	rows, _ := first(results)
	return len(rows) > 0, nil
}

// CreateTranslation stores a translation keyed by document and language.
// Returns ErrAlreadyExists if the pair was stored before.
func (c *Client) CreateTranslation(ctx context.Context, rec models.TranslationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	row := map[string]any{
		"id":               models.TranslationID(rec.DocumentID, rec.LanguageCode),
		"document_id":      rec.DocumentID,
		"language_code":    rec.LanguageCode,
		"translated_title": rec.TranslatedTitle,
		"translated_body":  rec.TranslatedBody,
		"created_at":       rec.CreatedAt,
	}
	if _, err := query[any](ctx, c, `INSERT INTO translation $row RETURN NONE`, map[string]any{"row": row}); err != nil {
		return fmt.Errorf("create translation: %w", err)
	}
	return nil
}

// ListTranslations returns the translations of a document ordered by language.
func (c *Client) ListTranslations(ctx context.Context, documentID string) ([]models.TranslationRecord, error) {
	sql := `SELECT * OMIT id FROM translation WHERE document_id = $doc ORDER BY language_code ASC`
	results, err := query[[]models.TranslationRecord](ctx, c, sql, map[string]any{"doc": documentID})
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	recs, _ := first(results)
	return recs, nil
}
