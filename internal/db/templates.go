package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/contentmill/internal/models"
)

const templateFields = `*, record::id(id) AS id`

// ListTemplates returns every stored content template ordered by name.
func (c *Client) ListTemplates(ctx context.Context) ([]models.ContentTemplate, error) {
	sql := `SELECT ` + templateFields + ` FROM template ORDER BY name ASC`
	results, err := query[[]models.ContentTemplate](ctx, c, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	tpls, _ := first(results)
	return tpls, nil
}

// GetTemplate retrieves a template by ID. Returns nil, nil if not found.
func (c *Client) GetTemplate(ctx context.Context, id string) (*models.ContentTemplate, error) {
	sql := `SELECT ` + templateFields + ` FROM type::record("template", $id)`
	results, err := query[[]models.ContentTemplate](ctx, c, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	tpls, ok := first(results)
	if !ok || len(tpls) == 0 {
		return nil, nil
	}
	return &tpls[0], nil
}

// UpsertTemplate creates or replaces a template. The usage count survives.
func (c *Client) UpsertTemplate(ctx context.Context, tpl models.ContentTemplate) error {
	keywords := tpl.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	sql := `
		UPSERT type::record("template", $id) SET
			name = $name,
			keywords = $keywords,
			instructions = $instructions,
			cta_block = $cta_block,
			usage_count = usage_count ?? 0
		RETURN NONE
	`
	_, err := query[any](ctx, c, sql, map[string]any{
		"id":           tpl.ID,
		"name":         tpl.Name,
		"keywords":     keywords,
		"instructions": tpl.Instructions,
		"cta_block":    tpl.CTABlock,
	})
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", tpl.ID, err)
	}
	return nil
}

// IncrementTemplateUsage bumps the usage counter used for tie-breaking.
func (c *Client) IncrementTemplateUsage(ctx context.Context, id string) error {
	sql := `UPDATE type::record("template", $id) SET usage_count += 1 RETURN id`
	results, err := query[[]idRow](ctx, c, sql, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	rows, _ := first(results)
	if len(rows) == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}
