package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/contentmill/internal/models"
)

// GetVariables returns the current template variables as a key/value map.
func (c *Client) GetVariables(ctx context.Context) (map[string]string, error) {
	vars, err := c.ListVariables(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		out[v.Key] = v.Value
	}
	return out, nil
}

// ListVariables returns every template variable ordered by key.
func (c *Client) ListVariables(ctx context.Context) ([]models.TemplateVariable, error) {
	sql := `SELECT key, value, updated_at FROM variable ORDER BY key ASC`
	results, err := query[[]models.TemplateVariable](ctx, c, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	vars, _ := first(results)
	return vars, nil
}

// SetVariable creates or replaces a template variable.
func (c *Client) SetVariable(ctx context.Context, key, value string) error {
	sql := `
		UPSERT type::record("variable", $key) SET
			key = $key,
			value = $value,
			updated_at = time::now()
		RETURN NONE
	`
	if _, err := query[any](ctx, c, sql, map[string]any{"key": key, "value": value}); err != nil {
		return fmt.Errorf("set variable %s: %w", key, err)
	}
	return nil
}
