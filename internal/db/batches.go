package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raphaelgruber/contentmill/internal/models"
)

const batchFields = `*, record::id(id) AS id`

// conflictRetries bounds how often a conflicting counter update is replayed.
const conflictRetries = 5

// CreateBatch stores a pending batch together with one pending item per
// document in a single transaction.
func (c *Client) CreateBatch(ctx context.Context, batch models.BulkUpdateBatch, documentIDs []string) error {
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	row := map[string]any{
		"id":             batch.ID,
		"variable_key":   batch.VariableKey,
		"old_value":      batch.OldValue,
		"new_value":      batch.NewValue,
		"status":         string(batch.Status),
		"affected_count": batch.AffectedCount,
		"updated_count":  batch.UpdatedCount,
		"failed_count":   batch.FailedCount,
		"created_at":     batch.CreatedAt,
	}

	items := make([]map[string]any, 0, len(documentIDs))
	for _, docID := range documentIDs {
		items = append(items, map[string]any{
			"id":          models.BatchItemID(batch.ID, docID),
			"batch_id":    batch.ID,
			"document_id": docID,
			"status":      string(models.ItemPending),
			"attempts":    0,
		})
	}

	sql := `
		BEGIN TRANSACTION;
		INSERT INTO bulk_batch $batch RETURN NONE;
		IF array::len($items) > 0 {
			INSERT INTO batch_item $items RETURN NONE;
		};
		COMMIT TRANSACTION;
	`
	if _, err := query[any](ctx, c, sql, map[string]any{"batch": row, "items": items}); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID. Returns nil, nil if not found.
func (c *Client) GetBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error) {
	sql := `SELECT ` + batchFields + ` FROM type::record("bulk_batch", $id)`
	results, err := query[[]models.BulkUpdateBatch](ctx, c, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	batches, ok := first(results)
	if !ok || len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

// GetItem retrieves one batch item. Returns nil, nil if not found.
func (c *Client) GetItem(ctx context.Context, batchID, documentID string) (*models.BulkUpdateItem, error) {
	sql := `SELECT * OMIT id FROM type::record("batch_item", $id)`
	results, err := query[[]models.BulkUpdateItem](ctx, c, sql, map[string]any{
		"id": models.BatchItemID(batchID, documentID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	items, ok := first(results)
	if !ok || len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// ListItems returns the items of a batch, optionally filtered by status.
func (c *Client) ListItems(ctx context.Context, batchID string, status *models.ItemStatus) ([]models.BulkUpdateItem, error) {
	vars := map[string]any{"batch_id": batchID}
	sql := `SELECT * OMIT id FROM batch_item WHERE batch_id = $batch_id`
	if status != nil {
		sql += ` AND status = $status`
		vars["status"] = string(*status)
	}
	sql += ` ORDER BY document_id ASC`

	results, err := query[[]models.BulkUpdateItem](ctx, c, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items, _ := first(results)
	return items, nil
}

// StartBatch moves a pending batch to processing, or straight to completed
// when it affects no documents.
func (c *Client) StartBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error) {
	sql := `
		BEGIN TRANSACTION;
		UPDATE type::record("bulk_batch", $id) SET status = "completed", completed_at = time::now()
			WHERE status = "pending" AND affected_count = 0 RETURN NONE;
		UPDATE type::record("bulk_batch", $id) SET status = "processing"
			WHERE status = "pending" RETURN NONE;
		COMMIT TRANSACTION;
	`
	if _, err := query[any](ctx, c, sql, map[string]any{"id": id}); err != nil {
		return nil, fmt.Errorf("start batch: %w", err)
	}
	return c.requireBatch(ctx, id)
}

// finishResult is the shape returned by the FinishItem block.
type finishResult struct {
	Batch        *models.BulkUpdateBatch `json:"batch"`
	Transitioned bool                    `json:"transitioned"`
}

// FinishItem records the outcome of one item. The item transition, the
// counter increment and the completion check run as one statement, so the
// batch completes exactly once. Items that already left pending are ignored
// and reported with transitioned=false.
func (c *Client) FinishItem(ctx context.Context, batchID, documentID string, success bool, errMsg string) (*models.BulkUpdateBatch, bool, error) {
	status := models.ItemFailed
	if success {
		status = models.ItemSuccess
		errMsg = ""
	}

	sql := `
		RETURN {
			LET $moved = (
				UPDATE type::record("batch_item", $item_id) SET
					status = $status,
					error_message = IF $err = "" { NONE } ELSE { $err },
					attempts += 1
				WHERE status = "pending"
				RETURN id
			);
			IF array::len($moved) > 0 {
				IF $success {
					UPDATE type::record("bulk_batch", $batch_id) SET updated_count += 1 RETURN NONE;
				} ELSE {
					UPDATE type::record("bulk_batch", $batch_id) SET failed_count += 1 RETURN NONE;
				};
			};
			UPDATE type::record("bulk_batch", $batch_id) SET status = "completed", completed_at = time::now()
				WHERE status = "processing" AND updated_count + failed_count >= affected_count
				RETURN NONE;
			RETURN {
				batch: (SELECT ` + batchFields + ` FROM ONLY type::record("bulk_batch", $batch_id)),
				transitioned: array::len($moved) > 0
			};
		};
	`
	vars := map[string]any{
		"item_id":  models.BatchItemID(batchID, documentID),
		"batch_id": batchID,
		"status":   string(status),
		"success":  success,
		"err":      errMsg,
	}

	out, err := retryOnConflict(ctx, func() (finishResult, error) {
		results, err := query[finishResult](ctx, c, sql, vars)
		if err != nil {
			return finishResult{}, err
		}
		res, _ := first(results)
		return res, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("finish item %s: %w", documentID, err)
	}
	if out.Batch == nil || out.Batch.ID == "" {
		return nil, false, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return out.Batch, out.Transitioned, nil
}

// resetResult is the shape returned by the ResetFailedItems block.
type resetResult struct {
	DocumentIDs []string                `json:"document_ids"`
	Batch       *models.BulkUpdateBatch `json:"batch"`
}

// ResetFailedItems puts every failed item of a batch back to pending,
// subtracts them from the failed counter and reopens a completed batch.
// Returns the reset document IDs and the batch after the update.
func (c *Client) ResetFailedItems(ctx context.Context, batchID string) ([]string, *models.BulkUpdateBatch, error) {
	sql := `
		RETURN {
			LET $reset = (
				UPDATE batch_item SET status = "pending", error_message = NONE
				WHERE batch_id = $batch_id AND status = "failed"
				RETURN document_id
			);
			LET $n = array::len($reset);
			IF $n > 0 {
				UPDATE type::record("bulk_batch", $batch_id) SET failed_count -= $n RETURN NONE;
				UPDATE type::record("bulk_batch", $batch_id) SET status = "processing", completed_at = NONE
					WHERE status = "completed" RETURN NONE;
			};
			RETURN {
				document_ids: $reset.document_id,
				batch: (SELECT ` + batchFields + ` FROM ONLY type::record("bulk_batch", $batch_id))
			};
		};
	`
	out, err := retryOnConflict(ctx, func() (resetResult, error) {
		results, err := query[resetResult](ctx, c, sql, map[string]any{"batch_id": batchID})
		if err != nil {
			return resetResult{}, err
		}
		res, _ := first(results)
		return res, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reset failed items: %w", err)
	}
	if out.Batch == nil || out.Batch.ID == "" {
		return nil, nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return out.DocumentIDs, out.Batch, nil
}

// CancelBatch marks a batch cancelled unless it already completed.
func (c *Client) CancelBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error) {
	sql := `
		UPDATE type::record("bulk_batch", $id) SET status = "cancelled"
		WHERE status IN ["pending", "processing"]
		RETURN NONE
	`
	if _, err := query[any](ctx, c, sql, map[string]any{"id": id}); err != nil {
		return nil, fmt.Errorf("cancel batch: %w", err)
	}
	return c.requireBatch(ctx, id)
}

func (c *Client) requireBatch(ctx context.Context, id string) (*models.BulkUpdateBatch, error) {
	batch, err := c.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return batch, nil
}

// retryOnConflict replays op while SurrealDB reports a transaction conflict.
// Any other error stops immediately.
func retryOnConflict[T any](ctx context.Context, op func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, ErrTransactionConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, conflictRetries), ctx))
}
