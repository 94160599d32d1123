package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/contentmill/internal/db"
	"github.com/raphaelgruber/contentmill/internal/dispatch"
	"github.com/raphaelgruber/contentmill/internal/models"
)

// Bulk update task routing.
const (
	TaskBulkUpdateRender = "bulk_update.render"
	QueueBulkUpdates     = "bulk-updates"
)

var (
	// ErrBatchNotFound is returned for an unknown batch ID.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrBatchCancelled is returned when retrying a cancelled batch.
	ErrBatchCancelled = errors.New("batch cancelled")
)

// renderPayload identifies one item of a batch.
type renderPayload struct {
	BatchID    string `json:"batch_id"`
	DocumentID string `json:"document_id"`
}

// BulkUpdater propagates a template variable change to published documents.
type BulkUpdater struct {
	store      Store
	dispatcher dispatch.Dispatcher
	gate       Gate
}

// NewBulkUpdater creates the propagation engine.
func NewBulkUpdater(store Store, dispatcher dispatch.Dispatcher, gate Gate) *BulkUpdater {
	return &BulkUpdater{store: store, dispatcher: dispatcher, gate: gate}
}

// InitiateBulkUpdate records one item per published document that rendered
// with the old value, stores the new value and dispatches a render task per item.
// The batch exists before the value changes, so an interrupted start is
// recovered with Resume.
func (u *BulkUpdater) InitiateBulkUpdate(ctx context.Context, key, oldValue, newValue string) (*models.BulkUpdateBatch, error) {
	if key == "" {
		return nil, errors.New("bulk update: variable key is required")
	}

	docIDs, err := u.store.FindPublishedBySnapshot(ctx, key, oldValue)
	if err != nil {
		return nil, fmt.Errorf("find affected documents: %w", err)
	}

	batch := models.BulkUpdateBatch{
		ID:            uuid.NewString(),
		VariableKey:   key,
		OldValue:      oldValue,
		NewValue:      newValue,
		Status:        models.BatchPending,
		AffectedCount: len(docIDs),
		CreatedAt:     time.Now().UTC(),
	}
	if err := u.store.CreateBatch(ctx, batch, docIDs); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	if err := u.store.SetVariable(ctx, key, newValue); err != nil {
		if _, cerr := u.store.CancelBatch(ctx, batch.ID); cerr != nil {
			slog.Error("failed to cancel batch after variable write failed", "batch_id", batch.ID, "error", cerr)
		}
		return nil, fmt.Errorf("set variable %s (batch %s cancelled, value unchanged): %w", key, batch.ID, err)
	}

	started, err := u.store.StartBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("start batch %s (resume it to continue): %w", batch.ID, err)
	}

	slog.Info("bulk update started",
		"batch_id", batch.ID,
		"key", key,
		"affected", len(docIDs))

	u.dispatchItems(ctx, batch.ID, docIDs)
	return started, nil
}

// HandleRender is the task handler for TaskBulkUpdateRender. Items that are
// no longer pending are skipped so redelivery is harmless.
func (u *BulkUpdater) HandleRender(ctx context.Context, task dispatch.Task) error {
	var p renderPayload
	if err := task.Decode(&p); err != nil {
		slog.Error("dropping malformed render task", "task_id", task.ID, "error", err)
		return nil
	}

	item, err := u.store.GetItem(ctx, p.BatchID, p.DocumentID)
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	if item == nil || item.Status != models.ItemPending {
		slog.Debug("skipping settled item", "batch_id", p.BatchID, "document_id", p.DocumentID)
		return nil
	}

	renderErr := u.rerender(ctx, p.DocumentID)
	errMsg := ""
	if renderErr != nil {
		errMsg = renderErr.Error()
		slog.Warn("bulk update item failed",
			"batch_id", p.BatchID,
			"document_id", p.DocumentID,
			"error", renderErr)
	}

	batch, moved, err := u.store.FinishItem(ctx, p.BatchID, p.DocumentID, renderErr == nil, errMsg)
	if err != nil {
		return fmt.Errorf("finish item: %w", err)
	}
	if moved && batch.Status == models.BatchCompleted && batch.UpdatedCount+batch.FailedCount == batch.AffectedCount {
		slog.Info("bulk update completed",
			"batch_id", batch.ID,
			"updated", batch.UpdatedCount,
			"failed", batch.FailedCount)
	}
	return nil
}

// rerender re-renders a document against the current variable set and
// persists content, snapshot and reports together. Status is left alone.
func (u *BulkUpdater) rerender(ctx context.Context, docID string) error {
	doc, err := u.store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s: %w", docID, db.ErrNotFound)
	}

	vars, err := u.store.GetVariables(ctx)
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}

	rendered, err := renderDocument(doc, vars)
	if err != nil {
		return err
	}
	applyRendered(doc, rendered)

	verdict := u.gate.Check(doc)
	rendered.QualityScore = verdict.Quality.WeightedTotal
	rendered.QualityReport = verdict.Quality
	rendered.BrandReport = verdict.Brand

	if err := u.store.ApplyRender(ctx, docID, rendered); err != nil {
		return fmt.Errorf("persist render: %w", err)
	}
	return nil
}

// RetryFailed resets failed items to pending and redispatches every pending
// item, including ones whose tasks never ran. Returns how many items were redispatched.
func (u *BulkUpdater) RetryFailed(ctx context.Context, batchID string) (int, error) {
	batch, err := u.getBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if batch.Status == models.BatchCancelled {
		return 0, fmt.Errorf("retry %s: %w", batchID, ErrBatchCancelled)
	}

	ids, _, err := u.store.ResetFailedItems(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("reset failed items: %w", err)
	}
	slog.Info("retrying failed items", "batch_id", batchID, "count", len(ids))

	return u.Resume(ctx, batchID)
}

// Resume redispatches the pending items of an unfinished batch, such as one
// whose process stopped before every task ran. A batch that never started is
// started first. Returns how many items were redispatched.
func (u *BulkUpdater) Resume(ctx context.Context, batchID string) (int, error) {
	batch, err := u.getBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	switch batch.Status {
	case models.BatchCancelled:
		return 0, fmt.Errorf("resume %s: %w", batchID, ErrBatchCancelled)
	case models.BatchCompleted:
		return 0, nil
	case models.BatchPending:
		if _, err := u.store.StartBatch(ctx, batchID); err != nil {
			return 0, fmt.Errorf("start batch: %w", err)
		}
	}

	pending := models.ItemPending
	items, err := u.store.ListItems(ctx, batchID, &pending)
	if err != nil {
		return 0, fmt.Errorf("list pending items: %w", err)
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.DocumentID
	}
	slog.Info("resuming batch", "batch_id", batchID, "pending", len(ids))

	u.dispatchItems(ctx, batchID, ids)
	return len(ids), nil
}

// Cancel stops the batch from completing. Dispatched tasks still run.
func (u *BulkUpdater) Cancel(ctx context.Context, batchID string) (*models.BulkUpdateBatch, error) {
	batch, err := u.store.CancelBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return nil, fmt.Errorf("cancel batch: %w", err)
	}
	slog.Info("bulk update cancel requested", "batch_id", batchID, "status", batch.Status)
	return batch, nil
}

// BatchStatus returns the batch and its failed items.
func (u *BulkUpdater) BatchStatus(ctx context.Context, batchID string) (*models.BulkUpdateBatch, []models.BulkUpdateItem, error) {
	batch, err := u.getBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	failed := models.ItemFailed
	items, err := u.store.ListItems(ctx, batchID, &failed)
	if err != nil {
		return nil, nil, fmt.Errorf("list failed items: %w", err)
	}
	return batch, items, nil
}

// Progress is the settled fraction of a batch, 1 for an empty batch.
func Progress(batch models.BulkUpdateBatch) float64 {
	return batch.Percent()
}

func (u *BulkUpdater) getBatch(ctx context.Context, batchID string) (*models.BulkUpdateBatch, error) {
	batch, err := u.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return batch, nil
}

// dispatchItems enqueues one render task per document. A dispatch failure
// settles that item as failed so the batch can still complete.
func (u *BulkUpdater) dispatchItems(ctx context.Context, batchID string, docIDs []string) {
	for _, docID := range docIDs {
		task, err := dispatch.NewTask(TaskBulkUpdateRender, QueueBulkUpdates, renderPayload{
			BatchID:    batchID,
			DocumentID: docID,
		})
		if err == nil {
			err = u.dispatcher.Dispatch(ctx, task)
		}
		if err == nil {
			continue
		}

		slog.Error("failed to dispatch render task", "batch_id", batchID, "document_id", docID, "error", err)
		if _, _, ferr := u.store.FinishItem(ctx, batchID, docID, false, "dispatch: "+err.Error()); ferr != nil {
			slog.Error("failed to record dispatch failure", "batch_id", batchID, "document_id", docID, "error", ferr)
		}
	}
}
