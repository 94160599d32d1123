package models

import "time"

// BatchStatus is the state of a bulk-update batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchCancelled  BatchStatus = "cancelled"
)

// ItemStatus is the state of one document inside a batch.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// BulkUpdateBatch tracks the propagation of one variable change.
// It completes exactly when UpdatedCount+FailedCount == AffectedCount.
type BulkUpdateBatch struct {
	ID            string      `json:"id"`
	VariableKey   string      `json:"variable_key"`
	OldValue      string      `json:"old_value"`
	NewValue      string      `json:"new_value"`
	Status        BatchStatus `json:"status"`
	AffectedCount int         `json:"affected_count"`
	UpdatedCount  int         `json:"updated_count"`
	FailedCount   int         `json:"failed_count"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// Percent returns the share of finished items, 1 for an empty batch.
func (b BulkUpdateBatch) Percent() float64 {
	if b.AffectedCount == 0 {
		return 1
	}
	return float64(b.UpdatedCount+b.FailedCount) / float64(b.AffectedCount)
}

// BulkUpdateItem is one re-render task inside a batch.
type BulkUpdateItem struct {
	BatchID      string     `json:"batch_id"`
	DocumentID   string     `json:"document_id"`
	Status       ItemStatus `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Attempts     int        `json:"attempts"`
}

// BatchItemID is the storage key of an item.
func BatchItemID(batchID, documentID string) string {
	return batchID + "_" + documentID
}
