package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/dispatch"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/service"
)

var bulkUpdateCmd = &cobra.Command{
	Use:   "bulk-update",
	Short: "Propagate a template variable change to published documents",
	Long: `Change a shared template variable and re-render every published
document that was rendered with the old value.

Subcommands:
  start   Set the new value and re-render affected documents
  status  Show batch progress and failed documents
  retry   Re-render the failed documents of a batch
  resume  Continue a batch that was interrupted before every document ran
  cancel  Stop a batch from completing

Examples:
  contentmill bulk-update start supportHours "9-5" "8-8"
  contentmill bulk-update status 6a1d...
  contentmill bulk-update retry 6a1d...
  contentmill bulk-update resume 6a1d...`,
}

var bulkStartCmd = &cobra.Command{
	Use:   "start <key> <old-value> <new-value>",
	Short: "Start a bulk update",
	Args:  cobra.ExactArgs(3),
	RunE:  runBulkStart,
}

var bulkStatusCmd = &cobra.Command{
	Use:   "status <batch-id>",
	Short: "Show batch progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runBulkStatus,
}

var bulkRetryCmd = &cobra.Command{
	Use:   "retry <batch-id>",
	Short: "Retry failed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runBulkRetry,
}

var bulkResumeCmd = &cobra.Command{
	Use:   "resume <batch-id>",
	Short: "Continue an interrupted batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBulkResume,
}

var bulkCancelCmd = &cobra.Command{
	Use:   "cancel <batch-id>",
	Short: "Cancel a batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBulkCancel,
}

func init() {
	bulkUpdateCmd.AddCommand(bulkStartCmd)
	bulkUpdateCmd.AddCommand(bulkStatusCmd)
	bulkUpdateCmd.AddCommand(bulkRetryCmd)
	bulkUpdateCmd.AddCommand(bulkResumeCmd)
	bulkUpdateCmd.AddCommand(bulkCancelCmd)
}

// newBulkUpdater wires the updater to an in-process dispatcher.
// The caller must Close the dispatcher.
func newBulkUpdater() (*service.BulkUpdater, *dispatch.Local, error) {
	gate, err := newGate()
	if err != nil {
		return nil, nil, err
	}
	d := newDispatcher()
	u := service.NewBulkUpdater(dbClient, d, gate)
	d.Register(service.TaskBulkUpdateRender, u.HandleRender)
	return u, d, nil
}

// followBatch shows progress until the batch settles or the dispatcher drains.
func followBatch(ctx context.Context, d *dispatch.Local, batch *models.BulkUpdateBatch) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_ = d.Wait(ctx)
	}()

	err := RunBatchProgress(ctx, dbClient.GetBatch, batch, drained)
	// in-flight renders of a cancelled batch still finish
	<-drained
	if ctx.Err() != nil {
		fmt.Printf("\nInterrupted. Run 'contentmill bulk-update resume %s' to continue.\n", batch.ID)
		return ctx.Err()
	}
	return err
}

func runBulkStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	u, d, err := newBulkUpdater()
	if err != nil {
		return err
	}
	defer d.Close()

	batch, err := u.InitiateBulkUpdate(ctx, args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("start bulk update: %w", err)
	}
	fmt.Printf("Batch %s: %d documents affected\n", batch.ID, batch.AffectedCount)
	if batch.AffectedCount == 0 {
		return nil
	}
	return followBatch(ctx, d, batch)
}

func runBulkStatus(cmd *cobra.Command, args []string) error {
	gate, err := newGate()
	if err != nil {
		return err
	}
	u := service.NewBulkUpdater(dbClient, nil, gate)

	batch, failed, err := u.BatchStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Print(batchSummary(defaultTheme, batch))
	fmt.Printf("  Progress: %.1f%%\n", service.Progress(*batch)*100)
	if len(failed) == 0 {
		return nil
	}
	fmt.Printf("\nFailed documents (%d):\n", len(failed))
	for _, item := range failed {
		msg := ""
		if item.ErrorMessage != nil {
			msg = *item.ErrorMessage
		}
		fmt.Printf("  • %s (attempts %d): %s\n", item.DocumentID, item.Attempts, msg)
	}
	return nil
}

func runBulkRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	u, d, err := newBulkUpdater()
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := u.RetryFailed(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Retrying %d documents\n", n)
	if n == 0 {
		return nil
	}

	batch, _, err := u.BatchStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return followBatch(ctx, d, batch)
}

func runBulkResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	u, d, err := newBulkUpdater()
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := u.Resume(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Resuming %d pending documents\n", n)
	if n == 0 {
		return nil
	}

	batch, _, err := u.BatchStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return followBatch(ctx, d, batch)
}

func runBulkCancel(cmd *cobra.Command, args []string) error {
	gate, err := newGate()
	if err != nil {
		return err
	}
	batch, err := service.NewBulkUpdater(dbClient, nil, gate).Cancel(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if batch.Status != models.BatchCancelled {
		fmt.Printf("Batch %s is already %s\n", batch.ID, batch.Status)
		return nil
	}
	fmt.Printf("Cancelled batch %s\n", batch.ID)
	return nil
}
