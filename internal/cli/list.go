package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/models"
)

var (
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Long: `List generated documents, newest first.

Examples:
  contentmill list
  contentmill list --status pendingReview
  contentmill list --status published -n 10 -v`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (draft, pendingReview, published)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max results")
}

func runList(cmd *cobra.Command, args []string) error {
	status := models.DocumentStatus(listStatus)
	switch status {
	case "", models.StatusDraft, models.StatusPendingReview, models.StatusPublished:
	default:
		return fmt.Errorf("unknown status: %s", listStatus)
	}

	docs, err := dbClient.ListDocuments(cmd.Context(), status, listLimit)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Documents (%d):\n\n", len(docs))
	for _, doc := range docs {
		fmt.Printf("- %s [%s] %d\n", doc.Title, doc.Status, doc.QualityScore)
		if verbose {
			fmt.Printf("  ID: %s, words: %d, created: %s\n", doc.ID, doc.WordCount, doc.CreatedAt.Format("2006-01-02 15:04"))
			if len(doc.VariableSnapshot) > 0 {
				fmt.Printf("  Variables: %v\n", doc.VariableSnapshot)
			}
		}
	}
	return nil
}
