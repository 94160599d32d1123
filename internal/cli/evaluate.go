package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/quality"
)

var (
	evalFile    string
	evalTitle   string
	evalMeta    string
	evalKeyword string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [document-id]",
	Short: "Score a document against the quality and brand rules",
	Long: `Run the quality gate on a stored document or a Markdown file.
Nothing is written back; the command only reports.

Examples:
  contentmill evaluate 1f0c2a9e-...
  contentmill evaluate --file draft.md --title "Help desk pricing explained" --keyword "help desk"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalFile, "file", "f", "", "evaluate a Markdown file instead of a stored document")
	evaluateCmd.Flags().StringVar(&evalTitle, "title", "", "title for --file")
	evaluateCmd.Flags().StringVar(&evalMeta, "meta", "", "meta description for --file")
	evaluateCmd.Flags().StringVar(&evalKeyword, "keyword", "", "focus keyword for --file")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	gate, err := newGate()
	if err != nil {
		return err
	}

	var doc *models.Document
	switch {
	case evalFile != "":
		body, err := os.ReadFile(evalFile)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		doc = &models.Document{
			Title:           evalTitle,
			Body:            string(body),
			MetaDescription: evalMeta,
			FocusKeyword:    evalKeyword,
		}
	case len(args) == 1:
		doc, err = dbClient.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil {
			return fmt.Errorf("document not found: %s", args[0])
		}
	default:
		return fmt.Errorf("pass a document id or --file")
	}

	verdict := gate.Check(doc)
	fmt.Printf("Quality: %d (%s)\n", verdict.Quality.WeightedTotal, verdict.Quality.Level)
	fmt.Printf("Brand:   %d\n", verdict.Brand.Score)
	fmt.Printf("Verdict: %s\n", verdict.Status)
	printReports(verdict.Quality, verdict.Brand)
	return nil
}

func printReports(q models.QualityReport, b models.BrandReport) {
	fmt.Printf("\nCriteria:\n")
	for _, c := range quality.Criteria {
		fmt.Printf("  %-16s %3d  (weight %d)\n", c.Name, q.CriterionScores[c.Name], c.Weight)
	}
	printList("Quality errors", q.Errors)
	printList("Quality warnings", q.Warnings)
	printList("Brand errors", b.Errors)
	printList("Brand warnings", b.Warnings)
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(items))
	for _, it := range items {
		fmt.Printf("  • %s\n", it)
	}
}
