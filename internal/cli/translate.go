package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/service"
)

var (
	translateLangs  []string
	translateQueued bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <document-id>",
	Short: "Translate a document section by section",
	Long: `Translate a document into one or more languages. Languages that
already have a translation are skipped.

By default languages run one after another. With --queue each language
becomes a task on the translations queue and failed languages are
redelivered.

Examples:
  contentmill translate 1f0c2a9e-... --lang de,fr,es
  contentmill translate 1f0c2a9e-... --lang de --queue`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringSliceVarP(&translateLangs, "lang", "l", nil, "target language codes (required)")
	translateCmd.Flags().BoolVar(&translateQueued, "queue", false, "fan out one task per language")
	_ = translateCmd.MarkFlagRequired("lang")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	docID := args[0]

	model, err := llm.NewModel(cfg, collector)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	if translateQueued {
		d := newDispatcher()
		defer d.Close()
		tr := service.NewTranslator(dbClient, model, service.NewPacer(cfg.CallDelay), d)
		d.Register(service.TaskTranslationRender, tr.HandleTranslate)

		if err := tr.EnqueueTranslations(ctx, docID, translateLangs); err != nil {
			return err
		}
		if err := d.Wait(ctx); err != nil {
			return err
		}
		stats := d.Stats()
		fmt.Printf("Translation tasks: %d succeeded, %d failed, %d redelivered\n",
			stats.Succeeded, stats.Failed, stats.Retried)
		return nil
	}

	doc, err := dbClient.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", docID)
	}

	tr := service.NewTranslator(dbClient, model, service.NewPacer(cfg.CallDelay), nil)
	printOutcomes(tr.Translate(ctx, doc, translateLangs), translateLangs)
	return nil
}

func printOutcomes(outcomes map[string]service.Outcome, order []string) {
	fmt.Println("Translations:")
	for _, lang := range order {
		lang = strings.TrimSpace(lang)
		o, ok := outcomes[lang]
		if !ok {
			continue
		}
		if o.Err != nil {
			fmt.Printf("  %-6s %s: %v\n", lang, o.Status, o.Err)
			continue
		}
		fmt.Printf("  %-6s %s\n", lang, o.Status)
	}
}
