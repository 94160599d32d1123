package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/imagegen"
	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/search"
	"github.com/raphaelgruber/contentmill/internal/service"
)

var (
	genLocale    string
	genLanguage  string
	genTemplate  string
	genTranslate []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Research, write and quality-gate a new article",
	Long: `Generate a long-form article for a topic.

The run researches the topic, plans an outline, writes every section,
renders template variables and scores the result. Documents that pass
the quality gate are published, the rest wait for review.

Examples:
  contentmill generate "customer support for small teams"
  contentmill generate "help desk setup" --template how-to
  contentmill generate "ticket routing" --translate de,fr`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genLocale, "locale", "en-US", "search locale")
	generateCmd.Flags().StringVar(&genLanguage, "language", "en", "article language")
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "", "template id (default: best keyword match)")
	generateCmd.Flags().StringSliceVar(&genTranslate, "translate", nil, "languages to translate into after generation")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	topic := strings.Join(args, " ")

	model, err := llm.NewModel(cfg, collector)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}
	gate, err := newGate()
	if err != nil {
		return err
	}

	var images service.ImageGenerator
	if cfg.ImageEnabled {
		bedrock, err := imagegen.NewBedrock(ctx, cfg, collector)
		if err != nil {
			slog.Warn("image generation disabled", "error", err)
		} else {
			images = bedrock
		}
	}

	gen := service.NewGenerator(
		dbClient,
		model,
		search.NewClient(cfg, collector),
		search.NewEnricher(cfg.UserAgent, cfg.EnrichSources, collector),
		images,
		service.GeneratorOptions{
			CallDelay:        cfg.CallDelay,
			MaxQueries:       cfg.MaxQueries,
			Sections:         service.SectionRange{Min: cfg.MinSections, Max: cfg.MaxSections},
			OverlapThreshold: cfg.OverlapThreshold,
			SectionRetries:   cfg.SectionRetries,
			RetryDelay:       cfg.CallDelay,
			Gate:             gate,
		},
	)

	doc, err := gen.Generate(ctx, service.GenerateRequest{
		Topic:      topic,
		Locale:     genLocale,
		Language:   genLanguage,
		TemplateID: genTemplate,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	printDocumentSummary(doc)

	if len(genTranslate) == 0 {
		return nil
	}
	fmt.Println()
	tr := service.NewTranslator(dbClient, model, service.NewPacer(cfg.CallDelay), nil)
	printOutcomes(tr.Translate(ctx, doc, genTranslate), genTranslate)
	return nil
}

func printDocumentSummary(doc *models.Document) {
	fmt.Printf("Generated: %s\n", doc.Title)
	fmt.Printf("  ID:      %s\n", doc.ID)
	fmt.Printf("  Status:  %s\n", doc.Status)
	fmt.Printf("  Words:   %d\n", doc.WordCount)
	fmt.Printf("  Quality: %d (%s)\n", doc.QualityScore, doc.QualityReport.Level)
	fmt.Printf("  Brand:   %d\n", doc.BrandReport.Score)
	if doc.TemplateID != nil {
		fmt.Printf("  Template: %s\n", *doc.TemplateID)
	}
	if doc.FeaturedImage != nil {
		fmt.Printf("  Image:   %s\n", *doc.FeaturedImage)
	}
	fmt.Printf("  Cost:    $%.4f\n", doc.GenerationCost)

	if verbose {
		printReports(doc.QualityReport, doc.BrandReport)
	}
}
