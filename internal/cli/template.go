package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/config"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage content templates",
	Long: `Manage the content templates that steer generation.

Subcommands:
  list    List stored templates with usage counts
  import  Store templates from a YAML file (built-ins when no file is given)

Examples:
  contentmill templates list
  contentmill templates import
  contentmill templates import ./templates.yaml`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE:  runTemplatesList,
}

var templatesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import templates from a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplatesImport,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesImportCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	templates, err := dbClient.ListTemplates(cmd.Context())
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	if len(templates) == 0 {
		fmt.Println("No templates found. Run 'contentmill templates import' to store the built-ins.")
		return nil
	}

	fmt.Printf("Templates (%d):\n\n", len(templates))
	for _, t := range templates {
		fmt.Printf("- %s (%s) used %d times\n", t.Name, t.ID, t.UsageCount)
		if verbose {
			fmt.Printf("  Keywords: %s\n", strings.Join(t.Keywords, ", "))
			if t.CTABlock != "" {
				fmt.Printf("  CTA: %s\n", strings.ReplaceAll(t.CTABlock, "\n", " "))
			}
		}
	}
	return nil
}

func runTemplatesImport(cmd *cobra.Command, args []string) error {
	path := cfg.TemplatesFile
	if len(args) == 1 {
		path = args[0]
	}

	templates, err := config.LoadTemplates(path)
	if err != nil {
		return err
	}

	stored := 0
	for _, t := range templates {
		if err := dbClient.UpsertTemplate(cmd.Context(), t); err != nil {
			slog.Warn("failed to store template", "id", t.ID, "error", err)
			fmt.Printf("Warning: failed to store %s: %v\n", t.ID, err)
			continue
		}
		stored++
		if verbose {
			fmt.Printf("  Stored: %s\n", t.Name)
		}
	}

	fmt.Printf("Imported %d of %d templates.\n", stored, len(templates))
	return nil
}
