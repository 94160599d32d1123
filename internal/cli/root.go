// Package cli provides the command-line interface for contentmill.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contentmill/internal/config"
	"github.com/raphaelgruber/contentmill/internal/db"
	"github.com/raphaelgruber/contentmill/internal/dispatch"
	"github.com/raphaelgruber/contentmill/internal/memstore"
	"github.com/raphaelgruber/contentmill/internal/metrics"
	"github.com/raphaelgruber/contentmill/internal/service"
)

var (
	_ service.Store = (*db.Client)(nil)
	_ service.Store = (*memstore.Store)(nil)
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	showStats bool

	cfg       config.Config
	dbClient  *db.Client
	collector *metrics.Collector
	closeLog  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contentmill",
	Short: "Long-form content generation and maintenance",
	Long: `Contentmill researches, outlines, writes and quality-gates long-form
articles, then keeps them current when shared template variables change
and translates them section by section.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		collector = metrics.NewCollector()

		ctx := cmd.Context()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger, collector)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if showStats && collector != nil {
			printRunStats(collector.Snapshot())
		}
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// newGate builds the quality gate from config and the brand rules file.
func newGate() (service.Gate, error) {
	rules, err := config.LoadBrandRules(cfg.BrandRulesFile)
	if err != nil {
		return service.Gate{}, err
	}
	return service.Gate{Rules: rules, Threshold: cfg.QualityThreshold, SiteHost: cfg.SiteHost}, nil
}

// newDispatcher starts an in-process dispatcher sized from config.
func newDispatcher() *dispatch.Local {
	return dispatch.NewLocal(cfg.DispatchWorkers, cfg.DispatchMaxAttempts)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print call statistics and estimated cost on exit")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(bulkUpdateCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(templatesCmd)
}
