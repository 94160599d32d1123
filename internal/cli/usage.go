package cli

import (
	"fmt"

	"github.com/raphaelgruber/contentmill/internal/metrics"
)

// printRunStats displays the in-memory call statistics of this run.
func printRunStats(stats metrics.Snapshot) {
	fmt.Printf("\nRun Statistics\n")
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Duration: %.1f seconds\n", stats.UptimeSeconds)
	fmt.Printf("Estimated cost: $%.4f\n", stats.TotalCost)

	sections := []struct {
		title  string
		op     *metrics.OperationSnapshot
		tokens bool
	}{
		{"LLM Generate", stats.LLMGenerate, true},
		{"Search", stats.Search, false},
		{"Source Enrichment", stats.Enrich, false},
		{"Image Generate", stats.ImageGenerate, false},
		{"DB Query", stats.DBQuery, false},
	}
	for _, s := range sections {
		if s.op == nil {
			continue
		}
		fmt.Printf("\n%s:\n", s.title)
		printOpStats(s.op)
		if s.tokens {
			printTokenStats(s.op)
		}
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalCost > 0 {
		fmt.Printf("  Cost: $%.4f\n", op.TotalCost)
	}
}

// printTokenStats displays token statistics if available.
func printTokenStats(op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Printf("  Tokens In:  %d total", *op.TotalInputTokens)
	if op.AvgInputTokens != nil {
		fmt.Printf(", avg %.0f", *op.AvgInputTokens)
	}
	if op.MinInputTokens != nil && op.MaxInputTokens != nil {
		fmt.Printf(", min %d, max %d", *op.MinInputTokens, *op.MaxInputTokens)
	}
	fmt.Println()

	fmt.Printf("  Tokens Out: %d total", *op.TotalOutputTokens)
	if op.AvgOutputTokens != nil {
		fmt.Printf(", avg %.0f", *op.AvgOutputTokens)
	}
	if op.MinOutputTokens != nil && op.MaxOutputTokens != nil {
		fmt.Printf(", min %d, max %d", *op.MinOutputTokens, *op.MaxOutputTokens)
	}
	fmt.Println()
}
