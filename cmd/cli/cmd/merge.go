package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexmerge/internal/formatter"
	"github.com/dexmerge/internal/service"
	"github.com/dexmerge/pkg/telemetry"
)

var (
	mergeImageFile string
	mergeOrderFile string
	mergeOutput    string
)

// mergeCmd builds every configured model and emits the merge plan.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Build merging models over an image dump and emit the plan",
	Long: `Build every model declared in the config over a program image dump.

The resulting merge plan (mergers, mergeables, method dispatch, stats) is
written to the run directory as JSON and summarized on the console. With
database persistence enabled the run and plan are recorded; with object
storage configured the plan is uploaded.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeImageFile, "input", "i", "", "Program image dump (required)")
	mergeCmd.Flags().StringVar(&mergeOrderFile, "order-file", "", "Interdex class-load order file (overrides config)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "summary", "Console output: summary, mergers, stats")
	mergeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		logger.Warn("Telemetry init failed: %v", err)
	} else {
		defer shutdown(ctx)
	}

	if mergeOrderFile != "" {
		cfg.Merge.OrderFile = mergeOrderFile
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	pipeline, err := service.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := pipeline.Initialize(ctx); err != nil {
		return err
	}
	defer pipeline.Close()

	result, err := pipeline.Run(ctx, mergeImageFile)
	if err != nil {
		return err
	}

	registry := formatter.NewRegistry()
	registry.Format(mergeOutput, result.Plan, logger)

	for _, sug := range result.Suggestions {
		logger.Warn("[%s] %s: %s", sug.Severity, sug.ModelName, sug.Suggestion)
	}

	logger.Info("Plan written to %s", result.PlanPath)
	return nil
}
