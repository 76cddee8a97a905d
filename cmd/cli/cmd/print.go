package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexmerge/internal/service"
)

var (
	printImageFile string
	printModelName string
	printOrderFile string
)

// printCmd renders the built hierarchy of one model.
var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Render the built hierarchy of one model",
	Long: `Build a single configured model over an image dump and print its
hierarchy rendering: mergers with their shapes, mergeables and method
dispatch decisions. The output is stable and diffable across runs.`,
	RunE: runPrint,
}

func init() {
	printCmd.Flags().StringVarP(&printImageFile, "input", "i", "", "Program image dump (required)")
	printCmd.Flags().StringVarP(&printModelName, "model", "m", "", "Model name to render (required)")
	printCmd.Flags().StringVar(&printOrderFile, "order-file", "", "Interdex class-load order file (overrides config)")
	printCmd.MarkFlagRequired("input")
	printCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	if printOrderFile != "" {
		cfg.Merge.OrderFile = printOrderFile
	}

	pipeline, err := service.New(cfg, logger)
	if err != nil {
		return err
	}

	model, err := pipeline.BuildOnly(context.Background(), printImageFile, printModelName)
	if err != nil {
		return err
	}

	fmt.Print(model.Print())
	return nil
}
