package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dexmerge/pkg/config"
	"github.com/dexmerge/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dexmerge",
	Short: "A class-hierarchy merging planner for dex bytecode",
	Long: `dexmerge builds class-merging models over a program image dump.

Given a config file declaring merging models (roots, exclusions, type-tag
policy, grouping strategy), it erases mergeable subtypes into synthetic
merger classes, decides virtual method dispatch, and emits a merge plan
with per-model statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger based on verbose flag
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")

	binName := BinName()
	rootCmd.Example = `  # Build the configured models over an image dump and emit the plan
  ` + binName + ` merge -i ./image.json

  # Use a specific config file and order file
  ` + binName + ` merge -i ./image.json -c ./configs/config.yaml --order-file ./betamap.txt

  # Render the built hierarchy of one model
  ` + binName + ` print -i ./image.json -m event_classes`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
