package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Print the facts collected from a repository as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runScan(args[0])
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(path string) {
	ctx := context.Background()
	logger := newLogger()
	config := mustConfig(logger)

	r, err := loadRubric(config)
	if err != nil {
		logger.Fatal("loading rubric", zap.Error(err))
	}

	evaluator, err := newEvaluator(ctx, config, r, false, logger)
	if err != nil {
		logger.Fatal("creating an evaluator", zap.Error(err))
	}

	f, err := evaluator.Scan(ctx, path)
	if err != nil {
		logger.Fatal("scanning repository", zap.Error(err))
	}
	if f.Failed() {
		logger.Warn("repository unavailable", zap.String("reason", f.Error))
	}

	if err := writeJSON(os.Stdout, f); err != nil {
		logger.Fatal("printing facts", zap.Error(err))
	}
}
