package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved evaluations",
	Run: func(cmd *cobra.Command, _ []string) {
		runHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "l", 20, "number of evaluations to list")
	historyCmd.Flags().Int64("show", 0, "print the full report of the evaluation with this id")
}

func runHistory(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()
	config := mustConfig(logger)

	s, err := openStore(config)
	if err != nil {
		logger.Fatal("opening history store", zap.Error(err))
	}
	defer s.Close()

	if id, _ := cmd.Flags().GetInt64("show"); id != 0 {
		rec, err := s.Get(ctx, id)
		if err != nil {
			logger.Fatal("getting evaluation", zap.Int64("id", id), zap.Error(err))
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, rec.Report, "", "  "); err != nil {
			logger.Fatal("formatting report", zap.Error(err))
		}
		pretty.WriteString("\n")
		if _, err := pretty.WriteTo(os.Stdout); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}
		return
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := s.List(ctx, limit)
	if err != nil {
		logger.Fatal("listing evaluations", zap.Error(err))
	}
	summary, err := s.Stats(ctx)
	if err != nil {
		logger.Fatal("summarizing evaluations", zap.Error(err))
	}

	if err := printHistory(os.Stdout, records, summary); err != nil {
		logger.Fatal("printing history", zap.Error(err))
	}
}

func printHistory(out io.Writer, records []store.Record, summary store.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tEVALUATED\tREPOSITORY\tCHALLENGE\tEXPERIENCE\tRAW\tFINAL\tDECISION")
	for _, r := range records {
		at := time.UnixMilli(r.CreatedAtUnixMs).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%s\n",
			r.ID, at, r.Repository, r.Challenge, r.ExperienceLevel, r.RawScore, r.FinalScore, r.Decision)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if summary.Count == 0 {
		_, err := fmt.Fprintln(out, "\nno evaluations saved")
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d evaluations, final score mean %.1f, median %.1f, range %.1f-%.1f\n",
		summary.Count, summary.Mean, summary.Median, summary.Min, summary.Max)
	return err
}
