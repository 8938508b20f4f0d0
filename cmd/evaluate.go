package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spigell/repograde/internal/evaluate"
	"github.com/spigell/repograde/internal/rubric"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <path>",
	Short: "Evaluate a repository for a challenge at an experience level",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runEvaluate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("challenge", "c", "", "challenge id (prompted when omitted on a terminal)")
	evaluateCmd.Flags().StringP("experience", "e", "", "experience level (prompted when omitted on a terminal)")
	evaluateCmd.Flags().StringP("output", "o", "", "write the JSON report to this file")
	evaluateCmd.Flags().StringP("format", "f", formatText, "stdout format: text or json")
	evaluateCmd.Flags().BoolP("save", "s", false, "save the evaluation to the history store")
	evaluateCmd.Flags().BoolP("narrative", "n", false, "ask the configured LLM for the narrative")

	viper.BindPFlag("narrative.enabled", evaluateCmd.Flags().Lookup("narrative"))
}

func runEvaluate(cmd *cobra.Command, path string) {
	ctx := context.Background()
	logger := newLogger()
	config := mustConfig(logger)

	r, err := loadRubric(config)
	if err != nil {
		logger.Fatal("loading rubric", zap.Error(err))
	}

	challenge, _ := cmd.Flags().GetString("challenge")
	experience, _ := cmd.Flags().GetString("experience")
	if interactive() {
		if challenge == "" {
			if challenge, err = selectChallenge(r); err != nil {
				logger.Fatal("selecting a challenge", zap.Error(err))
			}
		}
		if experience == "" {
			if experience, err = selectExperience(r); err != nil {
				logger.Fatal("selecting an experience level", zap.Error(err))
			}
		}
	}

	withNarrative := config.Narrative != nil && config.Narrative.Enabled
	evaluator, err := newEvaluator(ctx, config, r, withNarrative, logger)
	if err != nil {
		logger.Fatal("creating an evaluator", zap.Error(err))
	}

	logger.Info("starting the evaluation", zap.String("version", version))

	report, err := evaluator.Evaluate(ctx, evaluate.Request{
		Path:       path,
		Challenge:  challenge,
		Experience: experience,
		Narrative:  withNarrative,
	})
	if err != nil {
		logger.Fatal("evaluating repository", zap.Error(err))
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := writeJSONFile(output, report); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		logger.Info("report written", zap.String("filename", output))
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		s, err := openStore(config)
		if err != nil {
			logger.Fatal("opening history store", zap.Error(err))
		}
		defer s.Close()

		id, err := s.Save(ctx, report)
		if err != nil {
			logger.Fatal("saving evaluation", zap.Error(err))
		}
		logger.Info("evaluation saved", zap.Int64("id", id))
	}

	format, _ := cmd.Flags().GetString("format")
	if err := printReport(os.Stdout, report, format); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}
}

func printReport(w io.Writer, report *evaluate.Report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case formatJSON:
		return writeJSON(w, report)
	case formatText, "":
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, report *evaluate.Report) error {
	res := report.Result

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", report.Repository)
	fmt.Fprintf(&b, "Challenge: %s (%s)\n", report.Challenge.Title, report.Challenge.ID)
	fmt.Fprintf(&b, "Experience: %s\n", res.ExperienceLabel)
	fmt.Fprintf(&b, "Decision: %s\n\n", res.Decision)

	for _, cat := range res.Categories {
		fmt.Fprintf(&b, "  %-20s %5.1f / %g\n", cat.Name, cat.Score, cat.Cap)
	}
	b.WriteString("\n")
	for _, step := range res.CalculationSteps {
		b.WriteString(step)
		b.WriteString("\n")
	}

	if n := report.Narrative; n != nil {
		fmt.Fprintf(&b, "\n%s\n", n.Summary)
		for _, f := range n.Strengths {
			fmt.Fprintf(&b, "  + %s: %s\n", f.Title, f.Evidence)
		}
		for _, f := range n.Weaknesses {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Title, f.Evidence)
		}
		for _, bm := range n.BenchmarkComparison {
			fmt.Fprintf(&b, "  %-14s %-7s %s\n", bm.Level, bm.Status, bm.Delta)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func selectChallenge(r *rubric.Rubric) (string, error) {
	items := make([]string, 0, len(r.Challenges))
	for _, c := range r.Challenges {
		items = append(items, fmt.Sprintf("%s %s", c.ID, c.Title))
	}

	prompt := promptui.Select{
		Label: "Choose a challenge",
		Items: items,
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.Split(selected, " ")[0], nil
}

func selectExperience(r *rubric.Rubric) (string, error) {
	items := make([]string, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		items = append(items, fmt.Sprintf("%s %s", t.Name, t.Label))
	}

	prompt := promptui.Select{
		Label: "Choose an experience level",
		Items: items,
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.Split(selected, " ")[0], nil
}
