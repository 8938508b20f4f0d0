package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/rubric"
)

var challengesCmd = &cobra.Command{
	Use:   "challenges",
	Short: "List challenges and experience levels known to the rubric",
	Run: func(_ *cobra.Command, _ []string) {
		logger := newLogger()
		config := mustConfig(logger)

		r, err := loadRubric(config)
		if err != nil {
			logger.Fatal("loading rubric", zap.Error(err))
		}
		if err := printCatalogue(os.Stdout, r); err != nil {
			logger.Fatal("printing challenges", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(challengesCmd)
}

func printCatalogue(out io.Writer, r *rubric.Rubric) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "CHALLENGE\tTITLE\tMAX\tREQUIRED TECH")
	for _, c := range r.Challenges {
		id := c.ID
		if id == r.DefaultChallenge {
			id += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", id, c.Title, r.MaxScore(c), strings.Join(c.RequiredTech, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXPERIENCE\tLABEL\tMULTIPLIER\tEXPECTED")
	for _, t := range r.Tiers {
		name := t.Name
		if name == r.DefaultTier {
			name += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%gx\t%g (%s)\n", name, t.Label, t.Multiplier, t.ExpectedScore, t.ScoreRange)
	}

	return w.Flush()
}
