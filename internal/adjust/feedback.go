package adjust

import (
	"fmt"
	"strings"

	"github.com/spigell/repograde/internal/rubric"
)

func (e *Engine) assessment(gap float64, t rubric.Tier) string {
	return strings.ReplaceAll(e.rubric.Assessments.Pick(gap), "{level}", levelName(t.Name))
}

// feedback renders a result as Markdown.
func (e *Engine) feedback(res EvaluationResult, t rubric.Tier) string {
	var sb strings.Builder

	sb.WriteString("## Experience-Aware Evaluation\n")
	fmt.Fprintf(&sb, "**Experience Level:** %s\n", t.Label)
	fmt.Fprintf(&sb, "**Expected Score Range:** %s\n", t.ScoreRange)
	fmt.Fprintf(&sb, "**Industry Benchmark:** %g/100\n", t.ExpectedScore)

	if res.Error != "" {
		fmt.Fprintf(&sb, "\n**Repository unavailable:** %s\n", res.Error)
	}

	sb.WriteString("\n### Score Summary\n")
	fmt.Fprintf(&sb, "- **Raw Technical Score:** %.1f/100\n", res.RawScore)
	fmt.Fprintf(&sb, "- **Final Adjusted Score:** %.1f/100\n", res.FinalScore)
	fmt.Fprintf(&sb, "- **Performance Gap:** %s\n", signed(res.PerformanceGap))
	fmt.Fprintf(&sb, "- **Hiring Decision:** %s\n", res.Decision)

	sb.WriteString("\n### Calculation Steps\n")
	for _, line := range res.CalculationSteps {
		fmt.Fprintf(&sb, "- %s\n", line)
	}
	for _, item := range res.Breakdown.Penalties.Items {
		fmt.Fprintf(&sb, "- Penalty -%g: %s\n", item.Points, item.Reason)
	}
	for _, item := range res.Breakdown.Rewards.Items {
		fmt.Fprintf(&sb, "- Reward +%g: %s\n", item.Points, item.Reason)
	}

	ev := res.Evidence
	sb.WriteString("\n### Evidence Summary\n")
	if ev.FileCount > 0 {
		fmt.Fprintf(&sb, "- **Files Analyzed:** %d files\n", ev.FileCount)
	}
	fmt.Fprintf(&sb, "- **Code Structure:** %d functions, %d classes\n", ev.Functions, ev.Classes)
	if ev.HasTests {
		fmt.Fprintf(&sb, "- **Testing:** %d test files found\n", ev.TestFiles)
	} else {
		sb.WriteString("- **Testing:** No test files found\n")
	}
	if ev.HasDocker {
		sb.WriteString("- **Deployment:** Docker configuration found\n")
	}
	if ev.HasCI {
		sb.WriteString("- **CI/CD:** Pipeline configuration found\n")
	}
	fmt.Fprintf(&sb, "- **Documentation Quality:** %d/%d\n", ev.DocumentationQuality, e.rubric.Keywords.ReadmeMaxScore)

	sb.WriteString("\n### Experience-Related Assessment\n")
	sb.WriteString(res.Assessment)
	sb.WriteString("\n")

	if g, ok := e.rubric.Guidance[t.Guidance]; ok {
		sb.WriteString("\n### Recommendations\n")
		fmt.Fprintf(&sb, "**%s:**\n", g.Title)
		for _, item := range g.Items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func levelName(tier string) string {
	return strings.ReplaceAll(tier, "_", " ")
}

func signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.1f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
