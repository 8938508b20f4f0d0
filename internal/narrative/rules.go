package narrative

import (
	"context"
	"fmt"
	"strings"
)

const maxFindings = 3

// RuleBased derives the report from facts alone. It never fails and is the
// fallback when an LLM narrator is unavailable.
type RuleBased struct{}

func NewRuleBased() RuleBased {
	return RuleBased{}
}

func (RuleBased) Narrate(_ context.Context, in Input) (*Report, error) {
	return Explain(in), nil
}

// Explain builds the rule-based report for in.
func Explain(in Input) *Report {
	f := in.Facts
	var strengths, weaknesses []Finding
	var recs []string

	if readme := f.Documentation.Readme; readme.Exists {
		strengths = append(strengths, Finding{
			Title:    "Documentation",
			Evidence: fmt.Sprintf("README present with quality %d/10", readme.QualityScore),
			Impact:   "Makes the project accessible to reviewers and users",
		})
	} else {
		weaknesses = append(weaknesses, Finding{
			Title:    "Missing documentation",
			Evidence: "No README file found",
			Impact:   "Project is difficult to understand and use",
		})
		recs = append(recs, "Add a README with installation and usage sections")
	}

	if f.Testing.HasTests {
		strengths = append(strengths, Finding{
			Title:    "Test suite present",
			Evidence: fmt.Sprintf("%d test files found", len(f.Testing.Files)),
			Impact:   "Demonstrates a quality assurance mindset",
		})
	} else {
		weaknesses = append(weaknesses, Finding{
			Title:    "Insufficient testing",
			Evidence: "No test directory or test files",
			Impact:   "Reduces reliability and maintainability",
		})
		recs = append(recs, "Add automated tests for the core logic")
	}

	if f.Container.HasDockerfile {
		strengths = append(strengths, Finding{
			Title:    "Containerization ready",
			Evidence: "Dockerfile present",
			Impact:   "Supports reproducible deployment",
		})
	} else {
		recs = append(recs, "Provide a Dockerfile for reproducible builds")
	}

	if f.CICD.HasCI {
		strengths = append(strengths, Finding{
			Title:    "Continuous integration",
			Evidence: "CI configured on " + strings.Join(f.CICD.Platforms, ", "),
			Impact:   "Changes are verified automatically",
		})
	} else {
		recs = append(recs, "Set up a CI pipeline that runs the tests")
	}

	if !f.Quality.HasErrorHandling && f.Files.CodeFileCount > 0 {
		weaknesses = append(weaknesses, Finding{
			Title:    "No error handling",
			Evidence: "No try/except or try/catch constructs found",
			Impact:   "Failures are likely to surface as crashes",
		})
	}

	if w, ok := missingChallengeTech(in); ok {
		weaknesses = append(weaknesses, w)
	}

	if f.Failed() {
		weaknesses = []Finding{{
			Title:    "Repository unavailable",
			Evidence: f.Error,
			Impact:   "No signals could be collected",
		}}
		strengths = nil
	}

	return &Report{
		Summary:             summary(in),
		Strengths:           firstN(strengths, maxFindings),
		Weaknesses:          firstN(weaknesses, maxFindings),
		Recommendations:     recs,
		BenchmarkComparison: Benchmarks(in.Result.FinalScore),
		Method:              MethodRuleBased,
	}
}

func missingChallengeTech(in Input) (Finding, bool) {
	ind := in.Facts.Challenge
	switch in.Challenge.Family {
	case "ai":
		if !ind.AIML.HasAIML {
			return Finding{
				Title:    "Challenge technology missing",
				Evidence: "No AI/ML libraries found",
				Impact:   "The submission does not address the core of the challenge",
			}, true
		}
	case "data":
		if !ind.DataPipeline.HasDataPipeline {
			return Finding{
				Title:    "Challenge technology missing",
				Evidence: "No ETL or orchestration files found",
				Impact:   "The submission does not address the core of the challenge",
			}, true
		}
	case "web":
		if !ind.Web.HasWebApp {
			return Finding{
				Title:    "Challenge technology missing",
				Evidence: "No web framework found",
				Impact:   "The submission does not address the core of the challenge",
			}, true
		}
	}
	return Finding{}, false
}

func summary(in Input) string {
	r := in.Result
	title := in.Challenge.Title
	if title == "" {
		title = r.Challenge
	}
	return fmt.Sprintf("%s scored %.1f/100 on %s at the %s level (expected %g): %s.",
		repoName(in), r.FinalScore, title, r.ExperienceLabel, r.ExpectedScore, r.Decision)
}

func repoName(in Input) string {
	if in.Repository != "" {
		return in.Repository
	}
	if in.Facts.Root != "" {
		return in.Facts.Root
	}
	return "The repository"
}

func firstN(items []Finding, n int) []Finding {
	if len(items) > n {
		return items[:n]
	}
	return items
}
