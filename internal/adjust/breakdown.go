package adjust

import (
	"fmt"

	"github.com/spigell/repograde/internal/score"
)

// Decision is the hiring decision derived from the final score.
type Decision string

const (
	StrongHire Decision = "Strong Hire"
	Hire       Decision = "Hire"
	Borderline Decision = "Borderline"
	Reject     Decision = "Reject"
)

// Item is one applied penalty or reward.
type Item struct {
	ID     string  `json:"id"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// Adjustment is the sum of a list of items together with the items.
type Adjustment struct {
	Total float64 `json:"total"`
	Items []Item  `json:"items"`
}

// Step records one pipeline step for display.
type Step struct {
	Name        string `json:"step"`
	Value       string `json:"value"`
	Calculation string `json:"calculation"`
}

// ScoreBreakdown is the audit trail of one adjustment. It is built once and
// never modified afterwards.
type ScoreBreakdown struct {
	RawScore          float64    `json:"raw_score"`
	MultiplierApplied float64    `json:"multiplier_applied"`
	AdjustedScore     float64    `json:"adjusted_score"`
	Penalties         Adjustment `json:"penalties"`
	Rewards           Adjustment `json:"rewards"`
	FinalScore        float64    `json:"final_score"`
	Steps             []Step     `json:"adjustment_details"`
}

// CalculationSteps renders the breakdown as numbered lines.
func (b ScoreBreakdown) CalculationSteps() []string {
	lines := []string{fmt.Sprintf("1. Raw Technical Score: %.1f/100", b.RawScore)}
	for _, s := range b.Steps {
		lines = append(lines,
			fmt.Sprintf("2. %s: %s", s.Name, s.Value),
			fmt.Sprintf("   -> %s", s.Calculation),
		)
	}
	return append(lines, fmt.Sprintf("3. Final Adjusted Score: %.1f/100", b.FinalScore))
}

// Evidence is a flat summary of the facts behind a result.
type Evidence struct {
	FileCount            int     `json:"file_count"`
	CodeFiles            int     `json:"code_files"`
	LinesOfCode          int     `json:"lines_of_code"`
	Functions            int     `json:"functions"`
	Classes              int     `json:"classes"`
	HasTests             bool    `json:"has_tests"`
	TestFiles            int     `json:"test_files"`
	HasDocker            bool    `json:"has_docker"`
	HasCI                bool    `json:"has_ci_cd"`
	DocumentationQuality int     `json:"documentation_quality"`
	ErrorHandlingFound   bool    `json:"error_handling_found"`
	ArchitectureScore    float64 `json:"architecture_score"`
}

// EvaluationResult is the outcome of evaluating one repository for one
// challenge and experience level.
type EvaluationResult struct {
	ExperienceLevel      string           `json:"experience_level"`
	ExperienceLabel      string           `json:"experience_label"`
	Challenge            string           `json:"challenge"`
	ScoreRange           string           `json:"score_range"`
	RawScore             float64          `json:"raw_technical_score"`
	FinalScore           float64          `json:"final_adjusted_score"`
	ExpectedScore        float64          `json:"industry_expected"`
	PerformanceGap       float64          `json:"performance_gap"`
	Decision             Decision         `json:"hiring_decision"`
	Recommendation       string           `json:"recommendation"`
	Assessment           string           `json:"assessment"`
	Feedback             string           `json:"feedback"`
	CalculationSteps     []string         `json:"calculation_steps"`
	IndustryExpectations []string         `json:"industry_expectations"`
	Categories           []score.Category `json:"categories"`
	Breakdown            ScoreBreakdown   `json:"score_breakdown"`
	Evidence             Evidence         `json:"evidence_summary"`
	Error                string           `json:"error,omitempty"`
}
