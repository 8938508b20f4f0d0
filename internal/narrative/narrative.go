// Package narrative produces the prose report that accompanies an
// evaluation: strengths, weaknesses, recommendations and a comparison
// against fixed industry benchmarks.
package narrative

import (
	"context"

	"github.com/spigell/repograde/internal/adjust"
	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/rubric"
)

const (
	MethodRuleBased = "rule_based"
	MethodGemini    = "gemini"
)

// Input is everything a narrator may look at.
type Input struct {
	Repository string
	Challenge  rubric.Challenge
	Facts      facts.RepositoryFacts
	Result     adjust.EvaluationResult
}

type Finding struct {
	Title    string `json:"title" mapstructure:"title"`
	Evidence string `json:"evidence" mapstructure:"evidence"`
	Impact   string `json:"impact" mapstructure:"impact"`
}

type Benchmark struct {
	Level     string  `json:"level" mapstructure:"level"`
	Threshold float64 `json:"benchmark" mapstructure:"benchmark"`
	Status    string  `json:"status" mapstructure:"status"`
	Delta     string  `json:"delta" mapstructure:"delta"`
}

type Report struct {
	Summary             string      `json:"summary" mapstructure:"summary"`
	Strengths           []Finding   `json:"strengths" mapstructure:"strengths"`
	Weaknesses          []Finding   `json:"weaknesses" mapstructure:"weaknesses"`
	Recommendations     []string    `json:"recommendations" mapstructure:"recommendations"`
	BenchmarkComparison []Benchmark `json:"benchmark_comparison" mapstructure:"benchmark_comparison"`
	Method              string      `json:"method" mapstructure:"-"`
	Model               string      `json:"model,omitempty" mapstructure:"-"`
}

// Narrator explains an evaluation result in prose.
type Narrator interface {
	Narrate(ctx context.Context, in Input) (*Report, error)
}
