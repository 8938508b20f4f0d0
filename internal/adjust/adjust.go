// Package adjust turns a raw technical score into an experience-aware final
// score and hiring decision.
//
// Adjustment is a four step pipeline: multiply by the tier multiplier,
// subtract penalties, add rewards, clamp to [0, 100]. Every step is recorded
// in the ScoreBreakdown so results can be rendered without recomputation.
package adjust

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/logger"
	"github.com/spigell/repograde/internal/rubric"
	"github.com/spigell/repograde/internal/score"
)

const (
	minScore = 0
	maxScore = 100
)

type Engine struct {
	rubric *rubric.Rubric
	logger *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New returns an Engine for the rubric. Every penalty and reward rule must
// name a known condition.
func New(r *rubric.Rubric, opts ...Option) (*Engine, error) {
	if r == nil {
		return nil, fmt.Errorf("rubric is required")
	}
	for _, rule := range append(append([]rubric.Rule{}, r.Penalties...), r.Rewards...) {
		if _, ok := conditions[rule.When]; !ok {
			return nil, fmt.Errorf("rule %q: unknown condition %q", rule.ID, rule.When)
		}
	}

	e := &Engine{rubric: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e, nil
}

// Adjust evaluates the raw score of f at the given experience level. Unknown
// levels use the rubric's default tier. Facts of an unreadable repository
// produce a zero score and a Reject decision.
func (e *Engine) Adjust(f facts.RepositoryFacts, raw score.Result, experience string) EvaluationResult {
	tier, ok := e.rubric.Tier(experience)
	if !ok {
		e.logger.Debug("unknown experience level, using default",
			zap.String(logger.FieldExperience, experience),
			zap.String("default", tier.Name),
		)
	}

	var b ScoreBreakdown
	if f.Failed() {
		b = failedBreakdown(tier, f.Error)
	} else {
		b = e.Breakdown(f, raw.Total, tier, raw.Challenge)
	}

	// Decisions and bands use the reported, rounded score.
	final := round1(b.FinalScore)
	gap := final - tier.ExpectedScore
	res := EvaluationResult{
		ExperienceLevel:      tier.Name,
		ExperienceLabel:      tier.Label,
		Challenge:            raw.Challenge,
		ScoreRange:           tier.ScoreRange,
		RawScore:             round1(b.RawScore),
		FinalScore:           final,
		ExpectedScore:        tier.ExpectedScore,
		PerformanceGap:       round1(gap),
		Decision:             decide(final, tier),
		Recommendation:       e.rubric.Recommendations.Pick(gap),
		Assessment:           e.assessment(gap, tier),
		CalculationSteps:     b.CalculationSteps(),
		IndustryExpectations: tier.Expectations,
		Categories:           raw.Categories,
		Breakdown:            b,
		Evidence:             evidence(f, raw),
		Error:                f.Error,
	}
	if f.Failed() {
		res.Decision = Reject
	}
	res.Feedback = e.feedback(res, tier)

	e.logger.Info("experience adjustment applied",
		zap.String(logger.FieldChallenge, res.Challenge),
		zap.String(logger.FieldExperience, res.ExperienceLevel),
		zap.Float64("raw_score", res.RawScore),
		zap.Float64("final_score", res.FinalScore),
		zap.String("decision", string(res.Decision)),
	)
	return res
}

// Breakdown runs the adjustment pipeline for a raw score.
func (e *Engine) Breakdown(f facts.RepositoryFacts, raw float64, tier rubric.Tier, challenge string) ScoreBreakdown {
	b := ScoreBreakdown{
		RawScore:          raw,
		MultiplierApplied: tier.Multiplier,
	}

	b.AdjustedScore = raw * tier.Multiplier
	b.Steps = append(b.Steps, Step{
		Name:        "Experience Multiplier",
		Value:       fmt.Sprintf("%gx", tier.Multiplier),
		Calculation: fmt.Sprintf("%.1f x %g = %.1f", raw, tier.Multiplier, b.AdjustedScore),
	})

	b.Penalties = e.apply(e.rubric.Penalties, f, tier.Name, challenge)
	if b.Penalties.Total > 0 {
		b.Steps = append(b.Steps, Step{
			Name:        "Experience Penalties",
			Value:       fmt.Sprintf("-%.1f", b.Penalties.Total),
			Calculation: fmt.Sprintf("Missing features expected at %s level", tier.Name),
		})
	}

	b.Rewards = e.apply(e.rubric.Rewards, f, tier.Name, challenge)
	if b.Rewards.Total > 0 {
		b.Steps = append(b.Steps, Step{
			Name:        "Experience Rewards",
			Value:       fmt.Sprintf("+%.1f", b.Rewards.Total),
			Calculation: "Exceeding expectations for experience level",
		})
	}

	b.FinalScore = clamp(b.AdjustedScore - b.Penalties.Total + b.Rewards.Total)

	e.logger.Debug("adjustment steps",
		zap.String(logger.FieldExperience, tier.Name),
		zap.Float64("multiplied", b.AdjustedScore),
		zap.Float64("penalties", b.Penalties.Total),
		zap.Float64("rewards", b.Rewards.Total),
		zap.Float64("final", b.FinalScore),
	)
	return b
}

func (e *Engine) apply(rules []rubric.Rule, f facts.RepositoryFacts, tier, challenge string) Adjustment {
	adj := Adjustment{Items: []Item{}}
	for _, rule := range rules {
		if !rule.Applies(tier, challenge) || !conditions[rule.When](f, rule.Threshold) {
			continue
		}
		points := rule.PointsFor(tier)
		if points <= 0 {
			continue
		}
		adj.Items = append(adj.Items, Item{ID: rule.ID, Points: points, Reason: rule.Reason})
		adj.Total += points
	}
	return adj
}

func failedBreakdown(tier rubric.Tier, reason string) ScoreBreakdown {
	return ScoreBreakdown{
		MultiplierApplied: tier.Multiplier,
		Penalties:         Adjustment{Items: []Item{}},
		Rewards:           Adjustment{Items: []Item{}},
		Steps: []Step{{
			Name:        "Repository Unavailable",
			Value:       "0",
			Calculation: reason,
		}},
	}
}

// decide maps a final score to a decision using the tier's offsets from its
// expected score.
func decide(final float64, t rubric.Tier) Decision {
	switch {
	case final >= t.ExpectedScore+t.Decision.StrongHire:
		return StrongHire
	case final >= t.ExpectedScore+t.Decision.Hire:
		return Hire
	case final >= t.ExpectedScore+t.Decision.Borderline:
		return Borderline
	default:
		return Reject
	}
}

func evidence(f facts.RepositoryFacts, raw score.Result) Evidence {
	return Evidence{
		FileCount:            f.Metadata.TotalFileCount,
		CodeFiles:            f.Files.CodeFileCount,
		LinesOfCode:          f.Metadata.TotalLineCount,
		Functions:            f.CodeFunctions(),
		Classes:              f.Python.Classes + f.JavaScript.Classes,
		HasTests:             f.Testing.HasTests,
		TestFiles:            len(f.Testing.Files),
		HasDocker:            f.Container.HasDockerfile,
		HasCI:                f.CICD.HasCI,
		DocumentationQuality: f.Documentation.Readme.QualityScore,
		ErrorHandlingFound:   f.Quality.HasErrorHandling,
		ArchitectureScore:    raw.Category("architecture"),
	}
}

func clamp(v float64) float64 {
	return max(minScore, min(maxScore, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
