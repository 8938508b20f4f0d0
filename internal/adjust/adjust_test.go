package adjust

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/rubric"
	"github.com/spigell/repograde/internal/score"
)

type fixture struct {
	rubric *rubric.Rubric
	scorer *score.Scorer
	engine *Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	r, err := rubric.Default()
	require.NoError(t, err)
	s, err := score.New(r)
	require.NoError(t, err)
	e, err := New(r, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return fixture{rubric: r, scorer: s, engine: e}
}

func (fx fixture) evaluate(f facts.RepositoryFacts, challenge, level string) EvaluationResult {
	return fx.engine.Adjust(f, fx.scorer.Score(f, challenge), level)
}

// weakFacts is a repository with two tiny python files and nothing else.
func weakFacts() facts.RepositoryFacts {
	return facts.RepositoryFacts{
		Root:               "/repo",
		Metadata:           facts.Metadata{TotalFileCount: 2, TotalLineCount: 4},
		LanguageFileCounts: map[string]int{"python": 2},
		Files: facts.FileStats{
			CodeFileCount: 2,
			Largest:       []facts.FileSize{{Path: "a.py", SizeKB: 0.1}, {Path: "b.py", SizeKB: 0.1}},
		},
		Python:        facts.CodeMetrics{Files: 2},
		Documentation: facts.Documentation{Readme: facts.Readme{Sections: map[string]bool{}}},
	}
}

func itemIDs(adj Adjustment) []string {
	ids := make([]string, 0, len(adj.Items))
	for _, it := range adj.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestWeakRepositoryAtSenior(t *testing.T) {
	fx := newFixture(t)

	res := fx.evaluate(weakFacts(), "general", "senior")

	assert.Equal(t, "senior", res.ExperienceLevel)
	assert.Equal(t, 0.75, res.Breakdown.MultiplierApplied)
	assert.Less(t, res.RawScore, 20.0)
	assert.Zero(t, res.Evidence.DocumentationQuality)
	assert.Equal(t, 20.0, res.Breakdown.Penalties.Total)
	assert.Equal(t, []string{
		"senior_missing_dockerfile",
		"senior_missing_tests",
		"senior_missing_ci",
		"senior_weak_documentation",
	}, itemIDs(res.Breakdown.Penalties))
	assert.Zero(t, res.FinalScore)
	assert.Equal(t, Reject, res.Decision)
	assert.Equal(t, -85.0, res.PerformanceGap)
}

func TestWeakRepositoryAtFirstYear(t *testing.T) {
	fx := newFixture(t)

	senior := fx.evaluate(weakFacts(), "general", "senior")
	junior := fx.evaluate(weakFacts(), "general", "1st_year")

	assert.Equal(t, senior.RawScore, junior.RawScore)
	assert.Equal(t, 1.0, junior.Breakdown.MultiplierApplied)
	assert.Equal(t, []string{"junior_missing_readme"}, itemIDs(junior.Breakdown.Penalties))
	assert.Equal(t, 2.0, junior.Breakdown.Penalties.Total)
	assert.Empty(t, junior.Breakdown.Rewards.Items)
	assert.Equal(t, 1.0, junior.FinalScore)
	assert.Greater(t, junior.FinalScore, senior.FinalScore)
}

func TestFinalScoreIsClamped(t *testing.T) {
	fx := newFixture(t)

	f := facts.RepositoryFacts{
		Documentation: facts.Documentation{Readme: facts.Readme{Exists: true, QualityScore: 9}},
		Testing:       facts.Testing{HasTests: true},
		Container:     facts.Container{HasDockerfile: true},
		CICD:          facts.CICD{HasCI: true},
	}
	res := fx.engine.Adjust(f, score.Result{Challenge: "general", Total: 100}, "fresher")

	assert.InDelta(t, 92.0, res.Breakdown.AdjustedScore, 1e-9)
	assert.Equal(t, 9.0, res.Breakdown.Rewards.Total)
	assert.Equal(t, 100.0, res.FinalScore)
	assert.Equal(t, StrongHire, res.Decision)
	assert.Equal(t, "Exceptional candidate - Strongly recommend hiring", res.Recommendation)

	low := fx.engine.Adjust(weakFacts(), score.Result{Challenge: "challenge_023", Total: 0}, "senior")
	assert.Zero(t, low.FinalScore)
}

func TestAdjustIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	f := weakFacts()

	first := fx.evaluate(f, "challenge_024", "4th_year")
	second := fx.evaluate(f, "challenge_024", "4th_year")

	assert.Equal(t, first, second)
}

func TestHigherTierNeverScoresHigher(t *testing.T) {
	fx := newFixture(t)

	withReadme := weakFacts()
	withReadme.Documentation.Readme = facts.Readme{Exists: true, QualityScore: 3, Sections: map[string]bool{}}

	richer := weakFacts()
	richer.Python = facts.CodeMetrics{Functions: 12, Classes: 4, HasTypeHints: true, HasDocstrings: true}
	richer.Quality = facts.QualitySignals{HasErrorHandling: true, HasLogging: true, HasComments: true}
	richer.Structure = facts.Structure{KeyDirectories: []string{"src", "tests"}, Roles: []string{"source", "tests"}}

	for _, f := range []facts.RepositoryFacts{weakFacts(), withReadme, richer} {
		for _, challenge := range []string{"general", "challenge_023", "challenge_024"} {
			prev := 101.0
			for _, level := range fx.rubric.TierNames() {
				res := fx.evaluate(f, challenge, level)
				assert.LessOrEqual(t, res.FinalScore, prev, "%s at %s", challenge, level)
				prev = res.FinalScore
			}
		}
	}
}

func TestAIChallengePenalty(t *testing.T) {
	fx := newFixture(t)

	f := weakFacts()
	res := fx.evaluate(f, "challenge_023", "senior")
	assert.Contains(t, itemIDs(res.Breakdown.Penalties), "ai_agents_missing_ai_ml")
	assert.Equal(t, 30.0, res.Breakdown.Penalties.Total)

	res = fx.evaluate(f, "challenge_023", "fresher")
	assert.Equal(t, []string{"junior_missing_readme", "ai_agents_missing_ai_ml"}, itemIDs(res.Breakdown.Penalties))
	assert.Equal(t, 5.0, res.Breakdown.Penalties.Total)

	f.Challenge.AIML = facts.AIML{HasAIML: true, Libraries: []string{"langchain", "opencv", "torch"}}
	res = fx.evaluate(f, "challenge_023", "senior")
	assert.NotContains(t, itemIDs(res.Breakdown.Penalties), "ai_agents_missing_ai_ml")

	// Healthcare has no penalty below the intermediate tiers.
	res = fx.evaluate(weakFacts(), "challenge_024", "1st_year")
	assert.NotContains(t, itemIDs(res.Breakdown.Penalties), "healthcare_ai_missing_ai_ml")
	res = fx.evaluate(weakFacts(), "challenge_024", "3rd_year")
	assert.Contains(t, itemIDs(res.Breakdown.Penalties), "healthcare_ai_missing_ai_ml")
}

func TestRewards(t *testing.T) {
	fx := newFixture(t)

	f := weakFacts()
	f.Structure = facts.Structure{KeyDirectories: []string{"src", "tests"}, Roles: []string{"source", "tests"}}
	f.Documentation.Readme = facts.Readme{Exists: true, QualityScore: 8}

	res := fx.evaluate(f, "general", "3rd_year")
	assert.Equal(t, []string{"excellent_documentation", "clean_architecture"}, itemIDs(res.Breakdown.Rewards))

	res = fx.evaluate(f, "general", "senior")
	assert.Equal(t, []string{"excellent_documentation"}, itemIDs(res.Breakdown.Rewards))
}

func TestDecisionOffsets(t *testing.T) {
	fx := newFixture(t)

	cases := []struct {
		level string
		final float64
		want  Decision
	}{
		{"senior", 95, StrongHire},
		{"senior", 85, Hire},
		{"senior", 75, Borderline},
		{"senior", 74.9, Reject},
		{"experienced_0_2", 78, Hire},
		{"3rd_year", 85, StrongHire},
		{"3rd_year", 75, Hire},
		{"3rd_year", 65, Borderline},
		{"3rd_year", 64, Reject},
		{"1st_year", 80, StrongHire},
		{"1st_year", 70, Hire},
		{"1st_year", 60, Borderline},
		{"fresher", 67, Reject},
	}
	for _, tc := range cases {
		tier, ok := fx.rubric.Tier(tc.level)
		require.True(t, ok)
		assert.Equal(t, tc.want, decide(tc.final, tier), "%s at %v", tc.level, tc.final)
	}
}

func TestDecisionUsesReportedScore(t *testing.T) {
	fx := newFixture(t)
	f := facts.RepositoryFacts{Root: "/repo"}
	f.Documentation.Readme = facts.Readme{Exists: true, QualityScore: 5}

	res := fx.engine.Adjust(f, score.Result{Challenge: "general", Total: 69.96}, "1st_year")

	require.Empty(t, res.Breakdown.Penalties.Items)
	require.Empty(t, res.Breakdown.Rewards.Items)
	assert.InDelta(t, 69.96, res.Breakdown.FinalScore, 1e-9)
	assert.Equal(t, 70.0, res.FinalScore)
	assert.Equal(t, 10.0, res.PerformanceGap)
	assert.Equal(t, Hire, res.Decision)
}

func TestUnknownLevelUsesDefaultTier(t *testing.T) {
	fx := newFixture(t)

	res := fx.evaluate(weakFacts(), "general", "wizard")
	assert.Equal(t, "fresher", res.ExperienceLevel)
	assert.Equal(t, 0.92, res.Breakdown.MultiplierApplied)
}

func TestFailedFactsProduceZeroAndReject(t *testing.T) {
	fx := newFixture(t)

	f := facts.Failed("/missing", errors.New("no such directory"))
	res := fx.evaluate(f, "general", "1st_year")

	assert.Zero(t, res.RawScore)
	assert.Zero(t, res.FinalScore)
	assert.Equal(t, Reject, res.Decision)
	assert.NotEmpty(t, res.Error)
	require.Len(t, res.Breakdown.Steps, 1)
	assert.Equal(t, "Repository Unavailable", res.Breakdown.Steps[0].Name)
	assert.Contains(t, res.Breakdown.Steps[0].Calculation, "/missing")
	assert.Contains(t, res.Feedback, "Repository unavailable")
}

func TestBreakdownRoundTrip(t *testing.T) {
	fx := newFixture(t)

	res := fx.evaluate(weakFacts(), "challenge_023", "experienced_0_2")
	require.NotEmpty(t, res.Breakdown.Penalties.Items)

	data, err := json.Marshal(res.Breakdown)
	require.NoError(t, err)

	var decoded ScoreBreakdown
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.Breakdown, decoded)
}

func TestCalculationSteps(t *testing.T) {
	b := ScoreBreakdown{
		RawScore:   40,
		FinalScore: 25,
		Steps: []Step{
			{Name: "Experience Multiplier", Value: "0.75x", Calculation: "40.0 x 0.75 = 30.0"},
			{Name: "Experience Penalties", Value: "-5.0", Calculation: "Missing features expected at senior level"},
		},
	}

	assert.Equal(t, []string{
		"1. Raw Technical Score: 40.0/100",
		"2. Experience Multiplier: 0.75x",
		"   -> 40.0 x 0.75 = 30.0",
		"2. Experience Penalties: -5.0",
		"   -> Missing features expected at senior level",
		"3. Final Adjusted Score: 25.0/100",
	}, b.CalculationSteps())
}

func TestNewRejectsUnknownCondition(t *testing.T) {
	r, err := rubric.Default()
	require.NoError(t, err)
	r.Penalties = append(r.Penalties, rubric.Rule{ID: "odd", When: "missing_magic", Points: 1})

	_, err = New(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_magic")
}
