package rubric

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Rubric {
	t.Helper()
	r, err := Default()
	require.NoError(t, err)
	return r
}

func TestDefaultTiers(t *testing.T) {
	r := mustDefault(t)

	require.Equal(t, []string{"1st_year", "2nd_year", "fresher", "3rd_year", "4th_year", "experienced_0_2", "senior"}, r.TierNames())

	for i := 1; i < len(r.Tiers); i++ {
		prev, cur := r.Tiers[i-1], r.Tiers[i]
		assert.LessOrEqual(t, cur.Multiplier, prev.Multiplier, "%s multiplier", cur.Name)
		assert.GreaterOrEqual(t, cur.ExpectedScore, prev.ExpectedScore, "%s expected score", cur.Name)
	}

	first, _ := r.Tier("1st_year")
	assert.Equal(t, 1.0, first.Multiplier)
	senior, _ := r.Tier("senior")
	assert.Equal(t, 0.75, senior.Multiplier)
	assert.Equal(t, 85.0, senior.ExpectedScore)
	assert.Equal(t, DecisionOffsets{StrongHire: 10, Hire: 0, Borderline: -10}, senior.Decision)
	assert.Len(t, senior.Expectations, 4)
}

func TestUnknownIdentifiersFallBack(t *testing.T) {
	r := mustDefault(t)

	tier, ok := r.Tier("wizard")
	assert.False(t, ok)
	assert.Equal(t, "fresher", tier.Name)

	ch, ok := r.Challenge("challenge_999")
	assert.False(t, ok)
	assert.Equal(t, "general", ch.ID)
}

func TestCategoriesSumToHundred(t *testing.T) {
	r := mustDefault(t)

	for _, c := range r.Challenges {
		assert.Equal(t, 100.0, r.MaxScore(c), c.ID)
		cats := r.Categories(c)
		assert.Equal(t, "code_quality", cats[0].Name)
		assert.Len(t, cats, 6)
	}
}

func TestRuleScope(t *testing.T) {
	r := mustDefault(t)

	var aiRule Rule
	for _, p := range r.Penalties {
		if p.ID == "ai_agents_missing_ai_ml" {
			aiRule = p
		}
	}
	require.NotEmpty(t, aiRule.ID)

	assert.True(t, aiRule.Applies("senior", "challenge_023"))
	assert.False(t, aiRule.Applies("senior", "challenge_024"))
	assert.Equal(t, 10.0, aiRule.PointsFor("senior"))
	assert.Equal(t, 7.0, aiRule.PointsFor("4th_year"))
	assert.Equal(t, 3.0, aiRule.PointsFor("fresher"))
}

func TestBandsPick(t *testing.T) {
	r := mustDefault(t)

	assert.True(t, strings.HasPrefix(r.Recommendations.Pick(15), "Exceptional"))
	assert.True(t, strings.HasPrefix(r.Recommendations.Pick(14.9), "Good"))
	assert.True(t, strings.HasPrefix(r.Recommendations.Pick(-10), "Below average"))
	assert.True(t, strings.HasPrefix(r.Recommendations.Pick(-10.1), "Not suitable"))

	assert.True(t, strings.HasPrefix(r.Assessments.Pick(10), "MEETS"))
	assert.True(t, strings.HasPrefix(r.Assessments.Pick(10.5), "EXCEEDS"))
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"unknown key": "version: 1\nbogus: true\n",
		"no tiers":    "version: 1\ndefault_tier: x\n",
		"multiplier": `
default_tier: a
default_challenge: g
tiers: [{name: a, multiplier: 1.5, expected_score: 50}]
challenges: [{id: g}]
keywords: {readme_max_score: 10}
`,
		"unknown rule tier": `
default_tier: a
default_challenge: g
tiers: [{name: a, multiplier: 1, expected_score: 50}]
challenges: [{id: g}]
penalties: [{id: p, tiers: [b], when: missing_tests, points: 1}]
keywords: {readme_max_score: 10}
`,
	}

	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fresher", r.DefaultTier)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	custom := filepath.Join(t.TempDir(), "rubric.yaml")
	doc := strings.Replace(string(defaults), "default_tier: fresher", "default_tier: senior", 1)
	require.NoError(t, os.WriteFile(custom, []byte(doc), 0o600))

	r, err = Load(custom)
	require.NoError(t, err)
	tier, _ := r.Tier("")
	assert.Equal(t, "senior", tier.Name)
}
