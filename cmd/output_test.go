package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/repograde/internal/adjust"
	"github.com/spigell/repograde/internal/evaluate"
	"github.com/spigell/repograde/internal/narrative"
	"github.com/spigell/repograde/internal/rubric"
	"github.com/spigell/repograde/internal/score"
	"github.com/spigell/repograde/internal/store"
)

func sampleReport() *evaluate.Report {
	return &evaluate.Report{
		Repository: "/repo",
		Challenge:  rubric.Challenge{ID: "general", Title: "General"},
		Result: adjust.EvaluationResult{
			ExperienceLabel:  "Senior",
			Decision:         adjust.Reject,
			Categories:       []score.Category{{Name: "testing", Score: 0, Cap: 15}},
			CalculationSteps: []string{"1. Raw Technical Score: 3.0/100"},
		},
		Narrative: &narrative.Report{
			Summary:    "weak",
			Weaknesses: []narrative.Finding{{Title: "No tests", Evidence: "no test files"}},
		},
	}
}

func TestPrintReportText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReport(&out, sampleReport(), ""))

	text := out.String()
	assert.Contains(t, text, "Challenge: General (general)")
	assert.Contains(t, text, "Decision: Reject")
	assert.Contains(t, text, "1. Raw Technical Score: 3.0/100")
	assert.Contains(t, text, "  - No tests: no test files")
}

func TestPrintReportJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReport(&out, sampleReport(), "JSON"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "/repo", decoded["repository"])
	assert.Contains(t, decoded, "evaluation")
}

func TestPrintReportUnknownFormat(t *testing.T) {
	assert.Error(t, printReport(&bytes.Buffer{}, sampleReport(), "xml"))
}

func TestPrintCatalogue(t *testing.T) {
	r, err := rubric.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printCatalogue(&out, r))

	text := out.String()
	assert.Contains(t, text, "general (default)")
	assert.Contains(t, text, "challenge_023")
	assert.Contains(t, text, "fresher (default)")
	assert.Contains(t, text, "0.75x")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	records := []store.Record{{ID: 7, Repository: "/repo", Challenge: "general", ExperienceLevel: "senior", FinalScore: 42, Decision: "Reject"}}

	require.NoError(t, printHistory(&out, records, store.Summary{Count: 1, Mean: 42, Median: 42, Min: 42, Max: 42}))
	assert.Contains(t, out.String(), "/repo")
	assert.Contains(t, out.String(), "1 evaluations, final score mean 42.0")

	out.Reset()
	require.NoError(t, printHistory(&out, nil, store.Summary{}))
	assert.Contains(t, out.String(), "no evaluations saved")
}
