package evaluate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/repograde/internal/adjust"
	"github.com/spigell/repograde/internal/narrative"
	"github.com/spigell/repograde/internal/rubric"
)

const repoRoot = "/repo"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func memRepo(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(repoRoot, 0o755))
	for p, content := range files {
		full := filepath.Join(repoRoot, filepath.FromSlash(p))
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, afero.WriteFile(fs, full, []byte(content), 0o644))
	}
	return fs
}

func weakRepo(t *testing.T) afero.Fs {
	return memRepo(t, map[string]string{
		"main.py":  "print('hello')\n",
		"utils.py": "x = 1\n",
	})
}

func solidRepo(t *testing.T) afero.Fs {
	return memRepo(t, map[string]string{
		"README.md": "# Service\n\n## Installation\npip install .\n\n## Usage\nRun it.\n\n## Testing\nRun pytest.\n",
		"requirements.txt": "fastapi\npytest\nrequests\n",
		"Dockerfile":       "FROM python:3.11-slim\nCOPY . /app\n",
		"src/app.py": "import logging\n\n" +
			"class Service:\n    def run(self):\n        try:\n            return 1\n        except ValueError:\n            logging.error('bad')\n\n" +
			"def main():\n    Service().run()\n",
		"tests/test_app.py": "from src.app import main\n\ndef test_main():\n    main()\n",
	})
}

func newEvaluator(t *testing.T, fs afero.Fs, opts ...Option) *Evaluator {
	t.Helper()

	r, err := rubric.Default()
	require.NoError(t, err)

	e, err := New(r, fs, opts...)
	require.NoError(t, err)
	e.now = func() time.Time { return fixedNow }
	return e
}

type stubNarrator struct {
	report *narrative.Report
	err    error
	calls  int
}

func (s *stubNarrator) Narrate(_ context.Context, _ narrative.Input) (*narrative.Report, error) {
	s.calls++
	return s.report, s.err
}

func TestEvaluateWeakRepositoryAtSenior(t *testing.T) {
	e := newEvaluator(t, weakRepo(t))

	rep, err := e.Evaluate(context.Background(), Request{Path: repoRoot, Challenge: "general", Experience: "senior"})
	require.NoError(t, err)

	assert.Equal(t, repoRoot, rep.Repository)
	assert.Equal(t, fixedNow, rep.EvaluatedAt)
	assert.Equal(t, "general", rep.Challenge.ID)
	assert.Less(t, rep.Result.RawScore, 20.0)
	assert.Greater(t, rep.Result.Breakdown.Penalties.Total, 0.0)
	assert.Equal(t, adjust.Reject, rep.Result.Decision)
	assert.False(t, rep.Facts.Testing.HasTests)

	require.NotNil(t, rep.Narrative)
	assert.Equal(t, narrative.MethodRuleBased, rep.Narrative.Method)
}

func TestEvaluateJuniorScoresAtLeastSenior(t *testing.T) {
	e := newEvaluator(t, weakRepo(t))
	ctx := context.Background()

	senior, err := e.Evaluate(ctx, Request{Path: repoRoot, Experience: "senior"})
	require.NoError(t, err)
	junior, err := e.Evaluate(ctx, Request{Path: repoRoot, Experience: "1st_year"})
	require.NoError(t, err)

	assert.Equal(t, senior.Result.RawScore, junior.Result.RawScore)
	assert.GreaterOrEqual(t, junior.Result.FinalScore, senior.Result.FinalScore)
	assert.Equal(t, 1.0, junior.Result.Breakdown.MultiplierApplied)
}

func TestEvaluateScoreDoesNotDependOnParseMode(t *testing.T) {
	const body = "import logging\n\nlog = logging.getLogger(__name__)\n\n" +
		"def render(x):\n    try:\n        return %s\n    except ValueError:\n        log.error(\"bad\")\n"
	ctx := context.Background()
	req := Request{Path: repoRoot, Experience: "senior"}

	plain, err := newEvaluator(t, memRepo(t, map[string]string{"app.py": fmt.Sprintf(body, "str(x)")})).Evaluate(ctx, req)
	require.NoError(t, err)
	fstring, err := newEvaluator(t, memRepo(t, map[string]string{"app.py": fmt.Sprintf(body, `f"{x}"`)})).Evaluate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, plain.Facts.Python.StructuredFiles)
	assert.Zero(t, fstring.Facts.Python.StructuredFiles)

	codeQuality := func(r *Report) float64 {
		for _, c := range r.Result.Categories {
			if c.Name == "code_quality" {
				return c.Score
			}
		}
		return -1
	}
	assert.Equal(t, 6.0, codeQuality(plain))
	assert.Equal(t, codeQuality(plain), codeQuality(fstring))
	assert.Equal(t, plain.Result.RawScore, fstring.Result.RawScore)
}

func TestEvaluateSolidRepositoryBeatsWeak(t *testing.T) {
	ctx := context.Background()
	req := Request{Path: repoRoot, Challenge: "challenge_023", Experience: "2nd_year"}

	weak, err := newEvaluator(t, weakRepo(t)).Evaluate(ctx, req)
	require.NoError(t, err)
	solid, err := newEvaluator(t, solidRepo(t)).Evaluate(ctx, req)
	require.NoError(t, err)

	assert.True(t, solid.Facts.Testing.HasTests)
	assert.True(t, solid.Facts.Container.HasDockerfile)
	assert.Greater(t, solid.Result.RawScore, weak.Result.RawScore)
	assert.Greater(t, solid.Result.FinalScore, weak.Result.FinalScore)
}

func TestEvaluateMissingRepository(t *testing.T) {
	e := newEvaluator(t, afero.NewMemMapFs())

	rep, err := e.Evaluate(context.Background(), Request{Path: "/missing", Experience: "senior"})
	require.NoError(t, err)

	assert.True(t, rep.Facts.Failed())
	assert.Zero(t, rep.Result.FinalScore)
	assert.Equal(t, adjust.Reject, rep.Result.Decision)
	assert.NotEmpty(t, rep.Result.Error)
}

func TestEvaluateRejectsEmptyPath(t *testing.T) {
	e := newEvaluator(t, afero.NewMemMapFs())

	_, err := e.Evaluate(context.Background(), Request{Path: "  "})
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = e.Scan(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestEvaluateUnknownIdentifiersFallBack(t *testing.T) {
	e := newEvaluator(t, weakRepo(t))

	rep, err := e.Evaluate(context.Background(), Request{Path: repoRoot, Challenge: "nope", Experience: "wizard"})
	require.NoError(t, err)

	assert.Equal(t, "general", rep.Challenge.ID)
	assert.Equal(t, "fresher", rep.Result.ExperienceLevel)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := newEvaluator(t, solidRepo(t))
	req := Request{Path: repoRoot, Challenge: "challenge_024", Experience: "3rd_year"}

	first, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluateUsesNarrator(t *testing.T) {
	stub := &stubNarrator{report: &narrative.Report{Summary: "fine", Method: narrative.MethodGemini}}
	e := newEvaluator(t, weakRepo(t), WithNarrator(stub))

	rep, err := e.Evaluate(context.Background(), Request{Path: repoRoot, Narrative: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "fine", rep.Narrative.Summary)

	rep, err = e.Evaluate(context.Background(), Request{Path: repoRoot})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, narrative.MethodRuleBased, rep.Narrative.Method)
}

func TestEvaluateFallsBackWhenNarratorFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stub := &stubNarrator{err: errors.New("quota exceeded")}
	e := newEvaluator(t, weakRepo(t), WithNarrator(stub), WithLogger(zap.New(core)))

	rep, err := e.Evaluate(context.Background(), Request{Path: repoRoot, Narrative: true, Experience: "senior"})
	require.NoError(t, err)

	require.NotNil(t, rep.Narrative)
	assert.Equal(t, narrative.MethodRuleBased, rep.Narrative.Method)

	warnings := logs.FilterMessage("narrative generation failed, using rule-based narrative").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "senior", warnings[0].ContextMap()["experience_level"])
}

func TestEvaluateCancelledContext(t *testing.T) {
	e := newEvaluator(t, weakRepo(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, Request{Path: repoRoot})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresRubric(t *testing.T) {
	_, err := New(nil, afero.NewMemMapFs())
	assert.Error(t, err)
}
