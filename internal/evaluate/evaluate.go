// Package evaluate sequences a full repository evaluation: scan, raw score,
// experience adjustment and narrative.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/adjust"
	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/logger"
	"github.com/spigell/repograde/internal/narrative"
	"github.com/spigell/repograde/internal/rubric"
	"github.com/spigell/repograde/internal/scan"
	"github.com/spigell/repograde/internal/score"
)

var ErrEmptyPath = errors.New("repository path is required")

// Request describes one evaluation. Unknown challenge and experience values
// fall back to the rubric defaults.
type Request struct {
	Path       string
	Challenge  string
	Experience string
	// Narrative asks for the configured narrator. Without it, or when the
	// narrator fails, the rule-based narrative is used.
	Narrative bool
}

type Report struct {
	Repository  string                  `json:"repository"`
	EvaluatedAt time.Time               `json:"evaluated_at"`
	Challenge   rubric.Challenge        `json:"challenge"`
	Facts       facts.RepositoryFacts   `json:"repository_facts"`
	Result      adjust.EvaluationResult `json:"evaluation"`
	Narrative   *narrative.Report       `json:"narrative,omitempty"`
}

type Evaluator struct {
	rubric   *rubric.Rubric
	scanner  *scan.Scanner
	scorer   *score.Scorer
	adjuster *adjust.Engine
	narrator narrative.Narrator
	logger   *zap.Logger
	workers  int
	now      func() time.Time
}

type Option func(*Evaluator)

// WithNarrator sets the narrator used when a request asks for a narrative.
func WithNarrator(n narrative.Narrator) Option {
	return func(e *Evaluator) {
		e.narrator = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithScanWorkers bounds concurrent file reads during the scan.
func WithScanWorkers(n int) Option {
	return func(e *Evaluator) {
		e.workers = n
	}
}

// New wires the pipeline for a rubric. Repositories are read from fs.
func New(r *rubric.Rubric, fs afero.Fs, opts ...Option) (*Evaluator, error) {
	if r == nil {
		return nil, fmt.Errorf("rubric is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	e := &Evaluator{rubric: r, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.WithFields(e.logger)

	scorer, err := score.New(r)
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}
	adjuster, err := adjust.New(r, adjust.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("creating adjustment engine: %w", err)
	}

	e.scorer = scorer
	e.adjuster = adjuster
	e.scanner = scan.New(fs, r.Keywords, scan.WithLogger(e.logger), scan.WithWorkers(e.workers))
	return e, nil
}

// Scan returns the repository facts without scoring them.
func (e *Evaluator) Scan(ctx context.Context, path string) (facts.RepositoryFacts, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return facts.RepositoryFacts{}, ErrEmptyPath
	}
	return e.scanner.Scan(ctx, path), nil
}

// Evaluate runs the pipeline for one repository. An unreadable repository is
// not an error: it yields a zero score with the reason in the breakdown.
// Only an empty path or a cancelled context fail the call.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Report, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, ErrEmptyPath
	}

	challenge, _ := e.rubric.Challenge(req.Challenge)
	tier, _ := e.rubric.Tier(req.Experience)
	log := logger.WithEvaluationFields(e.logger, path, challenge.ID, tier.Name)

	log.Info("scanning repository")
	f := e.scanner.Scan(ctx, path)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if f.Failed() {
		log.Warn("repository unavailable, scoring as empty", zap.String("reason", f.Error))
	}

	raw := e.scorer.Score(f, challenge.ID)
	log.Info("raw technical score computed", zap.Float64("raw_score", raw.Total))

	result := e.adjuster.Adjust(f, raw, tier.Name)
	log.Info("evaluation adjusted",
		zap.Float64("final_score", result.FinalScore),
		zap.String("decision", string(result.Decision)),
	)

	report := &Report{
		Repository:  path,
		EvaluatedAt: e.now().UTC(),
		Challenge:   challenge,
		Facts:       f,
		Result:      result,
	}
	report.Narrative = e.narrate(ctx, req.Narrative, narrative.Input{
		Repository: path,
		Challenge:  challenge,
		Facts:      f,
		Result:     result,
	}, log)

	return report, nil
}

func (e *Evaluator) narrate(ctx context.Context, wanted bool, in narrative.Input, log *zap.Logger) *narrative.Report {
	if !wanted || e.narrator == nil {
		return narrative.Explain(in)
	}

	log.Info("generating narrative")
	rep, err := e.narrator.Narrate(ctx, in)
	if err != nil {
		log.Warn("narrative generation failed, using rule-based narrative", zap.Error(err))
		return narrative.Explain(in)
	}
	return rep
}
