// Package score converts repository facts into the raw technical score.
//
// A challenge selects a list of categories from the rubric; each category
// names a rule function and carries its cap. One generic scorer interprets
// that list, so adding a challenge is a rubric change only.
package score

import (
	"fmt"

	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/rubric"
)

const maxScore = 100

// Rule computes the uncapped points of one category.
type Rule func(f facts.RepositoryFacts) float64

var rules = map[string]Rule{
	"code_quality":       codeQuality,
	"architecture":       architecture,
	"documentation":      documentation,
	"testing":            testingScore,
	"production":         production,
	"ai_agents":          aiAgents,
	"healthcare_ai":      healthcareAI,
	"data_pipeline":      dataPipeline,
	"web_platform":       webPlatform,
	"repository_hygiene": repositoryHygiene,
}

// Category is the scored result of one category.
type Category struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Cap   float64 `json:"cap"`
}

// Result is the raw technical score with its per-category detail.
type Result struct {
	Challenge  string     `json:"challenge"`
	Categories []Category `json:"categories"`
	Total      float64    `json:"total"`
}

// Category returns the named category score, or zero when absent.
func (r Result) Category(name string) float64 {
	for _, c := range r.Categories {
		if c.Name == name {
			return c.Score
		}
	}
	return 0
}

type Scorer struct {
	rubric *rubric.Rubric
}

// New returns a Scorer for the rubric. Every category the rubric names must
// have a rule.
func New(r *rubric.Rubric) (*Scorer, error) {
	if r == nil {
		return nil, fmt.Errorf("rubric is required")
	}
	for _, c := range r.BaseCategories {
		if _, ok := rules[c.Name]; !ok {
			return nil, fmt.Errorf("no scoring rule for category %q", c.Name)
		}
	}
	for _, ch := range r.Challenges {
		for _, c := range ch.Categories {
			if _, ok := rules[c.Name]; !ok {
				return nil, fmt.Errorf("challenge %q: no scoring rule for category %q", ch.ID, c.Name)
			}
		}
	}
	return &Scorer{rubric: r}, nil
}

// Score computes the raw score of f for a challenge. Unknown challenges use
// the rubric's default. Facts of an unreadable repository score zero.
func (s *Scorer) Score(f facts.RepositoryFacts, challengeID string) Result {
	challenge, _ := s.rubric.Challenge(challengeID)
	res := Result{Challenge: challenge.ID}

	var total float64
	for _, c := range s.rubric.Categories(challenge) {
		points := 0.0
		if !f.Failed() {
			points = clamp(rules[c.Name](f), 0, c.Cap)
		}
		res.Categories = append(res.Categories, Category{Name: c.Name, Score: points, Cap: c.Cap})
		total += points
	}

	res.Total = clamp(total, 0, maxScore)
	return res
}

// Categories returns the rule names known to the scorer.
func Categories() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	return names
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
