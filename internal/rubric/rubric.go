// Package rubric holds the static, versioned tables that drive scoring:
// experience tiers, challenges and their categories, penalty and reward
// rules, decision bands and the keyword lists used while scanning.
package rubric

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaults []byte

type Rubric struct {
	Version          int                 `yaml:"version"`
	DefaultTier      string              `yaml:"default_tier"`
	DefaultChallenge string              `yaml:"default_challenge"`
	Tiers            []Tier              `yaml:"tiers"`
	BaseCategories   []Category          `yaml:"base_categories"`
	Challenges       []Challenge         `yaml:"challenges"`
	Penalties        []Rule              `yaml:"penalties"`
	Rewards          []Rule              `yaml:"rewards"`
	Recommendations  Bands               `yaml:"recommendations"`
	Assessments      Bands               `yaml:"assessments"`
	Guidance         map[string]Guidance `yaml:"guidance"`
	Keywords         Keywords            `yaml:"keywords"`
}

// Tier is an experience profile. Tiers are listed from least to most
// experienced.
type Tier struct {
	Name          string          `yaml:"name" json:"name"`
	Label         string          `yaml:"label" json:"label"`
	Multiplier    float64         `yaml:"multiplier" json:"multiplier"`
	ExpectedScore float64         `yaml:"expected_score" json:"expected_score"`
	ScoreRange    string          `yaml:"score_range" json:"score_range"`
	Strictness    float64         `yaml:"strictness" json:"strictness"`
	PenaltyWeight float64         `yaml:"penalty_weight" json:"penalty_weight"`
	RewardWeight  float64         `yaml:"reward_weight" json:"reward_weight"`
	Decision      DecisionOffsets `yaml:"decision" json:"decision"`
	Guidance      string          `yaml:"guidance" json:"guidance"`
	Expectations  []string        `yaml:"expectations" json:"expectations"`
}

// DecisionOffsets are added to a tier's expected score to get the minimum
// final score for each hiring decision.
type DecisionOffsets struct {
	StrongHire float64 `yaml:"strong_hire" json:"strong_hire"`
	Hire       float64 `yaml:"hire" json:"hire"`
	Borderline float64 `yaml:"borderline" json:"borderline"`
}

type Category struct {
	Name string  `yaml:"name" json:"name"`
	Cap  float64 `yaml:"cap" json:"cap"`
}

type Challenge struct {
	ID           string     `yaml:"id" json:"id"`
	Title        string     `yaml:"title" json:"title"`
	Family       string     `yaml:"family" json:"family"`
	RequiredTech []string   `yaml:"required_tech" json:"required_tech"`
	Categories   []Category `yaml:"categories" json:"categories"`
}

// Rule is one row of a penalty or reward table. Empty Tiers or Challenges
// match everything. PointsByTier overrides Points for the listed tiers.
type Rule struct {
	ID           string             `yaml:"id"`
	Tiers        []string           `yaml:"tiers"`
	Challenges   []string           `yaml:"challenges"`
	When         string             `yaml:"when"`
	Threshold    float64            `yaml:"threshold"`
	Points       float64            `yaml:"points"`
	PointsByTier map[string]float64 `yaml:"points_by_tier"`
	Reason       string             `yaml:"reason"`
}

// Applies reports whether the rule is in scope for the tier and challenge.
func (r Rule) Applies(tier, challenge string) bool {
	return (len(r.Tiers) == 0 || contains(r.Tiers, tier)) &&
		(len(r.Challenges) == 0 || contains(r.Challenges, challenge))
}

// PointsFor returns the rule's point value for the tier.
func (r Rule) PointsFor(tier string) float64 {
	if p, ok := r.PointsByTier[tier]; ok {
		return p
	}
	return r.Points
}

// Bands is an ordered list of gap thresholds evaluated top-down.
type Bands struct {
	Bands    []Band `yaml:"bands"`
	Fallback string `yaml:"fallback"`
}

type Band struct {
	MinGap    float64 `yaml:"min_gap"`
	Exclusive bool    `yaml:"exclusive"`
	Text      string  `yaml:"text"`
}

// Pick returns the text of the first band the gap satisfies.
func (b Bands) Pick(gap float64) string {
	for _, band := range b.Bands {
		if gap > band.MinGap || (!band.Exclusive && gap == band.MinGap) {
			return band.Text
		}
	}
	return b.Fallback
}

type Guidance struct {
	Title string   `yaml:"title"`
	Items []string `yaml:"items"`
}

type Keywords struct {
	ReadmeMaxScore  int             `yaml:"readme_max_score"`
	ReadmeSections  []Section       `yaml:"readme_sections"`
	KeyDirectories  []DirectoryRole `yaml:"key_directories"`
	AILibraries     []string        `yaml:"ai_libraries"`
	WebFrameworks   []string        `yaml:"web_frameworks"`
	ETLPatterns     []string        `yaml:"etl_patterns"`
	TestFrameworks  []string        `yaml:"test_frameworks"`
	StaticDirs      []string        `yaml:"static_dirs"`
	TemplateDirs    []string        `yaml:"template_dirs"`
	ModelExtensions []string        `yaml:"model_extensions"`
}

type Section struct {
	Name     string   `yaml:"name"`
	Weight   int      `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

type DirectoryRole struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Default returns the embedded rubric.
func Default() (*Rubric, error) {
	return Parse(defaults)
}

// Load reads a rubric from path. An empty path yields the embedded rubric.
func Load(path string) (*Rubric, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rubric %q: %w", path, err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rubric %q: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a YAML rubric. Unknown keys are rejected.
func Parse(data []byte) (*Rubric, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var r Rubric
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the internal consistency of the tables.
func (r *Rubric) Validate() error {
	if len(r.Tiers) == 0 {
		return errors.New("rubric defines no tiers")
	}

	seen := make(map[string]struct{}, len(r.Tiers))
	for _, t := range r.Tiers {
		if t.Name == "" {
			return errors.New("tier without a name")
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("duplicate tier %q", t.Name)
		}
		seen[t.Name] = struct{}{}

		if t.Multiplier <= 0 || t.Multiplier > 1 {
			return fmt.Errorf("tier %q: multiplier %v must be in (0, 1]", t.Name, t.Multiplier)
		}
		if t.ExpectedScore < 0 || t.ExpectedScore > 100 {
			return fmt.Errorf("tier %q: expected score %v must be in [0, 100]", t.Name, t.ExpectedScore)
		}
		if t.Decision.StrongHire < t.Decision.Hire || t.Decision.Hire < t.Decision.Borderline {
			return fmt.Errorf("tier %q: decision offsets must be ordered strong_hire >= hire >= borderline", t.Name)
		}
	}

	if _, ok := seen[r.DefaultTier]; !ok {
		return fmt.Errorf("default tier %q is not defined", r.DefaultTier)
	}

	challenges := make(map[string]struct{}, len(r.Challenges))
	for _, c := range r.Challenges {
		if _, dup := challenges[c.ID]; dup {
			return fmt.Errorf("duplicate challenge %q", c.ID)
		}
		challenges[c.ID] = struct{}{}
		for _, cat := range c.Categories {
			if cat.Cap <= 0 {
				return fmt.Errorf("challenge %q: category %q needs a positive cap", c.ID, cat.Name)
			}
		}
	}
	if _, ok := challenges[r.DefaultChallenge]; !ok {
		return fmt.Errorf("default challenge %q is not defined", r.DefaultChallenge)
	}

	for _, cat := range r.BaseCategories {
		if cat.Cap <= 0 {
			return fmt.Errorf("category %q needs a positive cap", cat.Name)
		}
	}

	for _, rule := range append(append([]Rule{}, r.Penalties...), r.Rewards...) {
		if rule.When == "" {
			return fmt.Errorf("rule %q has no condition", rule.ID)
		}
		for _, tier := range rule.Tiers {
			if _, ok := seen[tier]; !ok {
				return fmt.Errorf("rule %q references unknown tier %q", rule.ID, tier)
			}
		}
	}

	if r.Keywords.ReadmeMaxScore <= 0 {
		return errors.New("keywords.readme_max_score must be positive")
	}

	return nil
}

// Tier returns the named tier. Unknown names resolve to the default tier and
// false.
func (r *Rubric) Tier(name string) (Tier, bool) {
	name = strings.TrimSpace(name)
	for _, t := range r.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	t, _ := r.tier(r.DefaultTier)
	return t, false
}

func (r *Rubric) tier(name string) (Tier, bool) {
	for _, t := range r.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// TierNames lists tier names from least to most experienced.
func (r *Rubric) TierNames() []string {
	names := make([]string, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		names = append(names, t.Name)
	}
	return names
}

// Challenge returns the challenge with the given id. Unknown ids resolve to
// the default challenge and false.
func (r *Rubric) Challenge(id string) (Challenge, bool) {
	id = strings.TrimSpace(id)
	for _, c := range r.Challenges {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range r.Challenges {
		if c.ID == r.DefaultChallenge {
			return c, false
		}
	}
	return Challenge{ID: r.DefaultChallenge}, false
}

// Categories returns the scored categories for a challenge: the base
// categories followed by the challenge's own.
func (r *Rubric) Categories(c Challenge) []Category {
	out := make([]Category, 0, len(r.BaseCategories)+len(c.Categories))
	out = append(out, r.BaseCategories...)
	return append(out, c.Categories...)
}

// MaxScore returns the sum of category caps for a challenge.
func (r *Rubric) MaxScore(c Challenge) float64 {
	var total float64
	for _, cat := range r.Categories(c) {
		total += cat.Cap
	}
	return total
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
