package adjust

import "github.com/spigell/repograde/internal/facts"

// Condition reports whether a penalty or reward rule fires for f.
type Condition func(f facts.RepositoryFacts, threshold float64) bool

var conditions = map[string]Condition{
	"missing_dockerfile": func(f facts.RepositoryFacts, _ float64) bool {
		return !f.Container.HasDockerfile
	},
	"missing_tests": func(f facts.RepositoryFacts, _ float64) bool {
		return !f.Testing.HasTests
	},
	"missing_ci": func(f facts.RepositoryFacts, _ float64) bool {
		return !f.CICD.HasCI
	},
	"missing_readme": func(f facts.RepositoryFacts, _ float64) bool {
		return !f.Documentation.Readme.Exists
	},
	"missing_ai_ml": func(f facts.RepositoryFacts, _ float64) bool {
		return !f.Challenge.AIML.HasAIML
	},
	"documentation_below": func(f facts.RepositoryFacts, threshold float64) bool {
		return float64(f.Documentation.Readme.QualityScore) < threshold
	},
	"documentation_at_least": func(f facts.RepositoryFacts, threshold float64) bool {
		return float64(f.Documentation.Readme.QualityScore) >= threshold
	},
	"has_tests": func(f facts.RepositoryFacts, _ float64) bool {
		return f.Testing.HasTests
	},
	"has_dockerfile": func(f facts.RepositoryFacts, _ float64) bool {
		return f.Container.HasDockerfile
	},
	"has_ci": func(f facts.RepositoryFacts, _ float64) bool {
		return f.CICD.HasCI
	},
	"source_and_tests_dirs": func(f facts.RepositoryFacts, _ float64) bool {
		return f.Structure.HasRole("source") && f.Structure.HasRole("tests")
	},
}
