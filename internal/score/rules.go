package score

import (
	"github.com/spigell/repograde/internal/facts"
)

const smallFileKB = 100

// tier is one row of a tiered rule table.
type tier struct {
	when   bool
	points float64
}

// firstMatch returns the points of the first matching row. Rows are
// evaluated top-down and later rows never add to earlier ones.
func firstMatch(rows ...tier) float64 {
	for _, r := range rows {
		if r.when {
			return r.points
		}
	}
	return 0
}

func award(cond bool, points float64) float64 {
	if cond {
		return points
	}
	return 0
}

func codeQuality(f facts.RepositoryFacts) float64 {
	py := f.Python
	score := firstMatch(
		tier{py.Functions >= 10 && py.Classes >= 3, 8},
		tier{py.Functions >= 5 && py.Classes >= 2, 5},
		tier{py.Functions >= 2, 3},
	)
	score += award(py.HasTypeHints, 2)
	score += award(py.HasDocstrings, 2)
	score += award(py.HasDecorators, 1)

	score += award(f.Quality.HasErrorHandling, 4)
	score += award(f.Quality.HasLogging, 2)
	score += award(f.Quality.HasComments, 1)
	return score
}

func architecture(f facts.RepositoryFacts) float64 {
	st := f.Structure
	score := award(st.HasDirectory("src") || st.HasDirectory("app"), 4)
	score += award(st.HasDirectory("tests") || st.HasDirectory("test"), 2)
	score += award(st.HasDirectory("config") || st.HasDirectory("configuration"), 1)
	score += award(st.HasDirectory("docs") || st.HasDirectory("documentation"), 1)

	if n := f.Files.CodeFileCount; n > 0 {
		score += firstMatch(
			tier{n >= 10, 4},
			tier{n >= 5, 2},
			tier{n >= 2, 1},
		)

		small := len(f.Files.Largest) > 0
		for _, file := range f.Files.Largest {
			if file.SizeKB >= smallFileKB {
				small = false
			}
		}
		score += award(small, 2)
	}

	score += min(float64(len(st.ArchitecturePatterns))*2, 6)
	return score
}

func documentation(f facts.RepositoryFacts) float64 {
	docs := f.Documentation
	score := 0.0

	if docs.Readme.Exists {
		score += 3
		score += min(float64(docs.Readme.QualityScore), 5)
		score += award(docs.Readme.Section("installation"), 1)
		score += award(docs.Readme.Section("usage"), 1)
	}

	score += award(len(docs.APIDocs) > 0, 2)
	score += award(len(docs.ArchitectureDocs) > 0, 2)
	score += award(docs.HasExamples, 3)
	return score
}

func testingScore(f facts.RepositoryFacts) float64 {
	t := f.Testing
	score := 0.0

	if t.HasTests {
		score += 3
		n := len(t.Files)
		score += firstMatch(
			tier{n >= 5, 2},
			tier{n >= 2, 1},
		)
	}

	score += min(float64(len(t.Frameworks))*2, 4)
	score += award(t.HasDedicatedTestDir, 2)
	score += award(t.HasCoverage, 2)
	score += award(f.CICD.RunsTests, 2)
	return score
}

func production(f facts.RepositoryFacts) float64 {
	c := f.Container
	score := 0.0

	if c.HasDockerfile {
		score += 3
		if d := c.Dockerfile; d != nil {
			score += award(d.MultiStage, 1)
			score += award(d.HasHealthcheck, 1)
			score += award(d.HasOptimizations, 1)
		}
	}
	score += award(c.HasCompose, 1)

	if ci := f.CICD; ci.HasCI {
		score += 2
		score += award(len(ci.Files) >= 2, 1)
		score += award(len(ci.Platforms) >= 2, 1)
	}

	score += award(len(f.Configuration.Files) > 0, 2)
	score += award(f.Dependencies.Any(), 2)
	score += award(f.Configuration.HasEnv, 1)
	return score
}

func aiAgents(f facts.RepositoryFacts) float64 {
	ai := f.Challenge.AIML
	score := 0.0
	if ai.HasAIML {
		score += 4
		score += min(float64(len(ai.Libraries)), 3)
	}
	score += award(len(ai.ModelFiles) > 0, 2)
	score += award(len(ai.Notebooks) > 0, 1)
	return score
}

func healthcareAI(f facts.RepositoryFacts) float64 {
	ai, web := f.Challenge.AIML.HasAIML, f.Challenge.Web.HasWebApp
	return award(ai, 3) + award(web, 3) + award(ai && web, 4)
}

func dataPipeline(f facts.RepositoryFacts) float64 {
	data := f.Challenge.DataPipeline
	if !data.HasDataPipeline {
		return 0
	}
	return 6 + min(float64(len(data.ETLFiles)), 4)
}

func webPlatform(f facts.RepositoryFacts) float64 {
	web := f.Challenge.Web
	if !web.HasWebApp {
		return 0
	}
	score := 5 + min(float64(len(web.Frameworks)), 3)
	score += award(len(web.StaticDirs) > 0 && len(web.TemplateDirs) > 0, 2)
	return score
}

func repositoryHygiene(f facts.RepositoryFacts) float64 {
	return award(f.Metadata.HasGitignore, 3) +
		award(f.Metadata.HasLicense, 3) +
		award(f.Dependencies.Any(), 2) +
		award(f.Quality.HasComments, 2)
}
