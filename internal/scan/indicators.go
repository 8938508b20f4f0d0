package scan

import (
	"strings"

	"github.com/spigell/repograde/internal/classify"
	"github.com/spigell/repograde/internal/facts"
)

// indicators derives challenge-specific signals from dependency names, file
// names and the sampled source files.
func (s *Scanner) indicators(t *tree, deps facts.DependencyManifest, results []fileResult) facts.ChallengeIndicators {
	var pySamples, allSamples []string
	for i, e := range t.files {
		if results[i].sample == "" {
			continue
		}
		allSamples = append(allSamples, results[i].sample)
		if e.kind == classify.Python {
			pySamples = append(pySamples, results[i].sample)
		}
	}

	ind := facts.ChallengeIndicators{}

	ind.AIML.Libraries = matchNames(s.keywords.AILibraries, deps.Python, pySamples)
	for _, e := range t.files {
		switch {
		case ext(e.rel) == ".ipynb":
			ind.AIML.Notebooks = append(ind.AIML.Notebooks, e.rel)
		case containsString(s.keywords.ModelExtensions, ext(e.rel)):
			ind.AIML.ModelFiles = append(ind.AIML.ModelFiles, e.rel)
		}
	}
	ind.AIML.HasAIML = len(ind.AIML.Libraries) > 0 || len(ind.AIML.Notebooks) > 0

	allDeps := append(append([]string{}, deps.Python...), deps.JavaScript...)
	ind.Web.Frameworks = matchNames(s.keywords.WebFrameworks, allDeps, allSamples)
	for _, d := range t.topDirs() {
		lower := strings.ToLower(d)
		if containsString(s.keywords.StaticDirs, lower) {
			ind.Web.StaticDirs = append(ind.Web.StaticDirs, d)
		}
		if containsString(s.keywords.TemplateDirs, lower) {
			ind.Web.TemplateDirs = append(ind.Web.TemplateDirs, d)
		}
	}
	ind.Web.HasWebApp = len(ind.Web.Frameworks) > 0 || len(ind.Web.StaticDirs) > 0 || len(ind.Web.TemplateDirs) > 0

	for _, e := range t.files {
		name := base(e.rel)
		lowerRel := strings.ToLower(e.rel)

		if classify.IsLineCounted(e.rel) {
			for _, pattern := range s.keywords.ETLPatterns {
				if strings.Contains(name, pattern) {
					ind.DataPipeline.ETLFiles = append(ind.DataPipeline.ETLFiles, e.rel)
					break
				}
			}
		}
		if ext(e.rel) == ".sql" || strings.HasPrefix(name, "schema.") || strings.HasPrefix(name, "migration") {
			ind.DataPipeline.DatabaseFiles = append(ind.DataPipeline.DatabaseFiles, e.rel)
		}
		if name == "dag.py" || name == "airflow.cfg" || strings.HasPrefix(lowerRel, "dags/") || strings.Contains(lowerRel, "/dags/") {
			ind.DataPipeline.AirflowFiles = append(ind.DataPipeline.AirflowFiles, e.rel)
		}
	}
	ind.DataPipeline.HasDataPipeline = len(ind.DataPipeline.ETLFiles) > 0 || len(ind.DataPipeline.AirflowFiles) > 0

	ind.AIML.Notebooks = unique(ind.AIML.Notebooks)
	ind.AIML.ModelFiles = unique(ind.AIML.ModelFiles)
	ind.Web.StaticDirs = unique(ind.Web.StaticDirs)
	ind.Web.TemplateDirs = unique(ind.Web.TemplateDirs)
	ind.DataPipeline.ETLFiles = unique(ind.DataPipeline.ETLFiles)
	ind.DataPipeline.DatabaseFiles = unique(ind.DataPipeline.DatabaseFiles)
	ind.DataPipeline.AirflowFiles = unique(ind.DataPipeline.AirflowFiles)

	return ind
}

// matchNames returns the candidates found as a substring of any dependency
// name or sampled file content.
func matchNames(candidates, deps, samples []string) []string {
	var found []string
	for _, c := range candidates {
		needle := strings.ToLower(c)
		if anyContains(deps, needle) || anyContains(samples, needle) {
			found = append(found, c)
		}
	}
	return unique(found)
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
