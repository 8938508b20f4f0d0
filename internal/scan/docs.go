package scan

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/facts"
)

// documentation inspects the first root README and the doc files around it.
func (s *Scanner) documentation(t *tree, logger *zap.Logger) facts.Documentation {
	docs := facts.Documentation{
		Readme: facts.Readme{Sections: map[string]bool{}},
	}

	for _, e := range t.files {
		name := base(e.rel)
		switch {
		case name == "api.md" || strings.HasPrefix(strings.ToLower(e.rel), "docs/api") ||
			strings.Contains(name, "swagger") || strings.Contains(name, "openapi"):
			docs.APIDocs = append(docs.APIDocs, e.rel)
		case name == "architecture.md" || name == "design.md" || strings.HasPrefix(strings.ToLower(e.rel), "docs/arch"):
			docs.ArchitectureDocs = append(docs.ArchitectureDocs, e.rel)
		}
	}

	readme := ""
	for _, e := range t.rootFiles() {
		if strings.HasPrefix(strings.ToUpper(e.rel), "README") {
			readme = e.rel
			break
		}
	}
	if readme == "" {
		return docs
	}

	docs.Readme.Exists = true
	docs.Readme.Path = readme

	data, err := s.read(t.abs(readme))
	if err != nil {
		logger.Debug("skipping unreadable README", zap.String("path", readme), zap.Error(err))
		return docs
	}

	content := string(data)
	lower := strings.ToLower(content)

	score := 0
	for _, section := range s.keywords.ReadmeSections {
		found := false
		for _, kw := range section.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		docs.Readme.Sections[section.Name] = found
		if found {
			score += section.Weight
		}
	}
	docs.Readme.QualityScore = min(score, s.keywords.ReadmeMaxScore)

	if docs.Readme.Section("installation") {
		switch {
		case strings.Contains(content, "`"):
			docs.SetupInstructionLevel = 2
		case strings.Contains(lower, "pip install") || strings.Contains(lower, "npm install"):
			docs.SetupInstructionLevel = 1
		}
	}

	if docs.Readme.Section("usage") {
		docs.HasExamples = true
		docs.ExampleBlocks = strings.Count(content, "```") / 2
	}

	return docs
}

var configPrefixes = []string{"config.", "settings."}

var configSuffixes = []string{".cfg", ".ini"}

// configuration lists the first configuration files found and whether a root
// .env exists.
func (s *Scanner) configuration(t *tree) facts.Configuration {
	var files []string
	hasEnv := s.exists(t.abs(".env"))
	if hasEnv {
		files = append(files, ".env")
	}

	for _, e := range t.files {
		if len(files) >= maxConfigFiles {
			break
		}
		name := base(e.rel)
		if hasAnyPrefix(name, configPrefixes) || hasAnySuffix(name, configSuffixes) {
			files = append(files, e.rel)
		}
	}

	return facts.Configuration{Files: files, HasEnv: hasEnv}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}

func ext(rel string) string {
	return strings.ToLower(path.Ext(rel))
}
