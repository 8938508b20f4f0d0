package scan

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/classify"
	"github.com/spigell/repograde/internal/facts"
)

var testDirNames = map[string]struct{}{
	"tests":     {},
	"test":      {},
	"__tests__": {},
}

var excludedTestPaths = []string{"node_modules", "__pycache__"}

// fallbackTestPatterns apply to file names when no test directory exists.
var fallbackTestPatterns = []string{"*test*.py", "*spec*.js", "*test*.js", "*test*.ts"}

var coverageArtifacts = []string{".coverage", "coverage.xml", "coverage.json", "lcov.info"}

func (s *Scanner) testing(t *tree, deps facts.DependencyManifest, logger *zap.Logger) facts.Testing {
	var testDirs []string
	for _, d := range t.dirs {
		if excludedPath(d) {
			continue
		}
		if _, ok := testDirNames[strings.ToLower(path.Base(d))]; ok {
			testDirs = append(testDirs, d)
		}
	}

	var files []string
	if len(testDirs) > 0 {
		for _, e := range t.files {
			if excludedPath(e.rel) || !underAny(e.rel, testDirs) || !classify.IsLineCounted(e.rel) {
				continue
			}
			name := base(e.rel)
			if strings.Contains(name, "test") || strings.Contains(name, "spec") {
				files = append(files, e.rel)
			}
		}
	} else {
		for _, e := range t.files {
			if excludedPath(e.rel) {
				continue
			}
			name := base(e.rel)
			for _, pattern := range fallbackTestPatterns {
				if ok, _ := path.Match(pattern, name); ok {
					files = append(files, e.rel)
					break
				}
			}
		}
	}
	files = unique(files)

	var frameworks []string
	for i, rel := range files {
		if i >= maxFrameworkProbes {
			break
		}
		data, err := s.read(t.abs(rel))
		if err != nil {
			logger.Debug("skipping unreadable test file", zap.String("path", rel), zap.Error(err))
			continue
		}
		lower := strings.ToLower(string(data))
		for _, fw := range s.keywords.TestFrameworks {
			if strings.Contains(lower, fw) {
				frameworks = append(frameworks, fw)
			}
		}
	}
	for _, fw := range s.keywords.TestFrameworks {
		for _, dep := range append(append([]string{}, deps.Python...), deps.JavaScript...) {
			if strings.EqualFold(dep, fw) {
				frameworks = append(frameworks, fw)
			}
		}
	}

	return facts.Testing{
		HasTests:            len(files) > 0,
		Files:               files,
		Frameworks:          unique(frameworks),
		HasCoverage:         s.hasCoverage(t),
		HasDedicatedTestDir: len(testDirs) > 0,
	}
}

func (s *Scanner) hasCoverage(t *tree) bool {
	for _, name := range coverageArtifacts {
		if s.exists(t.abs(name)) {
			return true
		}
	}
	for _, e := range t.files {
		name := base(e.rel)
		for _, artifact := range coverageArtifacts {
			if name == artifact {
				return true
			}
		}
	}
	return false
}

func excludedPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		for _, ex := range excludedTestPaths {
			if part == ex {
				return true
			}
		}
	}
	return false
}

func underAny(rel string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
