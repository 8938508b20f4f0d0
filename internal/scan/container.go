package scan

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/repograde/internal/facts"
)

var dockerOptimizations = []string{"--no-cache", "--no-install-recommends", "alpine", "slim", "rm -rf /var/lib/apt/lists"}

type ciSource struct {
	pattern string
	yaml    bool
}

// ciSources are globs relative to the repository root. Most live under
// hidden paths, so they are probed directly instead of through the walk.
var ciSources = []ciSource{
	{pattern: ".github/workflows/*.yml", yaml: true},
	{pattern: ".github/workflows/*.yaml", yaml: true},
	{pattern: ".gitlab-ci.yml", yaml: true},
	{pattern: ".travis.yml", yaml: true},
	{pattern: "circle.yml", yaml: true},
	{pattern: ".circleci/config.yml", yaml: true},
	{pattern: "Jenkinsfile"},
	{pattern: "azure-pipelines.yml", yaml: true},
	{pattern: "bitbucket-pipelines.yml", yaml: true},
}

var ciPlatforms = []struct {
	marker   string
	platform string
}{
	{"github", "GitHub Actions"},
	{"gitlab", "GitLab CI"},
	{"travis", "Travis CI"},
	{"circle", "CircleCI"},
	{"jenkins", "Jenkins"},
	{"azure", "Azure Pipelines"},
	{"bitbucket", "Bitbucket Pipelines"},
}

var testCommands = []string{"pytest", "npm test", "npm run test", "yarn test", "go test", "jest", "unittest", "tox", "make test", "mvn test", "gradle test"}

type dockerfileInfo struct {
	images           []string
	stages           int
	hasHealthcheck   bool
	hasNonRootUser   bool
	hasOptimizations bool
}

func isDockerfile(rel string) bool {
	name := base(rel)
	return strings.HasPrefix(name, "dockerfile") || strings.HasSuffix(name, ".dockerfile")
}

func isComposeFile(rel string) bool {
	name := base(rel)
	return strings.HasPrefix(name, "docker-compose") || name == "compose.yml" || name == "compose.yaml"
}

// dockerfiles returns Dockerfile paths, the root "Dockerfile" first.
func dockerfiles(t *tree) []string {
	var root, rest []string
	for _, e := range t.files {
		if !isDockerfile(e.rel) {
			continue
		}
		if e.rel == "Dockerfile" {
			root = append(root, e.rel)
			continue
		}
		rest = append(rest, e.rel)
	}
	return append(root, rest...)
}

func composeFiles(t *tree) []string {
	var out []string
	for _, e := range t.files {
		if isComposeFile(e.rel) {
			out = append(out, e.rel)
		}
	}
	return out
}

func (s *Scanner) container(t *tree, logger *zap.Logger) facts.Container {
	c := facts.Container{
		Dockerfiles:  dockerfiles(t),
		ComposeFiles: composeFiles(t),
	}
	c.HasDockerfile = len(c.Dockerfiles) > 0
	c.HasCompose = len(c.ComposeFiles) > 0

	if !c.HasDockerfile {
		return c
	}

	data, err := s.read(t.abs(c.Dockerfiles[0]))
	if err != nil {
		logger.Debug("skipping unreadable Dockerfile", zap.String("path", c.Dockerfiles[0]), zap.Error(err))
		return c
	}

	info := analyzeDockerfile(data)
	c.Dockerfile = &facts.DockerfileAnalysis{
		Stages:           info.stages,
		MultiStage:       info.stages > 1,
		HasHealthcheck:   info.hasHealthcheck,
		HasNonRootUser:   info.hasNonRootUser,
		HasOptimizations: info.hasOptimizations,
	}
	return c
}

func analyzeDockerfile(data []byte) dockerfileInfo {
	var info dockerfileInfo
	aliases := map[string]struct{}{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxReadBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "FROM":
			info.stages++
			args := fields[1:]
			for len(args) > 0 && strings.HasPrefix(args[0], "--") {
				args = args[1:]
			}
			if len(args) == 0 {
				continue
			}
			image := args[0]
			if _, isStage := aliases[strings.ToLower(image)]; !isStage {
				info.images = append(info.images, image)
			}
			if len(args) >= 3 && strings.EqualFold(args[1], "as") {
				aliases[strings.ToLower(args[2])] = struct{}{}
			}
		case "HEALTHCHECK":
			if len(fields) < 2 || !strings.EqualFold(fields[1], "none") {
				info.hasHealthcheck = true
			}
		case "USER":
			if len(fields) > 1 {
				user := strings.SplitN(fields[1], ":", 2)[0]
				if user != "root" && user != "0" {
					info.hasNonRootUser = true
				}
			}
		}
	}

	lower := strings.ToLower(string(data))
	for _, marker := range dockerOptimizations {
		if strings.Contains(lower, marker) {
			info.hasOptimizations = true
			break
		}
	}

	return info
}

func (s *Scanner) cicd(t *tree, logger *zap.Logger) facts.CICD {
	var files, platforms []string
	runsTests := false

	for _, src := range ciSources {
		matches, err := s.glob(t.abs(src.pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(t.root, m)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			files = append(files, rel)
			if p := platformFor(rel); p != "" {
				platforms = append(platforms, p)
			}

			data, err := s.read(m)
			if err != nil {
				logger.Debug("skipping unreadable CI file", zap.String("path", rel), zap.Error(err))
				continue
			}
			if ciRunsTests(data, src.yaml) {
				runsTests = true
			}
		}
	}

	files = unique(files)
	return facts.CICD{
		HasCI:     len(files) > 0,
		Files:     files,
		Platforms: unique(platforms),
		RunsTests: runsTests,
	}
}

func platformFor(rel string) string {
	lower := strings.ToLower(rel)
	for _, p := range ciPlatforms {
		if strings.Contains(lower, p.marker) {
			return p.platform
		}
	}
	return ""
}

// ciRunsTests reports whether a CI definition invokes a test command. YAML
// definitions are decoded and every string scalar is checked; other formats
// are matched as plain text.
func ciRunsTests(data []byte, isYAML bool) bool {
	if !isYAML {
		return containsTestCommand(string(data))
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	return walkStrings(doc, containsTestCommand)
}

func walkStrings(v any, match func(string) bool) bool {
	switch val := v.(type) {
	case string:
		return match(val)
	case []any:
		for _, item := range val {
			if walkStrings(item, match) {
				return true
			}
		}
	case map[string]any:
		for _, item := range val {
			if walkStrings(item, match) {
				return true
			}
		}
	}
	return false
}

func containsTestCommand(s string) bool {
	lower := strings.ToLower(s)
	for _, cmd := range testCommands {
		if strings.Contains(lower, cmd) {
			return true
		}
	}
	return false
}

func (s *Scanner) glob(pattern string) ([]string, error) {
	matches, err := afero.Glob(s.fs, pattern)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if info, err := s.fs.Stat(m); err == nil && !info.IsDir() {
			out = append(out, m)
		}
	}
	return out, nil
}
