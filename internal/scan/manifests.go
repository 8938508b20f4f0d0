package scan

import (
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/repograde/internal/facts"
)

var (
	requirementNameRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)
	installRequiresRe = regexp.MustCompile(`(?s)install_requires\s*=\s*\[(.*?)\]`)
	quotedRe          = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

var versionOperators = []string{"==", ">=", "<=", "~="}

// manifestParsers maps root-level manifest names to their parsers. Nil
// parsers only record that the file exists.
var manifestParsers = map[string]func([]byte) (python, javascript []string, err error){
	"requirements.txt":  parseRequirements,
	"pyproject.toml":    parsePyproject,
	"setup.py":          parseSetupPy,
	"pipfile":           parsePipfile,
	"setup.cfg":         nil,
	"package.json":      parsePackageJSON,
	"yarn.lock":         nil,
	"package-lock.json": nil,
}

type pyprojectDoc struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type pipfileDoc struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

type composeDoc struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

func (s *Scanner) dependencies(t *tree, logger *zap.Logger) facts.DependencyManifest {
	var py, js, images, found []string

	for _, e := range t.rootFiles() {
		parse, known := manifestParsers[base(e.rel)]
		if !known {
			continue
		}
		found = append(found, e.rel)
		if parse == nil {
			continue
		}

		data, err := s.read(t.abs(e.rel))
		if err != nil {
			logger.Debug("skipping unreadable manifest", zap.String("path", e.rel), zap.Error(err))
			continue
		}

		p, j, err := parse(data)
		if err != nil {
			logger.Debug("skipping malformed manifest", zap.String("path", e.rel), zap.Error(err))
			continue
		}
		py = append(py, p...)
		js = append(js, j...)
	}

	for _, rel := range dockerfiles(t) {
		data, err := s.read(t.abs(rel))
		if err != nil {
			continue
		}
		images = append(images, analyzeDockerfile(data).images...)
	}

	for _, rel := range composeFiles(t) {
		data, err := s.read(t.abs(rel))
		if err != nil {
			continue
		}
		imgs, err := parseCompose(data)
		if err != nil {
			logger.Debug("skipping malformed compose file", zap.String("path", rel), zap.Error(err))
			continue
		}
		images = append(images, imgs...)
	}

	return facts.DependencyManifest{
		Python:     unique(py),
		JavaScript: unique(js),
		Images:     unique(images),
		Files:      unique(found),
	}
}

// requirementName strips version specifiers, extras and markers from a
// requirement and returns the lowercased package name.
func requirementName(spec string) string {
	spec = strings.TrimSpace(spec)
	for _, op := range versionOperators {
		if idx := strings.Index(spec, op); idx >= 0 {
			spec = spec[:idx]
		}
	}
	m := requirementNameRe.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func parseRequirements(data []byte) ([]string, []string, error) {
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name := requirementName(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil, nil
}

func parsePyproject(data []byte) ([]string, []string, error) {
	var doc pyprojectDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	var names []string
	for _, dep := range doc.Project.Dependencies {
		if name := requirementName(dep); name != "" {
			names = append(names, name)
		}
	}
	for _, deps := range []map[string]any{doc.Tool.Poetry.Dependencies, doc.Tool.Poetry.DevDependencies} {
		for name := range deps {
			if strings.EqualFold(name, "python") {
				continue
			}
			names = append(names, strings.ToLower(name))
		}
	}
	return names, nil, nil
}

func parsePipfile(data []byte) ([]string, []string, error) {
	var doc pipfileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	var names []string
	for _, deps := range []map[string]any{doc.Packages, doc.DevPackages} {
		for name := range deps {
			names = append(names, strings.ToLower(name))
		}
	}
	return names, nil, nil
}

func parseSetupPy(data []byte) ([]string, []string, error) {
	m := installRequiresRe.FindSubmatch(data)
	if m == nil {
		return nil, nil, nil
	}

	var names []string
	for _, q := range quotedRe.FindAllSubmatch(m[1], -1) {
		if name := requirementName(string(q[1])); name != "" {
			names = append(names, name)
		}
	}
	return names, nil, nil
}

func parsePackageJSON(data []byte) ([]string, []string, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, errMalformedJSON
	}

	var names []string
	for _, key := range []string{"dependencies", "devDependencies"} {
		gjson.GetBytes(data, key).ForEach(func(k, _ gjson.Result) bool {
			names = append(names, k.String())
			return true
		})
	}
	return nil, names, nil
}

func parseCompose(data []byte) ([]string, error) {
	var doc composeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var images []string
	for _, svc := range doc.Services {
		if svc.Image != "" {
			images = append(images, svc.Image)
		}
	}
	return images, nil
}
