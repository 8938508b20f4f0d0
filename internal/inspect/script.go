package inspect

import (
	"regexp"
	"strings"

	"github.com/spigell/repograde/internal/classify"
)

var (
	importFromRe = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w*${}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)
	requireRe    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	functionRe   = regexp.MustCompile(`function\s*\*?\s+([A-Za-z_$][\w$]*)\s*\(`)
	classRe      = regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_$][\w$]*)`)
	tryCatchRe   = regexp.MustCompile(`\b(try|catch)\b`)
	commentRe    = regexp.MustCompile(`(?m)^\s*(//|/\*)`)
)

var typeAnnotations = []string{": string", ": number", ": boolean", "interface "}

// Script summarizes JavaScript or TypeScript content with pattern matching.
func Script(kind classify.Kind, content []byte) Parse {
	text := string(content)
	summary := Summary{Language: kind}

	var imports []string
	for _, m := range importFromRe.FindAllStringSubmatch(text, -1) {
		imports = append(imports, m[1])
	}
	for _, m := range requireRe.FindAllStringSubmatch(text, -1) {
		imports = append(imports, m[1])
	}
	summary.Imports = dedupe(imports)

	for _, m := range functionRe.FindAllStringSubmatch(text, -1) {
		summary.Functions = append(summary.Functions, Function{Name: m[1]})
	}
	for _, m := range classRe.FindAllStringSubmatch(text, -1) {
		summary.Classes = append(summary.Classes, Class{Name: m[1]})
	}

	summary.HasErrorHandling = tryCatchRe.MatchString(text)
	summary.HasLogging = strings.Contains(text, "console.") || strings.Contains(text, "logger.")
	summary.HasComments = commentRe.MatchString(text)
	for _, marker := range typeAnnotations {
		if strings.Contains(text, marker) {
			summary.HasTypeHints = true
			break
		}
	}

	return Parse{Mode: Heuristic, Summary: summary}
}
