// Package inspect extracts a structural summary from a single source file.
//
// Inspection never fails. Python sources are parsed into a syntax tree when
// possible and fall back to line heuristics otherwise; JavaScript and
// TypeScript are always inspected heuristically. The Mode of the returned
// Parse tells callers which path produced the summary.
package inspect

import (
	"sort"

	"github.com/spigell/repograde/internal/classify"
)

// Mode records how confidently a summary was produced.
type Mode int

const (
	// Heuristic summaries come from line and pattern matching.
	Heuristic Mode = iota
	// Structured summaries come from a full syntax tree walk.
	Structured
)

func (m Mode) String() string {
	if m == Structured {
		return "structured"
	}
	return "heuristic"
}

// Function describes one function definition.
type Function struct {
	Name          string `json:"name"`
	HasDocstring  bool   `json:"has_docstring"`
	HasReturnType bool   `json:"has_return_type"`
	HasDecorator  bool   `json:"has_decorator"`
}

// Class describes one class definition.
type Class struct {
	Name         string `json:"name"`
	HasDocstring bool   `json:"has_docstring"`
}

// Summary is the structural summary of one file.
type Summary struct {
	Language  classify.Kind `json:"language"`
	Imports   []string      `json:"imports"`
	Functions []Function    `json:"functions"`
	Classes   []Class       `json:"classes"`

	ModuleDocstring  bool `json:"module_docstring"`
	HasTypeHints     bool `json:"has_type_hints"`
	HasDocstrings    bool `json:"has_docstrings"`
	HasDecorators    bool `json:"has_decorators"`
	HasErrorHandling bool `json:"has_error_handling"`
	HasLogging       bool `json:"has_logging"`
	HasComments      bool `json:"has_comments"`
}

// Parse is the result of inspecting one file.
type Parse struct {
	Mode    Mode
	Summary Summary
}

// Structured reports whether the summary came from a syntax tree.
func (p Parse) Structured() bool {
	return p.Mode == Structured
}

// Inspect summarizes content according to the kind of the file at path.
// Files that are not Python, JavaScript or TypeScript yield an empty
// heuristic summary.
func Inspect(path string, content []byte) Parse {
	switch kind := classify.Classify(path); kind {
	case classify.Python:
		return Python(path, content)
	case classify.JavaScript, classify.TypeScript:
		return Script(kind, content)
	default:
		return Parse{Mode: Heuristic, Summary: Summary{Language: kind}}
	}
}

// Empty reports whether no signal at all was found.
func (s Summary) Empty() bool {
	return len(s.Imports) == 0 && len(s.Functions) == 0 && len(s.Classes) == 0 &&
		!s.ModuleDocstring && !s.HasTypeHints && !s.HasDocstrings && !s.HasDecorators &&
		!s.HasErrorHandling && !s.HasLogging && !s.HasComments
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
