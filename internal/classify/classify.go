// Package classify maps repository paths to a file kind.
package classify

import (
	"path"
	"strings"
)

// Kind is the language or file-kind tag of a path.
type Kind string

const (
	Python     Kind = "python"
	JavaScript Kind = "javascript"
	TypeScript Kind = "typescript"
	HTML       Kind = "html"
	CSS        Kind = "css"
	JSON       Kind = "json"
	YAML       Kind = "yaml"
	TOML       Kind = "toml"
	Markdown   Kind = "markdown"
	Shell      Kind = "shell"
	Docker     Kind = "docker"
	SQL        Kind = "sql"
	Other      Kind = "other"
)

var byExtension = map[string]Kind{
	".py":         Python,
	".js":         JavaScript,
	".jsx":        JavaScript,
	".mjs":        JavaScript,
	".cjs":        JavaScript,
	".ts":         TypeScript,
	".tsx":        TypeScript,
	".html":       HTML,
	".htm":        HTML,
	".css":        CSS,
	".scss":       CSS,
	".less":       CSS,
	".json":       JSON,
	".yaml":       YAML,
	".yml":        YAML,
	".toml":       TOML,
	".md":         Markdown,
	".sh":         Shell,
	".bash":       Shell,
	".dockerfile": Docker,
	".sql":        SQL,
}

// lineCounted lists the extensions whose lines are counted during a scan.
var lineCounted = map[string]struct{}{
	".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".java": {},
	".cpp": {}, ".c": {}, ".go": {}, ".rs": {}, ".rb": {}, ".php": {},
}

// Classify returns the kind of the file at p. It never fails: unknown
// extensions map to Other.
func Classify(p string) Kind {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if strings.EqualFold(base, "dockerfile") {
		return Docker
	}

	if kind, ok := byExtension[strings.ToLower(path.Ext(base))]; ok {
		return kind
	}
	return Other
}

// IsCode reports whether the kind is inspected as source code.
func IsCode(k Kind) bool {
	return k == Python || k == JavaScript || k == TypeScript
}

// IsLineCounted reports whether lines of the file at p contribute to the
// repository line count.
func IsLineCounted(p string) bool {
	_, ok := lineCounted[strings.ToLower(path.Ext(p))]
	return ok
}

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{Python, JavaScript, TypeScript, HTML, CSS, JSON, YAML, TOML, Markdown, Shell, Docker, SQL, Other}
}
