package inspect

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/spigell/repograde/internal/classify"
)

var loggingMethods = map[string]struct{}{
	"debug":    {},
	"info":     {},
	"warning":  {},
	"error":    {},
	"critical": {},
}

// Python summarizes a Python source file. A syntax tree walk is attempted
// first; when the parser rejects the file the line heuristics are used.
func Python(filename string, content []byte) Parse {
	if summary, ok := parsePython(filename, content); ok {
		return Parse{Mode: Structured, Summary: summary}
	}
	return Parse{Mode: Heuristic, Summary: pythonHeuristic(content)}
}

func parsePython(filename string, content []byte) (summary Summary, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			summary, ok = Summary{}, false
		}
	}()

	mod, err := parser.Parse(bytes.NewReader(content), filename, py.ExecMode)
	if err != nil {
		return Summary{}, false
	}

	summary = Summary{Language: classify.Python}
	var imports []string

	if m, isModule := mod.(*ast.Module); isModule {
		summary.ModuleDocstring = hasDocstring(m.Body)
	}

	ast.Walk(mod, func(node ast.Ast) bool {
		switch n := node.(type) {
		case *ast.Import:
			for _, alias := range n.Names {
				imports = append(imports, string(alias.Name))
			}
		case *ast.ImportFrom:
			imports = append(imports, string(n.Module))
		case *ast.FunctionDef:
			fn := Function{
				Name:          string(n.Name),
				HasDocstring:  hasDocstring(n.Body),
				HasReturnType: n.Returns != nil,
				HasDecorator:  len(n.DecoratorList) > 0,
			}
			summary.Functions = append(summary.Functions, fn)
			if fn.HasReturnType || annotated(n.Args) {
				summary.HasTypeHints = true
			}
			if fn.HasDocstring {
				summary.HasDocstrings = true
			}
			if fn.HasDecorator {
				summary.HasDecorators = true
			}
		case *ast.ClassDef:
			cls := Class{Name: string(n.Name), HasDocstring: hasDocstring(n.Body)}
			summary.Classes = append(summary.Classes, cls)
			if cls.HasDocstring {
				summary.HasDocstrings = true
			}
			if len(n.DecoratorList) > 0 {
				summary.HasDecorators = true
			}
		case *ast.Try:
			summary.HasErrorHandling = true
		case *ast.Call:
			if attr, isAttr := n.Func.(*ast.Attribute); isAttr {
				if _, found := loggingMethods[string(attr.Attr)]; found {
					summary.HasLogging = true
				}
			}
		}
		return true
	})

	if summary.ModuleDocstring {
		summary.HasDocstrings = true
	}
	summary.Imports = dedupe(imports)
	summary.HasComments = hasLinePrefix(content, "#")

	return summary, true
}

func hasDocstring(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	expr, ok := body[0].(*ast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = expr.Value.(*ast.Str)
	return ok
}

func annotated(args *ast.Arguments) bool {
	if args == nil {
		return false
	}
	for _, list := range [][]*ast.Arg{args.Args, args.Kwonlyargs} {
		for _, arg := range list {
			if arg != nil && arg.Annotation != nil {
				return true
			}
		}
	}
	for _, arg := range []*ast.Arg{args.Vararg, args.Kwarg} {
		if arg != nil && arg.Annotation != nil {
			return true
		}
	}
	return false
}

func pythonHeuristic(content []byte) Summary {
	summary := Summary{Language: classify.Python}
	var imports []string

	text := string(content)
	for _, marker := range []string{"try:", "except", "catch", "finally:"} {
		if strings.Contains(text, marker) {
			summary.HasErrorHandling = true
			break
		}
	}
	for _, marker := range []string{"logging.", "logger.", "log."} {
		if strings.Contains(text, marker) {
			summary.HasLogging = true
			break
		}
	}
	summary.HasDocstrings = strings.Contains(text, `"""`) || strings.Contains(text, "'''")

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#"):
			summary.HasComments = true
		case strings.HasPrefix(line, "@"):
			summary.HasDecorators = true
		case strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from "):
			if fields := strings.Fields(line); len(fields) > 1 {
				imports = append(imports, strings.TrimRight(fields[1], ","))
			}
		case strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "async def "):
			if name := definitionName(line, "def "); name != "" {
				summary.Functions = append(summary.Functions, Function{
					Name:          name,
					HasReturnType: strings.Contains(line, "->"),
				})
				if strings.Contains(line, "->") {
					summary.HasTypeHints = true
				}
			}
		case strings.HasPrefix(line, "class "):
			if name := definitionName(line, "class "); name != "" {
				summary.Classes = append(summary.Classes, Class{Name: name})
			}
		}
	}

	summary.Imports = dedupe(imports)
	return summary
}

func definitionName(line, keyword string) string {
	idx := strings.Index(line, keyword)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(keyword):]
	if cut := strings.IndexAny(rest, "(:"); cut >= 0 {
		rest = rest[:cut]
	}
	return strings.TrimSpace(rest)
}

func hasLinePrefix(content []byte, prefix string) bool {
	for _, line := range bytes.Split(content, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte(prefix)) {
			return true
		}
	}
	return false
}
