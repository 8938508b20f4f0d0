// Package scan walks a materialized repository and produces RepositoryFacts.
package scan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/repograde/internal/classify"
	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/inspect"
	"github.com/spigell/repograde/internal/logger"
	"github.com/spigell/repograde/internal/rubric"
)

// Cost bounds. They are fixed so that two scans of the same tree always
// agree.
const (
	maxPythonFiles     = 20
	maxScriptFiles     = 20
	maxReadBytes       = 1 << 20
	maxFrameworkProbes = 10
	maxConfigFiles     = 3
	largestFilesShown  = 3
	defaultWorkers     = 8
)

var (
	errNotDirectory  = errors.New("not a directory")
	errMalformedJSON = errors.New("malformed json")
)

// Scanner builds RepositoryFacts from a filesystem tree.
type Scanner struct {
	fs       afero.Fs
	keywords rubric.Keywords
	logger   *zap.Logger
	workers  int
}

type Option func(*Scanner)

// WithLogger sets the logger used for skipped files and parse failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers bounds the number of files read concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New returns a Scanner reading from fs and matching against the keyword
// tables of a rubric.
func New(fs afero.Fs, keywords rubric.Keywords, opts ...Option) *Scanner {
	s := &Scanner{
		fs:       fs,
		keywords: keywords,
		logger:   zap.NewNop(),
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// entry is one non-hidden file found during the walk.
type entry struct {
	rel  string
	size int64
	kind classify.Kind
}

// tree is the raw result of the walk, relative to the repository root.
type tree struct {
	root  string
	files []entry
	dirs  []string
}

// fileResult is the contribution of one file. Results are computed
// independently and merged in walk order afterwards.
type fileResult struct {
	lines  int
	parse  *inspect.Parse
	sample string
}

// Scan walks root and returns its facts. It never fails: unreadable files
// are skipped, and an unreadable root yields a record with Error set.
func (s *Scanner) Scan(ctx context.Context, root string) facts.RepositoryFacts {
	log := s.logger.With(zap.String(logger.FieldRepository, root))

	info, err := s.fs.Stat(root)
	if err != nil {
		log.Warn("repository root is not accessible", zap.Error(err))
		return facts.Failed(root, err)
	}
	if !info.IsDir() {
		return facts.Failed(root, &os.PathError{Op: "scan", Path: root, Err: errNotDirectory})
	}

	t, err := s.walk(ctx, root)
	if err != nil {
		log.Warn("walking repository", zap.Error(err))
		return facts.Failed(root, err)
	}

	results, err := s.readFiles(ctx, t)
	if err != nil {
		log.Warn("reading repository files", zap.Error(err))
		return facts.Failed(root, err)
	}

	f := facts.RepositoryFacts{
		Root:               root,
		LanguageFileCounts: map[string]int{},
	}

	s.collectFiles(&f, t, results)
	s.collectStructure(&f, t)
	f.Dependencies = s.dependencies(t, log)
	f.Configuration = s.configuration(t)
	f.Documentation = s.documentation(t, log)
	f.Testing = s.testing(t, f.Dependencies, log)
	f.Container = s.container(t, log)
	f.CICD = s.cicd(t, log)
	f.Challenge = s.indicators(t, f.Dependencies, results)

	f.Metadata.HasReadme = f.Documentation.Readme.Exists
	f.Metadata.HasDockerfile = f.Container.HasDockerfile
	f.Metadata.HasLicense = s.rootFileWithPrefix(t, "LICENSE", "LICENCE", "COPYING")
	f.Metadata.HasGitignore = s.exists(t.abs(".gitignore"))

	log.Debug("repository scanned",
		zap.Int("files", f.Metadata.TotalFileCount),
		zap.Int("lines", f.Metadata.TotalLineCount),
		zap.Int("python_files_inspected", f.Python.Files),
		zap.Int("script_files_inspected", f.JavaScript.Files),
	)

	return f
}

func (s *Scanner) walk(ctx context.Context, root string) (*tree, error) {
	t := &tree{root: root}

	err := afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			s.logger.Debug("skipping unreadable path", zap.String("path", p), zap.Error(err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			t.dirs = append(t.dirs, rel)
			return nil
		}

		t.files = append(t.files, entry{rel: rel, size: info.Size(), kind: classify.Classify(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(t.dirs)
	sort.Slice(t.files, func(i, j int) bool { return t.files[i].rel < t.files[j].rel })
	return t, nil
}

// readFiles reads line-counted and sampled files concurrently. Each worker
// writes only its own slot.
func (s *Scanner) readFiles(ctx context.Context, t *tree) ([]fileResult, error) {
	results := make([]fileResult, len(t.files))
	sampled := sampleSet(t.files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, e := range t.files {
		_, inspectIt := sampled[i]
		if !inspectIt && !classify.IsLineCounted(e.rel) {
			continue
		}

		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := s.read(t.abs(e.rel))
			if err != nil {
				s.logger.Debug("skipping unreadable file", zap.String("path", e.rel), zap.Error(err))
				return nil
			}

			res := fileResult{}
			if classify.IsLineCounted(e.rel) {
				res.lines = countLines(data)
			}
			if inspectIt {
				parsed := inspect.Inspect(e.rel, data)
				res.parse = &parsed
				res.sample = strings.ToLower(string(data))
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// sampleSet picks the first Python and JavaScript/TypeScript files in walk
// order, up to the per-language caps.
func sampleSet(files []entry) map[int]struct{} {
	out := make(map[int]struct{})
	py, js := 0, 0
	for i, e := range files {
		switch e.kind {
		case classify.Python:
			if py < maxPythonFiles {
				out[i] = struct{}{}
				py++
			}
		case classify.JavaScript, classify.TypeScript:
			if js < maxScriptFiles {
				out[i] = struct{}{}
				js++
			}
		}
	}
	return out
}

func (s *Scanner) collectFiles(f *facts.RepositoryFacts, t *tree, results []fileResult) {
	var pyImports, jsImports []string
	var codeSizes stats.Float64Data
	var code []facts.FileSize

	for i, e := range t.files {
		f.Metadata.TotalFileCount++
		f.Metadata.SizeInBytes += e.size
		f.LanguageFileCounts[string(e.kind)]++

		if classify.IsLineCounted(e.rel) {
			kb := float64(e.size) / 1024
			codeSizes = append(codeSizes, kb)
			code = append(code, facts.FileSize{Path: e.rel, SizeKB: kb})
		}

		res := results[i]
		f.Metadata.TotalLineCount += res.lines
		if res.parse == nil {
			continue
		}

		sum := res.parse.Summary
		f.Quality.HasErrorHandling = f.Quality.HasErrorHandling || sum.HasErrorHandling
		f.Quality.HasLogging = f.Quality.HasLogging || sum.HasLogging
		f.Quality.HasComments = f.Quality.HasComments || sum.HasComments
		if res.parse.Structured() {
			f.Patterns.ErrorHandling = f.Patterns.ErrorHandling || sum.HasErrorHandling
			f.Patterns.Logging = f.Patterns.Logging || sum.HasLogging
		}

		metrics := &f.JavaScript
		if sum.Language == classify.Python {
			metrics = &f.Python
			pyImports = append(pyImports, sum.Imports...)
		} else {
			jsImports = append(jsImports, sum.Imports...)
		}
		addMetrics(metrics, res.parse)
	}

	f.Python.Imports = unique(pyImports)
	f.JavaScript.Imports = unique(jsImports)

	f.Files.CodeFileCount = len(code)
	sort.SliceStable(code, func(i, j int) bool {
		if code[i].SizeKB != code[j].SizeKB {
			return code[i].SizeKB > code[j].SizeKB
		}
		return code[i].Path < code[j].Path
	})
	if len(code) > largestFilesShown {
		code = code[:largestFilesShown]
	}
	f.Files.Largest = code
	if median, err := stats.Median(codeSizes); err == nil {
		f.Files.MedianSizeKB = median
	}
}

func addMetrics(m *facts.CodeMetrics, p *inspect.Parse) {
	m.Files++
	if p.Structured() {
		m.StructuredFiles++
	}
	m.Functions += len(p.Summary.Functions)
	m.Classes += len(p.Summary.Classes)
	m.HasTypeHints = m.HasTypeHints || p.Summary.HasTypeHints
	m.HasDocstrings = m.HasDocstrings || p.Summary.HasDocstrings
	m.HasDecorators = m.HasDecorators || p.Summary.HasDecorators
}

func (s *Scanner) collectStructure(f *facts.RepositoryFacts, t *tree) {
	var dirs, roles []string
	for _, d := range t.topDirs() {
		for _, kd := range s.keywords.KeyDirectories {
			if strings.EqualFold(d, kd.Name) {
				dirs = append(dirs, kd.Name)
				roles = append(roles, kd.Role)
			}
		}
	}

	st := facts.Structure{KeyDirectories: unique(dirs), Roles: unique(roles)}

	var patterns []string
	if st.HasDirectory("src") {
		patterns = append(patterns, "src-based")
	}
	if st.HasDirectory("app") {
		patterns = append(patterns, "app-based")
	}
	if st.HasRole("tests") {
		patterns = append(patterns, "test-separated")
	}
	st.ArchitecturePatterns = patterns

	f.Structure = st
}

func (t *tree) abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// topDirs returns the names of non-hidden directories directly under root.
func (t *tree) topDirs() []string {
	var out []string
	for _, d := range t.dirs {
		if !strings.Contains(d, "/") {
			out = append(out, d)
		}
	}
	return out
}

// rootFiles returns non-hidden files directly under root.
func (t *tree) rootFiles() []entry {
	var out []entry
	for _, e := range t.files {
		if !strings.Contains(e.rel, "/") {
			out = append(out, e)
		}
	}
	return out
}

func (s *Scanner) rootFileWithPrefix(t *tree, prefixes ...string) bool {
	for _, e := range t.rootFiles() {
		upper := strings.ToUpper(e.rel)
		for _, p := range prefixes {
			if strings.HasPrefix(upper, p) {
				return true
			}
		}
	}
	return false
}

func (s *Scanner) exists(p string) bool {
	ok, err := afero.Exists(s.fs, p)
	return err == nil && ok
}

func (s *Scanner) read(p string) ([]byte, error) {
	fh, err := s.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return io.ReadAll(io.LimitReader(fh, maxReadBytes))
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func base(rel string) string {
	return strings.ToLower(path.Base(rel))
}

func unique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
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
