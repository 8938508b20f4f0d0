// Package facts defines RepositoryFacts, the language-agnostic summary of a
// scanned repository.
//
// A RepositoryFacts value is produced once by the scanner and read by every
// later stage. Consumers must treat it as read-only: slices and maps are
// shared, never copied.
package facts

import "fmt"

// RepositoryFacts is the aggregated summary of one repository.
type RepositoryFacts struct {
	Root  string `json:"root"`
	Error string `json:"error,omitempty"`

	Metadata           Metadata            `json:"metadata"`
	Structure          Structure           `json:"structure"`
	Files              FileStats           `json:"files"`
	LanguageFileCounts map[string]int      `json:"language_file_counts"`
	Python             CodeMetrics         `json:"python_metrics"`
	JavaScript         CodeMetrics         `json:"javascript_metrics"`
	Quality            QualitySignals      `json:"quality_signals"`
	Patterns           CodePatterns        `json:"code_patterns"`
	Dependencies       DependencyManifest  `json:"dependency_manifest"`
	Configuration      Configuration       `json:"configuration"`
	Documentation      Documentation       `json:"documentation"`
	Testing            Testing             `json:"testing"`
	Container          Container           `json:"container"`
	CICD               CICD                `json:"ci_cd"`
	Challenge          ChallengeIndicators `json:"challenge_indicators"`
}

type Metadata struct {
	HasReadme      bool  `json:"has_readme"`
	HasLicense     bool  `json:"has_license"`
	HasGitignore   bool  `json:"has_gitignore"`
	HasDockerfile  bool  `json:"has_dockerfile"`
	TotalFileCount int   `json:"total_file_count"`
	TotalLineCount int   `json:"total_line_count"`
	SizeInBytes    int64 `json:"size_in_bytes"`
}

// Structure describes recognized top-level directories.
type Structure struct {
	// KeyDirectories holds the names of well-known top-level directories
	// found at the root, e.g. "src", "tests", "docs".
	KeyDirectories []string `json:"key_directories"`
	// Roles holds the roles those directories play, e.g. "source", "tests".
	Roles                []string `json:"roles"`
	ArchitecturePatterns []string `json:"architecture_patterns"`
}

// HasDirectory reports whether a key directory with the given name exists.
func (s Structure) HasDirectory(name string) bool {
	return contains(s.KeyDirectories, name)
}

// HasRole reports whether the structure carries the given role.
func (s Structure) HasRole(role string) bool {
	return contains(s.Roles, role)
}

// FileStats carries code-file statistics.
type FileStats struct {
	CodeFileCount int        `json:"code_file_count"`
	Largest       []FileSize `json:"largest_files"`
	MedianSizeKB  float64    `json:"median_size_kb"`
}

type FileSize struct {
	Path   string  `json:"path"`
	SizeKB float64 `json:"size_kb"`
}

// CodeMetrics aggregates inspector summaries for one language family.
type CodeMetrics struct {
	Files           int      `json:"files"`
	StructuredFiles int      `json:"structured_files"`
	Functions       int      `json:"functions"`
	Classes         int      `json:"classes"`
	Imports         []string `json:"imports"`
	HasTypeHints    bool     `json:"has_type_hints"`
	HasDocstrings   bool     `json:"has_docstrings"`
	HasDecorators   bool     `json:"has_decorators"`
}

// QualitySignals are true when found in any scanned file.
type QualitySignals struct {
	HasErrorHandling bool `json:"has_error_handling"`
	HasLogging       bool `json:"has_logging"`
	HasComments      bool `json:"has_comments"`
}

// CodePatterns are signals confirmed by a syntax tree walk rather than text
// matching. They are reported but not scored.
type CodePatterns struct {
	ErrorHandling bool `json:"error_handling"`
	Logging       bool `json:"logging"`
}

type DependencyManifest struct {
	Python     []string `json:"python"`
	JavaScript []string `json:"javascript"`
	Images     []string `json:"container_images"`
	Files      []string `json:"manifest_files"`
}

// Any reports whether at least one manifest file was found.
func (d DependencyManifest) Any() bool {
	return len(d.Files) > 0
}

type Configuration struct {
	Files  []string `json:"files"`
	HasEnv bool     `json:"has_env"`
}

type Documentation struct {
	Readme                Readme   `json:"readme"`
	APIDocs               []string `json:"api_docs"`
	ArchitectureDocs      []string `json:"architecture_docs"`
	HasExamples           bool     `json:"has_examples"`
	ExampleBlocks         int      `json:"example_blocks"`
	SetupInstructionLevel int      `json:"setup_instruction_level"`
}

type Readme struct {
	Exists       bool            `json:"exists"`
	Path         string          `json:"path,omitempty"`
	QualityScore int             `json:"quality_score"`
	Sections     map[string]bool `json:"sections"`
}

// Section reports whether the named README section was recognized.
func (r Readme) Section(name string) bool {
	return r.Sections[name]
}

type Testing struct {
	HasTests            bool     `json:"has_tests"`
	Files               []string `json:"test_files"`
	Frameworks          []string `json:"test_frameworks"`
	HasCoverage         bool     `json:"has_coverage_artifact"`
	HasDedicatedTestDir bool     `json:"has_dedicated_test_directory"`
}

type Container struct {
	HasDockerfile bool                `json:"has_dockerfile"`
	HasCompose    bool                `json:"has_compose_file"`
	Dockerfiles   []string            `json:"dockerfiles"`
	ComposeFiles  []string            `json:"compose_files"`
	Dockerfile    *DockerfileAnalysis `json:"dockerfile_analysis,omitempty"`
}

type DockerfileAnalysis struct {
	Stages           int  `json:"stages"`
	MultiStage       bool `json:"multi_stage"`
	HasHealthcheck   bool `json:"has_healthcheck"`
	HasNonRootUser   bool `json:"has_non_root_user"`
	HasOptimizations bool `json:"has_optimizations"`
}

type CICD struct {
	HasCI     bool     `json:"has_ci"`
	Files     []string `json:"ci_files"`
	Platforms []string `json:"ci_platforms"`
	RunsTests bool     `json:"runs_tests"`
}

type ChallengeIndicators struct {
	AIML         AIML         `json:"ai_ml"`
	Web          WebApp       `json:"web_app"`
	DataPipeline DataPipeline `json:"data_pipeline"`
}

type AIML struct {
	HasAIML    bool     `json:"has_ai_ml"`
	Libraries  []string `json:"libraries"`
	ModelFiles []string `json:"model_files"`
	Notebooks  []string `json:"notebooks"`
}

type WebApp struct {
	HasWebApp    bool     `json:"has_web_app"`
	Frameworks   []string `json:"frameworks"`
	StaticDirs   []string `json:"static_dirs"`
	TemplateDirs []string `json:"template_dirs"`
}

type DataPipeline struct {
	HasDataPipeline bool     `json:"has_data_pipeline"`
	ETLFiles        []string `json:"etl_files"`
	DatabaseFiles   []string `json:"database_files"`
	AirflowFiles    []string `json:"airflow_files"`
}

// Failed returns the facts record for a repository whose root could not be
// read. All signals are empty.
func Failed(root string, err error) RepositoryFacts {
	return RepositoryFacts{
		Root:               root,
		Error:              fmt.Sprintf("repository root %q is not accessible: %v", root, err),
		LanguageFileCounts: map[string]int{},
		Documentation:      Documentation{Readme: Readme{Sections: map[string]bool{}}},
	}
}

// Failed reports whether the record describes an unreadable repository.
func (f RepositoryFacts) Failed() bool {
	return f.Error != ""
}

// CodeFunctions returns the function count across languages.
func (f RepositoryFacts) CodeFunctions() int {
	return f.Python.Functions + f.JavaScript.Functions
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
