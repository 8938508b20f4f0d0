package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/facts"
	"github.com/spigell/repograde/internal/narrative"
	"github.com/spigell/repograde/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Narrator asks Gemini to explain an evaluation.
type Narrator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewNarrator(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Narrator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Narrator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (n *Narrator) Narrate(ctx context.Context, in narrative.Input) (*narrative.Report, error) {
	system := buildPrompt(in)

	payload, err := json.MarshalIndent(requestPayload(in), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation payload: %w", err)
	}
	message := string(payload)

	n.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(system)+utf8.RuneCountInString(message)),
		zap.String("payload_preview", utils.TruncateForLog(message, n.maxLogLen)),
	)

	raw, err := n.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return nil, err
	}

	n.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, n.maxLogLen)),
	)

	report, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if len(report.BenchmarkComparison) == 0 {
		report.BenchmarkComparison = narrative.Benchmarks(in.Result.FinalScore)
	}
	report.Method = narrative.MethodGemini
	report.Model = n.generator.Model()
	return report, nil
}

func buildPrompt(in narrative.Input) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Challenge: {{CHALLENGE_TITLE}}\nRequired: {{REQUIRED_TECH}}\nLevel: {{EXPERIENCE_LEVEL}}\n\nJSON Response:"
	}

	title := in.Challenge.Title
	if title == "" {
		title = in.Challenge.ID
	}
	tech := "not specified"
	if len(in.Challenge.RequiredTech) > 0 {
		tech = strings.Join(in.Challenge.RequiredTech, ", ")
	}
	level := in.Result.ExperienceLabel
	if level == "" {
		level = in.Result.ExperienceLevel
	}

	prompt := strings.ReplaceAll(template, "{{CHALLENGE_TITLE}}", title)
	prompt = strings.ReplaceAll(prompt, "{{REQUIRED_TECH}}", tech)
	prompt = strings.ReplaceAll(prompt, "{{EXPERIENCE_LEVEL}}", level)
	return prompt
}

// requestPayload trims the facts down to what the model needs.
func requestPayload(in narrative.Input) map[string]any {
	f := in.Facts
	r := in.Result
	return map[string]any{
		"repository": in.Repository,
		"evaluation": map[string]any{
			"raw_score":      r.RawScore,
			"final_score":    r.FinalScore,
			"expected_score": r.ExpectedScore,
			"decision":       r.Decision,
			"categories":     r.Categories,
			"penalties":      r.Breakdown.Penalties.Items,
			"rewards":        r.Breakdown.Rewards.Items,
		},
		"repository_facts": map[string]any{
			"key_directories":      f.Structure.KeyDirectories,
			"language_file_counts": f.LanguageFileCounts,
			"code_files":           f.Files.CodeFileCount,
			"python_metrics":       codeSummary(f.Python),
			"javascript_metrics":   codeSummary(f.JavaScript),
			"quality_signals":      f.Quality,
			"dependencies":         f.Dependencies,
			"documentation":        f.Documentation,
			"testing":              f.Testing,
			"container":            f.Container,
			"ci_cd":                f.CICD,
			"challenge_indicators": f.Challenge,
		},
	}
}

func codeSummary(m facts.CodeMetrics) map[string]any {
	return map[string]any{
		"files":          m.Files,
		"functions":      m.Functions,
		"classes":        m.Classes,
		"has_type_hints": m.HasTypeHints,
		"has_docstrings": m.HasDocstrings,
		"import_count":   len(m.Imports),
	}
}

func parseResponse(raw string) (*narrative.Report, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var report narrative.Report
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       findingFromString,
		WeaklyTypedInput: true,
		Result:           &report,
	})
	if err != nil {
		return nil, fmt.Errorf("build response decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	report.Summary = strings.TrimSpace(report.Summary)
	if report.Summary == "" && len(report.Strengths) == 0 && len(report.Weaknesses) == 0 {
		return nil, fmt.Errorf("gemini response has no usable content")
	}
	return &report, nil
}

// findingFromString accepts bare strings where a finding object is expected.
func findingFromString(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(narrative.Finding{}) {
		return data, nil
	}
	return narrative.Finding{Title: strings.TrimSpace(data.(string))}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}
