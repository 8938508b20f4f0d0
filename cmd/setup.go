package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/repograde/internal/evaluate"
	"github.com/spigell/repograde/internal/logger"
	"github.com/spigell/repograde/internal/narrative"
	"github.com/spigell/repograde/internal/narrative/gemini"
	"github.com/spigell/repograde/internal/rubric"
	"github.com/spigell/repograde/internal/secrets"
	"github.com/spigell/repograde/internal/store"
)

func newLogger() *zap.Logger {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}

func mustConfig(logger *zap.Logger) *Config {
	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}
	return config
}

func loadRubric(config *Config) (*rubric.Rubric, error) {
	path := strings.TrimSpace(config.RubricFile)
	if path == "" {
		return rubric.Default()
	}
	return rubric.Load(path)
}

// newEvaluator wires the pipeline. A narrator is attached only when withNarrative
// is set; a narrator that cannot be built is logged and skipped.
func newEvaluator(ctx context.Context, config *Config, r *rubric.Rubric, withNarrative bool, logger *zap.Logger) (*evaluate.Evaluator, error) {
	opts := []evaluate.Option{evaluate.WithLogger(logger)}
	if config.Scan != nil {
		opts = append(opts, evaluate.WithScanWorkers(config.Scan.Workers))
	}

	if withNarrative {
		narrator, err := newNarrator(ctx, config.Narrative, logger)
		if err != nil {
			logger.Warn("using rule-based narrative", zap.Error(err))
		} else {
			opts = append(opts, evaluate.WithNarrator(narrator))
		}
	}

	return evaluate.New(r, afero.NewOsFs(), opts...)
}

func newNarrator(ctx context.Context, cfg *NarrativeConfig, base *zap.Logger) (narrative.Narrator, error) {
	if cfg == nil {
		cfg = &NarrativeConfig{}
	}
	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != narrative.MethodGemini {
		return nil, fmt.Errorf("unsupported narrative provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set narrative.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(base, narrative.MethodGemini, gcfg.Model).With(
		zap.Int("narrative_retry_attempts", gcfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	narratorLogger := logger.WithCommonFields(base, narrative.MethodGemini, generator.Model())
	return gemini.NewNarrator(generator, gcfg.MaxLogLength, narratorLogger), nil
}

func openStore(config *Config) (*store.Store, error) {
	path := defaultStorePath
	if config.Store != nil && strings.TrimSpace(config.Store.Path) != "" {
		path = config.Store.Path
	}
	return store.Open(path)
}
