package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai/gemini"
	"github.com/spigell/cv-assistant/internal/editor"
	"github.com/spigell/cv-assistant/internal/importer"
	"github.com/spigell/cv-assistant/internal/logger"
	"github.com/spigell/cv-assistant/internal/metrics"
	"github.com/spigell/cv-assistant/internal/reconcile"
	"github.com/spigell/cv-assistant/internal/secrets"
	"github.com/spigell/cv-assistant/internal/store"
)

// application bundles everything a command needs.
type application struct {
	config    *Config
	logger    *zap.Logger
	editor    *editor.Editor
	assistant *gemini.Assistant
	closers   []func() error
}

type appOptions struct {
	// withAI builds the Gemini client; commands that only touch storage
	// skip it so they work without an api key.
	withAI bool
}

func newApplication(ctx context.Context, opts appOptions) (*application, error) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	logger.Debug("starting "+app, zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	a := &application{config: config, logger: logger}

	cvStore, err := newStore(ctx, config.Store, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := cvStore.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	deps := editor.Deps{
		Store:      cvStore,
		Reconciler: reconcile.New(logger.Named("reconciler")),
		Logger:     logger.Named("editor"),
	}

	if opts.withAI {
		assistant, err := newAssistant(ctx, config.AI, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.assistant = assistant
		deps.Assistant = assistant
		deps.Importer = importer.New(assistant, logger.Named("importer"))
	}

	a.editor = editor.New(config.Owner, deps)
	if err := a.editor.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *application) Close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newStore(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "memory":
		logger.Warn("using in-memory storage, CVs are lost on exit")
		return store.NewMemory(), nil
	case "", "sqlite":
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			path = defaultStorePath()
		}
		logger.Debug("opening sqlite store", zap.String("path", path))
		return store.OpenSQLite(ctx, path)
	case "postgres":
		logger.Debug("connecting to postgres store")
		return store.OpenPostgres(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func newAssistant(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Assistant, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   []string{"GEMINI_API_KEY"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(log.Named("gemini"), "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	assistantLogger := logger.WithCommonFields(log.Named("assistant"), "gemini", generator.Model())

	return gemini.NewAssistant(generator, cfg.Gemini.MaxLogLength, assistantLogger), nil
}

// redacted returns a copy of the config safe to log.
func redacted(config *Config) *Config {
	if config == nil || config.AI == nil || config.AI.Gemini == nil {
		return config
	}

	out := *config
	ai := *config.AI
	g := *config.AI.Gemini
	if g.APIKey != "" {
		g.APIKey = "***"
	}
	ai.Gemini = &g
	out.AI = &ai
	if config.Store != nil && config.Store.URL != "" {
		st := *config.Store
		st.URL = "***"
		out.Store = &st
	}
	return &out
}

func writeMetrics() {
	path := strings.TrimSpace(viper.GetString("metrics-file"))
	if path == "" {
		return
	}

	if err := prometheus.WriteToTextfile(path, metrics.Registry); err != nil {
		log.Printf("writing metrics to %s: %v", path, err)
	}
}
