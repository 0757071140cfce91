package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/aptitude"
	"github.com/spigell/placement-assistant/internal/embedding"
	"github.com/spigell/placement-assistant/internal/embedding/gemini"
	"github.com/spigell/placement-assistant/internal/embedding/openai"
	"github.com/spigell/placement-assistant/internal/httpapi"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/placement"
	"github.com/spigell/placement-assistant/internal/secrets"
	"github.com/spigell/placement-assistant/internal/storage"
	"github.com/spigell/placement-assistant/internal/storage/memory"
	"github.com/spigell/placement-assistant/internal/storage/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the placement HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (overrides server.address)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(app, viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the placement api", zap.String("version", version))

	// secrets are never part of the dump
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	store, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("type", config.Store.Type))
	}
	defer store.Close()

	if config.Store.QuestionsFile != "" {
		count, err := importQuestions(ctx, store, config.Store.QuestionsFile)
		if err != nil {
			logger.Fatal("importing aptitude questions", zap.Error(err), zap.String("file", config.Store.QuestionsFile))
		}
		logger.Info("imported aptitude questions", zap.Int("count", count))
	}

	embedder, err := newEmbedder(ctx, config.Embedder, logger)
	if err != nil {
		logger.Fatal(
			"creating the embedder",
			zap.Error(err),
			zap.String("hint", "set embedder.<provider>.api-key-file or the provider api key environment variable"),
		)
	}

	svc := placement.New(store, embedder, placement.Config{
		Dimension:            config.Embedder.Dimension,
		MinResumeLength:      config.Matching.MinResumeLength,
		MinDescriptionLength: config.Matching.MinDescriptionLength,
		DefaultMinScore:      config.Matching.DefaultMinScore,
	}, logger)

	papers := aptitude.New(store, aptitude.Config{
		DefaultCount: config.Aptitude.DefaultCount,
		BatchSize:    config.Aptitude.BatchSize,
	}, logger)

	server := httpapi.New(svc, papers, httpapi.Config{
		Address:         config.Server.Address,
		Mode:            config.Server.Mode,
		ShutdownTimeout: config.Server.ShutdownTimeout,
		MaxUploadBytes:  config.Server.MaxUploadBytes,
		Version:         version,
	}, logger)

	if err := server.Run(ctx); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func newStore(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Type {
	case "", "memory":
		logger.Warn("using the in-memory store, data is lost on exit")
		return memory.NewStorage(), nil
	case "postgres":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: cfg.Postgres.DSN,
			File:  cfg.Postgres.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, err
		}

		store, err := postgres.New(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}

		if cfg.Postgres.Migrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

func newEmbedder(ctx context.Context, cfg *EmbedderConfig, base *zap.Logger) (embedding.Embedder, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", "gemini":
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: gc.APIKey,
			File:  gc.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		return gemini.New(ctx, gemini.Config{
			APIKey:     apiKey,
			Model:      gc.Model,
			Dimension:  cfg.Dimension,
			MaxRetries: gc.MaxRetries,
		}, logger.WithCommonFields(base, "gemini", gc.Model))
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &OpenAIConfig{}
		}

		// Local OpenAI-compatible servers usually run without a key.
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: oc.APIKey,
			File:  oc.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil && oc.APIKeyFile != "" {
			return nil, err
		}

		return openai.New(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKey:     apiKey,
			Model:      oc.Model,
			Dimension:  cfg.Dimension,
			Timeout:    oc.Timeout,
			MaxRetries: oc.MaxRetries,
		}, logger.WithCommonFields(base, "openai", oc.Model)), nil
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

// importQuestions loads a JSON array of aptitude questions into the store.
func importQuestions(ctx context.Context, store storage.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var questions []*models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	for i, q := range questions {
		if q == nil || strings.TrimSpace(q.Question) == "" {
			return i, fmt.Errorf("question #%d is empty", i)
		}
		if err := store.CreateQuestion(ctx, q); err != nil {
			return i, fmt.Errorf("question #%d: %w", i, err)
		}
	}

	return len(questions), nil
}

func redacted(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	out := *cfg
	if cfg.Store != nil && cfg.Store.Postgres != nil {
		store := *cfg.Store
		pg := *cfg.Store.Postgres
		pg.DSN = mask(pg.DSN)
		store.Postgres = &pg
		out.Store = &store
	}
	if cfg.Embedder != nil {
		emb := *cfg.Embedder
		if emb.Gemini != nil {
			g := *emb.Gemini
			g.APIKey = mask(g.APIKey)
			emb.Gemini = &g
		}
		if emb.OpenAI != nil {
			o := *emb.OpenAI
			o.APIKey = mask(o.APIKey)
			emb.OpenAI = &o
		}
		out.Embedder = &emb
	}
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
