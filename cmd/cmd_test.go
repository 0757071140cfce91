package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/storage/memory"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if config.Server.Address != ":8000" {
		t.Fatalf("unexpected address %q", config.Server.Address)
	}
	if config.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", config.Server.ShutdownTimeout)
	}
	if config.Store.Type != "memory" {
		t.Fatalf("unexpected store type %q", config.Store.Type)
	}
	if config.Embedder.Dimension != 384 || config.Embedder.Provider != "gemini" {
		t.Fatalf("unexpected embedder %+v", config.Embedder)
	}
	if config.Matching.DefaultMinScore != 50 || config.Matching.MinResumeLength != 50 {
		t.Fatalf("unexpected matching %+v", config.Matching)
	}
	if config.Aptitude.DefaultCount != 10 || config.Aptitude.BatchSize != 50 {
		t.Fatalf("unexpected aptitude %+v", config.Aptitude)
	}
}

func TestDecodeConfigFromYAMLAndEnv(t *testing.T) {
	t.Setenv("PLACEMENT_STORE_POSTGRES_DSN", "postgres://env")
	t.Setenv("PLACEMENT_MATCHING_DEFAULT_MIN_SCORE", "65")

	path := writeFile(t, "placement.yaml", `
server:
  address: ":9000"
  mode: release
store:
  type: postgres
  postgres:
    migrate: true
embedder:
  provider: openai
  openai:
    base-url: http://localhost:11434/v1
    model: nomic-embed-text
    timeout: 5s
`)

	v := newTestViper()
	bindEnv(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if config.Server.Address != ":9000" || config.Server.Mode != "release" {
		t.Fatalf("unexpected server %+v", config.Server)
	}
	if config.Store.Postgres.DSN != "postgres://env" || !config.Store.Postgres.Migrate {
		t.Fatalf("unexpected postgres %+v", config.Store.Postgres)
	}
	if config.Embedder.OpenAI.Timeout != 5*time.Second || config.Embedder.OpenAI.Model != "nomic-embed-text" {
		t.Fatalf("unexpected openai %+v", config.Embedder.OpenAI)
	}
	if config.Matching.DefaultMinScore != 65 {
		t.Fatalf("expected env override, got %d", config.Matching.DefaultMinScore)
	}
}

func TestDecodeConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown store", key: "store.type", value: "mongo"},
		{name: "unknown provider", key: "embedder.provider", value: "cohere"},
		{name: "threshold above range", key: "matching.default-min-score", value: 101},
		{name: "negative batch", key: "aptitude.batch-size", value: -1},
		{name: "bad gin mode", key: "server.mode", value: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newTestViper()
			v.Set(tt.key, tt.value)

			if _, err := decodeConfig(v); err == nil {
				t.Fatalf("expected validation error for %s=%v", tt.key, tt.value)
			}
		})
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.Set("store.postgres.dsn", "postgres://user:pass@db/placement")
	v.Set("embedder.gemini.api-key", "secret")

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	out := redacted(config)
	if out.Store.Postgres.DSN != "***" || out.Embedder.Gemini.APIKey != "***" {
		t.Fatalf("secrets leaked: %+v %+v", out.Store.Postgres, out.Embedder.Gemini)
	}
	if out.Embedder.OpenAI.APIKey != "" {
		t.Fatalf("empty secret should stay empty")
	}
	if config.Store.Postgres.DSN != "postgres://user:pass@db/placement" {
		t.Fatalf("original config must not change")
	}
}

func TestImportQuestions(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "questions.json", `[
		{"question": "2+2?", "options": ["3", "4", "5", "6"], "correct_answer": "B", "topic": "math"},
		{"question": "Opposite of hot?", "options": ["cold", "warm"], "topic": "verbal"}
	]`)

	store := memory.NewStorage()
	count, err := importQuestions(context.Background(), store, path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 questions, got %d", count)
	}

	math, err := store.ListQuestions(context.Background(), "math", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(math) != 1 || math[0].CorrectAnswer != "B" {
		t.Fatalf("unexpected questions %+v", math)
	}
}

func TestImportQuestionsRejectsEmpty(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "questions.json", `[{"question": "  "}]`)

	if _, err := importQuestions(context.Background(), memory.NewStorage(), path); err == nil {
		t.Fatalf("expected error for empty question")
	}
}

func TestScoreFiles(t *testing.T) {
	t.Parallel()

	candidate := writeFile(t, "candidate.json", `[1, 0]`)
	job := writeFile(t, "job.json", `{"embedding": [1, 1]}`)

	report, err := scoreFiles(candidate, job, "Go Developer", 70)
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if report.Score != 70.7 {
		t.Fatalf("expected 70.7, got %v", report.Score)
	}
	if !report.MeetsThreshold || report.Advice != "Apply now!" {
		t.Fatalf("unexpected report %+v", report)
	}
	if !strings.HasPrefix(report.Analysis, "Good match!") {
		t.Fatalf("unexpected analysis %q", report.Analysis)
	}
}

func TestScoreFilesErrors(t *testing.T) {
	t.Parallel()

	candidate := writeFile(t, "candidate.json", `[1, 0]`)
	zero := writeFile(t, "zero.json", `[0, 0]`)
	short := writeFile(t, "short.json", `[1, 0, 0]`)

	if _, err := scoreFiles(candidate, zero, "", 50); !errors.Is(err, match.ErrZeroVector) {
		t.Fatalf("expected zero vector error, got %v", err)
	}
	if _, err := scoreFiles(candidate, short, "", 50); !errors.Is(err, match.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if _, err := scoreFiles(candidate, candidate, "", 101); !errors.Is(err, match.ErrThresholdOutOfRange) {
		t.Fatalf("expected threshold error, got %v", err)
	}
	if _, err := scoreFiles(filepath.Join(t.TempDir(), "missing.json"), candidate, "", 50); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
