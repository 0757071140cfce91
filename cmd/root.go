package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "placement"
	envPrefix = "PLACEMENT"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server" validate:"required"`
	Store    *StoreConfig    `mapstructure:"store" validate:"required"`
	Embedder *EmbedderConfig `mapstructure:"embedder" validate:"required"`
	Matching *MatchingConfig `mapstructure:"matching" validate:"required"`
	Aptitude *AptitudeConfig `mapstructure:"aptitude" validate:"required"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"gte=0"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes" validate:"gte=0"`
}

type StoreConfig struct {
	Type          string          `mapstructure:"type" validate:"oneof=memory postgres"`
	QuestionsFile string          `mapstructure:"questions-file"`
	Postgres      *PostgresConfig `mapstructure:"postgres" validate:"required_if=Type postgres"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
	Migrate bool   `mapstructure:"migrate"`
}

type EmbedderConfig struct {
	Provider  string        `mapstructure:"provider" validate:"oneof=gemini openai"`
	Dimension int           `mapstructure:"dimension" validate:"gte=0"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
	OpenAI    *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type OpenAIConfig struct {
	BaseURL    string        `mapstructure:"base-url" validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries int           `mapstructure:"max-retries" validate:"gte=0"`
}

type MatchingConfig struct {
	DefaultMinScore      int `mapstructure:"default-min-score" validate:"gte=0,lte=100"`
	MinResumeLength      int `mapstructure:"min-resume-length" validate:"gte=0"`
	MinDescriptionLength int `mapstructure:"min-description-length" validate:"gte=0"`
}

type AptitudeConfig struct {
	DefaultCount int `mapstructure:"default-count" validate:"gte=0"`
	BatchSize    int `mapstructure:"batch-size" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "placement is a job placement assistant: it scores candidate resumes against job openings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is placement.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "placement server url for client commands (default is http://localhost:8000)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.mode", "")
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.max-upload-bytes", 5<<20)
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.questions-file", "")
	// Empty defaults keep the keys visible to env overrides on Unmarshal.
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.dsn-file", "")
	v.SetDefault("store.postgres.migrate", false)
	v.SetDefault("embedder.provider", "gemini")
	v.SetDefault("embedder.dimension", 384)
	v.SetDefault("embedder.gemini.api-key", "")
	v.SetDefault("embedder.gemini.api-key-file", "")
	v.SetDefault("embedder.gemini.model", "text-embedding-004")
	v.SetDefault("embedder.gemini.max-retries", 3)
	v.SetDefault("embedder.openai.base-url", "https://api.openai.com/v1")
	v.SetDefault("embedder.openai.api-key", "")
	v.SetDefault("embedder.openai.api-key-file", "")
	v.SetDefault("embedder.openai.model", "text-embedding-3-small")
	v.SetDefault("embedder.openai.timeout", 30*time.Second)
	v.SetDefault("embedder.openai.max-retries", 3)
	v.SetDefault("matching.default-min-score", 50)
	v.SetDefault("matching.min-resume-length", 50)
	v.SetDefault("matching.min-description-length", 20)
	v.SetDefault("aptitude.default-count", 10)
	v.SetDefault("aptitude.batch-size", 50)
}

func initConfig() {
	// .env is optional, real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	bindEnv(viper.GetViper())

	// Only serve needs the config file.
	if serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Running on defaults and env is fine unless a file was asked for explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// bindEnv maps keys like store.postgres.dsn-file to PLACEMENT_STORE_POSTGRES_DSN_FILE.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}
