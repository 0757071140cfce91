package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/utils"
)

const (
	defaultModel      = "text-embedding-004"
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	maxBackoff        = 8 * time.Second
	maxLogLength      = 120
	taskType          = "SEMANTIC_SIMILARITY"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config configures the Gemini embedder.
type Config struct {
	APIKey     string
	Model      string
	Dimension  int
	MaxRetries int
}

// Embedder produces embeddings with the Google GenAI embedding models.
type Embedder struct {
	models     contentEmbedder
	modelName  string
	dimension  int
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// New creates an Embedder configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg, logger), nil
}

func newEmbedder(models contentEmbedder, cfg Config, logger *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:     models,
		modelName:  model,
		dimension:  cfg.Dimension,
		maxRetries: retries,
		backoff:    defaultBackoff,
		logger:     logger,
	}
}

// Embed returns the embedding of text, retrying temporary API failures.
func (e *Embedder) Embed(ctx context.Context, text string) (match.Embedding, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if e.dimension > 0 {
		dim := int32(e.dimension)
		cfg.OutputDimensionality = &dim
	}

	e.logger.Debug("gemini embed content request",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.String("text_preview", utils.TruncateForLog(text, maxLogLength)),
	)

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := utils.Backoff(e.backoff, maxBackoff, attempt-1)
			e.logger.Warn("retrying gemini embed content",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := e.models.EmbedContent(ctx, e.modelName, genai.Text(text), cfg)
		if err != nil {
			lastErr = err
			if isTemporary(err) {
				continue
			}
			return nil, fmt.Errorf("embed content: %w", err)
		}

		return toEmbedding(resp)
	}

	return nil, fmt.Errorf("embed content: retries exhausted: %w", lastErr)
}

func (e *Embedder) Dimension() int {
	if e == nil {
		return 0
	}
	return e.dimension
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.modelName
}

func toEmbedding(resp *genai.EmbedContentResponse) (match.Embedding, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	return match.NewEmbedding(out)
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
