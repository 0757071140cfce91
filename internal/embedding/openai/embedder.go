package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/utils"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseBackoff       = 200 * time.Millisecond
	maxBackoff        = 5 * time.Second
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// Embedder talks to any OpenAI-compatible /embeddings endpoint, including
// Ollama and local sentence-transformer servers.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	maxRetries int
	backoff    time.Duration
	client     *http.Client
	logger     *zap.Logger
}

type request struct {
	Input      string `json:"input"`
	Prompt     string `json:"prompt,omitempty"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

type statusError struct {
	status     string
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embeddings request failed: %s", e.status)
}

func (e *statusError) temporary() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

func New(cfg Config, logger *zap.Logger) *Embedder {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		dimension:  cfg.Dimension,
		maxRetries: retries,
		backoff:    baseBackoff,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) (match.Embedding, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	body, err := json.Marshal(request{Input: text, Prompt: text, Model: e.model, Dimensions: e.dimension})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.retryDelay(attempt-1, lastErr)
			e.logger.Warn("retrying embeddings request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return nil, err
			}
		}

		values, err := e.do(ctx, body)
		if err == nil {
			return match.NewEmbedding(values)
		}

		lastErr = err

		var statusErr *statusError
		if errors.As(err, &statusErr) && !statusErr.temporary() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embeddings request: retries exhausted: %w", lastErr)
}

func (e *Embedder) do(ctx context.Context, body []byte) ([]float64, error) {
	url := e.baseURL + "/embeddings"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	e.logger.Debug("make request", zap.String("url", url), zap.String("model", e.model))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{
			status:     resp.Status,
			code:       resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out openAIResponse
	if err := json.Unmarshal(payload, &out); err == nil && len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}

	var ollama ollamaResponse
	if err := json.Unmarshal(payload, &ollama); err == nil && len(ollama.Embedding) > 0 {
		return ollama.Embedding, nil
	}

	return nil, errors.New("no embedding returned")
}

func (e *Embedder) retryDelay(attempt int, lastErr error) time.Duration {
	var statusErr *statusError
	if errors.As(lastErr, &statusErr) && statusErr.retryAfter > 0 {
		return statusErr.retryAfter
	}

	return utils.Backoff(e.backoff, maxBackoff, attempt)
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Model() string { return e.model }
