// Package aptitude assembles aptitude test papers from the shared question
// bank according to each company's topic configuration.
package aptitude

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/storage"
)

const (
	defaultCount       = 10
	defaultBatchSize   = 50
	defaultConcurrency = 4
)

var ErrNoQuestions = errors.New("no questions found matching this company's configuration")

type Config struct {
	// DefaultCount is the paper size for companies without a topic configuration.
	DefaultCount int
	// BatchSize is the minimum number of questions fetched per topic before sampling.
	BatchSize int
}

// PaperQuestion is a question as handed to a candidate, without its answer.
type PaperQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Topic    string   `json:"topic,omitempty"`
}

type Generator struct {
	store  storage.Store
	cfg    Config
	logger *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(store storage.Store, cfg Config, log *zap.Logger) *Generator {
	return newGenerator(store, cfg, log, rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func newGenerator(store storage.Store, cfg Config, log *zap.Logger, src rand.Source) *Generator {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = defaultCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Generator{
		store:  store,
		cfg:    cfg,
		logger: log,
		rnd:    rand.New(src),
	}
}

// Generate builds a shuffled paper for the company.
func (g *Generator) Generate(ctx context.Context, companyID string) ([]PaperQuestion, error) {
	company, err := g.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("fetch company: %w", err)
	}

	log := g.logger.With(zap.String(logger.FieldCompanyID, companyID))

	var paper []*models.Question
	if len(company.AptitudeConfig) == 0 {
		batch, err := g.store.ListQuestions(ctx, "", g.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("fetch questions: %w", err)
		}
		paper = g.sample(batch, g.cfg.DefaultCount)
	} else {
		paper, err = g.byTopic(ctx, company.AptitudeConfig, log)
		if err != nil {
			return nil, err
		}
	}

	if len(paper) == 0 {
		return nil, ErrNoQuestions
	}

	g.shuffle(paper)

	out := make([]PaperQuestion, 0, len(paper))
	for _, q := range paper {
		out = append(out, PaperQuestion{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Topic:    q.Topic,
		})
	}

	log.Info("aptitude paper generated", zap.Int("questions", len(out)))
	return out, nil
}

// byTopic fetches every configured topic concurrently and samples each one.
// A topic that fails to load is logged and left out of the paper.
func (g *Generator) byTopic(ctx context.Context, config map[string]int, log *zap.Logger) ([]*models.Question, error) {
	topics := make([]string, 0, len(config))
	for topic, count := range config {
		if count > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)

	batches := make([][]*models.Question, len(topics))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(defaultConcurrency)

	for i, topic := range topics {
		limit := max(config[topic]*3, g.cfg.BatchSize)
		eg.Go(func() error {
			batch, err := g.store.ListQuestions(egCtx, topic, limit)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("skipping aptitude topic", zap.String("topic", topic), zap.Error(err))
				return nil
			}
			batches[i] = batch
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	var paper []*models.Question
	for i, topic := range topics {
		paper = append(paper, g.sample(batches[i], config[topic])...)
	}
	return paper, nil
}

// sample returns up to n distinct questions picked at random from batch.
func (g *Generator) sample(batch []*models.Question, n int) []*models.Question {
	if n <= 0 || len(batch) == 0 {
		return nil
	}

	picked := append([]*models.Question(nil), batch...)
	g.shuffle(picked)
	return picked[:min(n, len(picked))]
}

func (g *Generator) shuffle(qs []*models.Question) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rnd.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
