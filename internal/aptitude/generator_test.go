package aptitude

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/storage"
	"github.com/spigell/placement-assistant/internal/storage/memory"
)

// failingStore fails question lookups for one topic.
type failingStore struct {
	*memory.Storage
	topic string
}

func (s *failingStore) ListQuestions(ctx context.Context, topic string, limit int) ([]*models.Question, error) {
	if topic == s.topic {
		return nil, errors.New("connection reset")
	}
	return s.Storage.ListQuestions(ctx, topic, limit)
}

func seed(t *testing.T, store storage.Store, topic string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		q := &models.Question{
			Question:      fmt.Sprintf("%s question %d", topic, i),
			Options:       []string{"1", "2", "3", "4"},
			CorrectAnswer: "A",
			Topic:         topic,
		}
		if err := store.CreateQuestion(context.Background(), q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
}

func company(t *testing.T, store storage.Store, config map[string]int) string {
	t.Helper()

	c := &models.Company{Name: "Acme", AptitudeConfig: config}
	if err := store.CreateCompany(context.Background(), c); err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c.ID
}

func topics(paper []PaperQuestion) map[string]int {
	out := map[string]int{}
	for _, q := range paper {
		out[q.Topic]++
	}
	return out
}

func TestGenerateByTopic(t *testing.T) {
	t.Parallel()

	store := memory.NewStorage()
	seed(t, store, "logic", 8)
	seed(t, store, "math", 2)
	seed(t, store, "verbal", 5)
	id := company(t, store, map[string]int{"logic": 3, "math": 5, "verbal": 0})

	g := newGenerator(store, Config{}, zap.NewNop(), rand.NewPCG(1, 2))

	paper, err := g.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := topics(paper)
	if got["logic"] != 3 || got["math"] != 2 || got["verbal"] != 0 {
		t.Fatalf("unexpected topic distribution: %v", got)
	}

	seen := map[string]bool{}
	for _, q := range paper {
		if seen[q.ID] {
			t.Fatalf("question %s sampled twice", q.ID)
		}
		seen[q.ID] = true
		if len(q.Options) != 4 {
			t.Fatalf("unexpected options: %v", q.Options)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	store := memory.NewStorage()
	seed(t, store, "logic", 20)
	id := company(t, store, map[string]int{"logic": 5})

	first, err := newGenerator(store, Config{}, nil, rand.NewPCG(3, 4)).Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := newGenerator(store, Config{}, nil, rand.NewPCG(3, 4)).Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("expected identical papers for identical seeds")
		}
	}
}

func TestGenerateWithoutConfig(t *testing.T) {
	t.Parallel()

	store := memory.NewStorage()
	seed(t, store, "logic", 30)
	seed(t, store, "math", 30)
	id := company(t, store, nil)

	paper, err := newGenerator(store, Config{BatchSize: 40}, nil, rand.NewPCG(5, 6)).Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paper) != defaultCount {
		t.Fatalf("expected %d questions, got %d", defaultCount, len(paper))
	}

	small := memory.NewStorage()
	seed(t, small, "logic", 3)
	id = company(t, small, map[string]int{})

	paper, err = newGenerator(small, Config{}, nil, rand.NewPCG(5, 6)).Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paper) != 3 {
		t.Fatalf("expected every available question, got %d", len(paper))
	}
}

func TestGenerateSkipsFailingTopic(t *testing.T) {
	t.Parallel()

	store := &failingStore{Storage: memory.NewStorage(), topic: "broken"}
	seed(t, store, "logic", 4)
	id := company(t, store, map[string]int{"logic": 2, "broken": 2})

	core, logs := observer.New(zapcore.WarnLevel)
	paper, err := newGenerator(store, Config{}, zap.New(core), rand.NewPCG(7, 8)).Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := topics(paper); got["logic"] != 2 || len(got) != 1 {
		t.Fatalf("unexpected topic distribution: %v", got)
	}

	entries := logs.FilterMessage("skipping aptitude topic").All()
	if len(entries) != 1 || entries[0].ContextMap()["topic"] != "broken" {
		t.Fatalf("expected the failing topic to be logged, got %v", entries)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	store := memory.NewStorage()
	g := newGenerator(store, Config{}, nil, rand.NewPCG(9, 10))

	if _, err := g.Generate(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id := company(t, store, map[string]int{"chemistry": 5})
	if _, err := g.Generate(context.Background(), id); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	failing := &failingStore{Storage: store, topic: "chemistry"}
	if _, err := newGenerator(failing, Config{}, nil, rand.NewPCG(1, 1)).Generate(ctx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
