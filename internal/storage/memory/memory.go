// Package memory is an in-process Store guarded by a RWMutex.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/storage"
)

type jobEntry struct {
	job *models.Job
	seq int
}

type Storage struct {
	mu        sync.RWMutex
	profiles  map[string]*models.Profile
	companies map[string]*models.Company
	jobs      map[string]*jobEntry
	questions []*models.Question
	seq       int
	now       func() time.Time
}

var _ storage.Store = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{
		profiles:  make(map[string]*models.Profile),
		companies: make(map[string]*models.Company),
		jobs:      make(map[string]*jobEntry),
		now:       time.Now,
	}
}

func (s *Storage) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := s.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s already exists", p.ID)
	}

	s.profiles[p.ID] = copyProfile(p)
	return nil
}

func (s *Storage) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}
	return copyProfile(p), nil
}

func (s *Storage) UpdateProfileResume(_ context.Context, id string, embedding match.Embedding, resumeURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}

	p.SkillsEmbedding = copyEmbedding(embedding)
	p.ResumeURL = resumeURL
	return nil
}

func (s *Storage) CreateCompany(_ context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.companies[c.ID]; ok {
		return fmt.Errorf("company %s already exists", c.ID)
	}

	s.companies[c.ID] = copyCompany(c)
	return nil
}

func (s *Storage) GetCompany(_ context.Context, id string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", id, storage.ErrNotFound)
	}
	return copyCompany(c), nil
}

func (s *Storage) CreateJob(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[j.CompanyID]
	if !ok {
		return fmt.Errorf("company %s: %w", j.CompanyID, storage.ErrNotFound)
	}

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now().UTC()
	}
	j.CompanyName = company.Name

	s.seq++
	s.jobs[j.ID] = &jobEntry{job: copyJob(j), seq: s.seq}
	return nil
}

func (s *Storage) GetJob(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, storage.ErrNotFound)
	}
	return copyJob(e.job), nil
}

func (s *Storage) ListJobs(_ context.Context, companyID string) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		if companyID != "" && e.job.CompanyID != companyID {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		return a.seq > b.seq
	})

	jobs := make([]*models.Job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, copyJob(e.job))
	}
	return jobs, nil
}

func (s *Storage) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, storage.ErrNotFound)
	}
	delete(s.jobs, id)
	return nil
}

func (s *Storage) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	c := *q
	c.Options = append([]string(nil), q.Options...)
	s.questions = append(s.questions, &c)
	return nil
}

func (s *Storage) ListQuestions(_ context.Context, topic string, limit int) ([]*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Question, 0)
	for _, q := range s.questions {
		if limit > 0 && len(out) >= limit {
			break
		}
		if topic != "" && q.Topic != topic {
			continue
		}
		c := *q
		c.Options = append([]string(nil), q.Options...)
		out = append(out, &c)
	}
	return out, nil
}

func (s *Storage) Close() {}

func copyEmbedding(e match.Embedding) match.Embedding {
	if e == nil {
		return nil
	}
	return append(match.Embedding(nil), e...)
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.SkillsEmbedding = copyEmbedding(p.SkillsEmbedding)
	return &c
}

func copyCompany(c *models.Company) *models.Company {
	out := *c
	if c.AptitudeConfig != nil {
		out.AptitudeConfig = maps.Clone(c.AptitudeConfig)
	}
	return &out
}

func copyJob(j *models.Job) *models.Job {
	c := *j
	c.RequiredSkillsEmbedding = copyEmbedding(j.RequiredSkillsEmbedding)
	return &c
}
