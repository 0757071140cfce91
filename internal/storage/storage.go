// Package storage defines persistence for profiles, companies, jobs and the
// aptitude question bank.
package storage

import (
	"context"
	"errors"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists placement records. Create methods assign a UUID when the
// record has no ID.
type Store interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfileResume(ctx context.Context, id string, embedding match.Embedding, resumeURL string) error

	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompany(ctx context.Context, id string) (*models.Company, error)

	CreateJob(ctx context.Context, j *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// ListJobs returns jobs newest first. An empty companyID lists every job.
	ListJobs(ctx context.Context, companyID string) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error

	CreateQuestion(ctx context.Context, q *models.Question) error
	// ListQuestions returns at most limit questions. An empty topic matches any topic.
	ListQuestions(ctx context.Context, topic string, limit int) ([]*models.Question, error)

	Close()
}
