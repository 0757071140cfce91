package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/models"
)

type Jobs struct {
	Items []*models.Job
}

type itemResponse struct {
	Status string
	Count  int
	Jobs   []any
}

// ListJobs returns the server's jobs, optionally for a single company.
func (c *Client) ListJobs(companyID string) (*Jobs, error) {
	q := url.Values{}
	if companyID != "" {
		q.Set("company_id", companyID)
	}

	var response itemResponse
	if err := c.getJSON(c.APIURL+"/jobs/list", q, &response); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	c.logger.Debug("got jobs from server", zap.Int("count", response.Count))

	jobs, err := decodeJobs(response.Jobs)
	if err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	return &Jobs{Items: jobs}, nil
}

func decodeJobs(items []any) ([]*models.Job, error) {
	var jobs []*models.Job

	cfg := &mapstructure.DecoderConfig{
		Result:     &jobs,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(items); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

// Titles renders the jobs for a picker, one "<title> at <company> (min N%)" per job.
func (j *Jobs) Titles() []string {
	titles := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		titles = append(titles, fmt.Sprintf("%s at %s (min %d%%)", job.Title, job.CompanyName, job.MinScore))
	}
	return titles
}

func (j *Jobs) FindByID(id string) *models.Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}
