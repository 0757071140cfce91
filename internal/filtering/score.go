package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
)

type thresholdFilter struct {
	toggle
	logger *zap.Logger
}

// NewThreshold creates a filter that keeps only jobs whose own minimum score is met.
func NewThreshold(enabled bool, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &thresholdFilter{toggle: toggle{enabled: enabled}, logger: logger}
}

func (f *thresholdFilter) Name() string { return "threshold" }

func (f *thresholdFilter) Validate() error { return nil }

func (f *thresholdFilter) Apply(_ context.Context, r *models.Recommendations) (*models.Recommendations, Step, error) {
	initial := r.Len()
	excluded := r.ExcludeFunc(func(rec *models.Recommendation) bool {
		return !rec.MeetsThreshold
	})

	if len(excluded) > 0 {
		f.logger.Debug("excluding jobs below their threshold",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *thresholdFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}

type minScoreFilter struct {
	toggle
	minScore float64
	logger   *zap.Logger
}

// NewMinScore creates a filter that drops jobs scored below minScore,
// regardless of each job's own threshold. Zero disables the step.
func NewMinScore(minScore float64, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &minScoreFilter{
		toggle:   toggle{enabled: minScore > 0},
		minScore: minScore,
		logger:   logger,
	}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Validate() error {
	if f.minScore < match.MinThreshold || f.minScore > match.MaxThreshold {
		return fmt.Errorf("%w: %v", match.ErrThresholdOutOfRange, f.minScore)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, r *models.Recommendations) (*models.Recommendations, Step, error) {
	initial := r.Len()
	excluded := r.ExcludeFunc(func(rec *models.Recommendation) bool {
		return rec.Score < f.minScore
	})

	if len(excluded) > 0 {
		f.logger.Debug("excluding jobs below requested score",
			zap.Float64("min_score", f.minScore),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"min_score": strconv.FormatFloat(f.minScore, 'f', -1, 64)},
	}
}

type limitFilter struct {
	toggle
	limit int
}

// NewLimit creates a filter that keeps the best limit jobs. Zero disables the step.
func NewLimit(limit int) Filter {
	return &limitFilter{toggle: toggle{enabled: limit != 0}, limit: limit}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Validate() error {
	if f.limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", f.limit)
	}
	return nil
}

func (f *limitFilter) Apply(_ context.Context, r *models.Recommendations) (*models.Recommendations, Step, error) {
	initial := r.Len()
	r.SortByScore()
	dropped := r.Truncate(f.limit)

	return r, Step{Initial: initial, Dropped: len(dropped), Left: r.Len()}, nil
}

func (f *limitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"limit": strconv.Itoa(f.limit)},
	}
}
