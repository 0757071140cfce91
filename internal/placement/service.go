// Package placement wires candidate profiles, jobs and the embedder around
// the match scorer. It owns the lookups and validation that happen before a
// score is computed; the score itself always comes from package match.
package placement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/embedding"
	"github.com/spigell/placement-assistant/internal/filtering"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/storage"
	"github.com/spigell/placement-assistant/internal/utils"
)

const (
	defaultMinResumeLength      = 50
	defaultMinDescriptionLength = 20
	defaultMinScore             = 50
	maxLogLength                = 120
)

type Config struct {
	// Dimension is the expected embedding length; 0 accepts whatever the embedder returns.
	Dimension            int
	MinResumeLength      int
	MinDescriptionLength int
	DefaultMinScore      int
}

func DefaultConfig() Config {
	return Config{
		MinResumeLength:      defaultMinResumeLength,
		MinDescriptionLength: defaultMinDescriptionLength,
		DefaultMinScore:      defaultMinScore,
	}
}

type Service struct {
	store    storage.Store
	embedder embedding.Embedder
	cfg      Config
	logger   *zap.Logger
}

func New(store storage.Store, embedder embedding.Embedder, cfg Config, log *zap.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.MinResumeLength <= 0 {
		cfg.MinResumeLength = defaults.MinResumeLength
	}
	if cfg.MinDescriptionLength <= 0 {
		cfg.MinDescriptionLength = defaults.MinDescriptionLength
	}
	if cfg.DefaultMinScore < match.MinThreshold || cfg.DefaultMinScore > match.MaxThreshold {
		cfg.DefaultMinScore = defaults.DefaultMinScore
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.WithCommonFields(log, providerName(embedder), embedder.Model()),
	}
}

func providerName(e embedding.Embedder) string {
	name := fmt.Sprintf("%T", e)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

type MatchRequest struct {
	UserID string `json:"user_id" binding:"required"`
	JobID  string `json:"job_id" binding:"required"`
}

// MatchReport is a match result together with the context a candidate needs
// to act on it.
type MatchReport struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	JobID       string `json:"job_id"`
	JobTitle    string `json:"job_title"`
	CompanyName string `json:"company_name"`
	MinScore    int    `json:"min_score_required"`
	Analysis    string `json:"analysis"`
	Advice      string `json:"advice"`

	match.Result
}

// Match scores a candidate against a job using the job's own threshold.
func (s *Service) Match(ctx context.Context, req MatchRequest) (*MatchReport, error) {
	log := s.logger.With(logger.MatchFields(req.UserID, req.JobID)...)

	profile, err := s.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}
	if !profile.HasEmbedding() {
		return nil, ErrResumeMissing
	}

	job, err := s.store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job: %w", err)
	}
	if len(job.RequiredSkillsEmbedding) == 0 {
		return nil, ErrJobEmbeddingMissing
	}

	result, err := match.Compute(profile.SkillsEmbedding, job.RequiredSkillsEmbedding, job.MinScore)
	if err != nil {
		log.Warn("match computation failed", zap.Error(err))
		return nil, err
	}

	log.Info("match computed",
		zap.Float64("score", result.Score),
		zap.Int("min_score", job.MinScore),
		zap.Bool("meets_threshold", result.MeetsThreshold),
	)

	return &MatchReport{
		UserID:      profile.ID,
		UserName:    displayName(profile),
		JobID:       job.ID,
		JobTitle:    job.Title,
		CompanyName: job.CompanyName,
		MinScore:    job.MinScore,
		Analysis:    Analysis(result.Score, job.Title),
		Advice:      Advice(result.MeetsThreshold, job.MinScore),
		Result:      *result,
	}, nil
}

// Advice tells the candidate whether to apply.
func Advice(meetsThreshold bool, minScore int) string {
	if meetsThreshold {
		return "Apply now!"
	}
	return fmt.Sprintf("Consider improving your profile to meet the %d%% threshold.", minScore)
}

// Analysis is a readable summary of score for the given job title.
func Analysis(score float64, jobTitle string) string {
	switch {
	case score >= 85:
		return fmt.Sprintf("Excellent match! Your skills align very well with the %s position. You have a strong chance of success in this role.", jobTitle)
	case score >= 70:
		return fmt.Sprintf("Good match! Your profile shows solid compatibility with the %s role. Consider highlighting your relevant experience.", jobTitle)
	case score >= 50:
		return fmt.Sprintf("Moderate match for %s. You have some relevant skills, but may want to develop expertise in key areas mentioned in the job description.", jobTitle)
	case score >= 30:
		return fmt.Sprintf("Low match for %s. Consider gaining more experience in the required skills before applying, or look for more entry-level positions.", jobTitle)
	default:
		return fmt.Sprintf("Limited match for %s. This role may require significant skill development. Consider exploring related positions that better match your current profile.", jobTitle)
	}
}

func displayName(p *models.Profile) string {
	if strings.TrimSpace(p.FullName) == "" {
		return "User"
	}
	return p.FullName
}

type MatchStatus struct {
	UserID           string `json:"user_id"`
	UserName         string `json:"user_name"`
	ReadyForMatching bool   `json:"ready_for_matching"`
	HasResume        bool   `json:"has_resume"`
	Message          string `json:"message"`
}

func (s *Service) MatchStatus(ctx context.Context, userID string) (*MatchStatus, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}

	status := &MatchStatus{
		UserID:           profile.ID,
		UserName:         displayName(profile),
		ReadyForMatching: profile.HasEmbedding(),
		HasResume:        profile.HasResume(),
		Message:          "Please upload your resume first to enable job matching.",
	}
	if status.ReadyForMatching {
		status.Message = "Ready for job matching!"
	}
	return status, nil
}

type ResumeUpload struct {
	UserID   string
	Filename string
	Text     string
}

type ResumeReceipt struct {
	UserID              string   `json:"user_id"`
	Filename            string   `json:"filename"`
	TextLength          int      `json:"text_length"`
	EmbeddingDimensions int      `json:"embedding_dimensions"`
	Skills              []string `json:"skills"`
}

// UploadResume embeds the resume text and stores it as the candidate's skills embedding.
func (s *Service) UploadResume(ctx context.Context, upload ResumeUpload) (*ResumeReceipt, error) {
	if strings.TrimSpace(upload.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	if _, err := s.store.GetProfile(ctx, upload.UserID); err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}

	text := utils.CollapseWhitespace(upload.Text)
	if len([]rune(text)) < s.cfg.MinResumeLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrResumeTooShort, s.cfg.MinResumeLength)
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfileResume(ctx, upload.UserID, vector, models.ResumeUploaded); err != nil {
		return nil, fmt.Errorf("store resume embedding: %w", err)
	}

	s.logger.Info("resume processed",
		zap.String(logger.FieldUserID, upload.UserID),
		zap.String("filename", upload.Filename),
		zap.Int("text_length", len([]rune(text))),
		zap.Int("dimensions", vector.Dimension()),
	)

	return &ResumeReceipt{
		UserID:              upload.UserID,
		Filename:            upload.Filename,
		TextLength:          len([]rune(text)),
		EmbeddingDimensions: vector.Dimension(),
		Skills:              ExtractSkills(text),
	}, nil
}

func (s *Service) embed(ctx context.Context, text string) (match.Embedding, error) {
	s.logger.Debug("embedding text", zap.String("text", utils.TruncateForLog(text, maxLogLength)))

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}

	// Not a scoring error: the caller sent nothing wrong.
	vector, err = match.NewEmbeddingOfDimension(vector, s.cfg.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderOutput, err)
	}
	return vector, nil
}

type ResumeStatus struct {
	UserID       string `json:"user_id"`
	HasResume    bool   `json:"has_resume"`
	HasEmbedding bool   `json:"has_embedding"`
	Status       string `json:"status"`
}

func (s *Service) ResumeStatus(ctx context.Context, userID string) (*ResumeStatus, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}

	status := &ResumeStatus{
		UserID:       profile.ID,
		HasResume:    profile.ResumeURL == models.ResumeUploaded,
		HasEmbedding: profile.HasEmbedding(),
		Status:       "incomplete",
	}
	if status.HasResume && status.HasEmbedding {
		status.Status = "complete"
	}
	return status, nil
}

func (s *Service) CreateProfile(ctx context.Context, fullName string) (*models.Profile, error) {
	p := &models.Profile{FullName: strings.TrimSpace(fullName)}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *Service) CreateCompany(ctx context.Context, name string, aptitudeConfig map[string]int) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}

	for topic, count := range aptitudeConfig {
		if strings.TrimSpace(topic) == "" || count < 0 {
			return nil, fmt.Errorf("%w: aptitude config entry %q=%d", ErrInvalidInput, topic, count)
		}
	}

	c := &models.Company{Name: name, AptitudeConfig: aptitudeConfig}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.logger.Info("company created", zap.String(logger.FieldCompanyID, c.ID), zap.String("name", c.Name))
	return c, nil
}

type JobInput struct {
	CompanyID   string `json:"company_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	// MinScore defaults to the configured default when nil.
	MinScore *int `json:"min_score"`
}

// CreateJob embeds the job description and stores the job. The minimum score
// is fixed at creation.
func (s *Service) CreateJob(ctx context.Context, in JobInput) (*models.Job, error) {
	company, err := s.store.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch company: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	description := strings.TrimSpace(in.Description)
	if len([]rune(description)) < s.cfg.MinDescriptionLength {
		return nil, fmt.Errorf("%w: must be at least %d characters long", ErrDescriptionTooShort, s.cfg.MinDescriptionLength)
	}

	minScore := s.cfg.DefaultMinScore
	if in.MinScore != nil {
		minScore = *in.MinScore
	}
	if minScore < match.MinThreshold || minScore > match.MaxThreshold {
		return nil, fmt.Errorf("%w: min_score %d is outside [%d, %d]",
			match.ErrThresholdOutOfRange, minScore, match.MinThreshold, match.MaxThreshold)
	}

	vector, err := s.embed(ctx, description)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		CompanyID:               company.ID,
		CompanyName:             company.Name,
		Title:                   title,
		Description:             in.Description,
		MinScore:                minScore,
		RequiredSkillsEmbedding: vector,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job created",
		zap.String(logger.FieldJobID, job.ID),
		zap.String(logger.FieldCompanyID, job.CompanyID),
		zap.Int("min_score", job.MinScore),
	)
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, companyID string) ([]*models.Job, error) {
	jobs, err := s.store.ListJobs(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	return jobs, nil
}

func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.logger.Info("job deleted", zap.String(logger.FieldJobID, jobID))
	return nil
}

type RecommendRequest struct {
	UserID string
	// CompanyID restricts scoring to one company's jobs when set.
	CompanyID        string
	MinScore         float64
	Limit            int
	OnlyQualifying   bool
	ExcludeCompanies []string
}

// Recommend scores the candidate against every job and returns the ones that
// pass the requested filters, best first. Jobs that cannot be scored are
// skipped.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (*models.Recommendations, error) {
	profile, err := s.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}
	if !profile.HasEmbedding() {
		return nil, ErrResumeMissing
	}

	jobs, err := s.store.ListJobs(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}

	recs := &models.Recommendations{Items: make([]*models.Recommendation, 0, len(jobs))}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := match.Compute(profile.SkillsEmbedding, job.RequiredSkillsEmbedding, job.MinScore)
		if err != nil {
			s.logger.Warn("skipping job that cannot be scored",
				append(logger.MatchFields(profile.ID, job.ID), zap.Error(err))...,
			)
			continue
		}
		recs.Items = append(recs.Items, models.NewRecommendation(job, result))
	}

	steps := []filtering.Filter{
		filtering.NewThreshold(req.OnlyQualifying, s.logger),
		filtering.NewMinScore(req.MinScore, s.logger),
		filtering.NewExcludedCompanies(req.ExcludeCompanies, s.logger),
		filtering.NewLimit(req.Limit),
	}

	pipeline := filtering.New(steps, s.logger)
	// Jobs were already fetched for a single company, exclusions of others change nothing.
	if req.CompanyID != "" && !slices.Contains(req.ExcludeCompanies, req.CompanyID) {
		pipeline.DisableByName("companies", "scoped to company "+req.CompanyID)
	}
	s.logger.Debug("recommendation filters", zap.Any("filters", pipeline.Describe()))

	filtered, err := pipeline.RunFilters(ctx, recs)
	if err != nil {
		if errors.Is(err, match.ErrThresholdOutOfRange) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	filtered.SortByScore()

	s.logger.Info("recommendations computed",
		zap.String(logger.FieldUserID, profile.ID),
		zap.Int("jobs", len(jobs)),
		zap.Int("recommended", filtered.Len()),
	)
	return filtered, nil
}
