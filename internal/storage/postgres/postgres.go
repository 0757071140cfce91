// Package postgres implements storage.Store on top of a pgx connection pool.
// Embeddings live in pgvector columns and travel as their text form.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/embedding"
	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/storage"
)

type Storage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ storage.Store = (*Storage)(nil)

// New connects to dsn and verifies the connection.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("connected to database",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
	)

	return &Storage{pool: pool, logger: logger}, nil
}

//go:embed schema.sql
var schema string

// Migrate creates the tables the store needs when they are missing.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("database schema applied")
	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, full_name, skills_embedding, resume_url)
		VALUES ($1, $2, $3::vector, NULLIF($4, ''))
	`, p.ID, p.FullName, vectorArg(p.SkillsEmbedding), p.ResumeURL)
	if err != nil {
		return fmt.Errorf("insert profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if !validID(id) {
		return nil, missing("profile", id)
	}
	var (
		p         models.Profile
		vector    *string
		resumeURL *string
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, full_name, skills_embedding::text, resume_url
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.FullName, &vector, &resumeURL)
	if err != nil {
		return nil, notFound(err, "profile", id)
	}

	if p.SkillsEmbedding, err = parseVector(vector); err != nil {
		return nil, fmt.Errorf("profile %s skills embedding: %w", id, err)
	}
	if resumeURL != nil {
		p.ResumeURL = *resumeURL
	}
	return &p, nil
}

func (s *Storage) UpdateProfileResume(ctx context.Context, id string, e match.Embedding, resumeURL string) error {
	if !validID(id) {
		return missing("profile", id)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET skills_embedding = $2::vector, resume_url = $3
		WHERE id = $1
	`, id, vectorArg(e), resumeURL)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return missing("profile", id)
	}
	return nil
}

func (s *Storage) CreateCompany(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	config, err := json.Marshal(c.AptitudeConfig)
	if err != nil {
		return fmt.Errorf("encode aptitude config: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO companies (id, name, aptitude_config) VALUES ($1, $2, $3::jsonb)
	`, c.ID, c.Name, string(config)); err != nil {
		return fmt.Errorf("insert company %s: %w", c.ID, err)
	}
	return nil
}

func (s *Storage) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	if !validID(id) {
		return nil, missing("company", id)
	}
	var (
		c      models.Company
		config []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, aptitude_config FROM companies WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &config)
	if err != nil {
		return nil, notFound(err, "company", id)
	}

	if c.AptitudeConfig, err = decodeAptitudeConfig(config); err != nil {
		return nil, fmt.Errorf("company %s: %w", id, err)
	}
	return &c, nil
}

func (s *Storage) CreateJob(ctx context.Context, j *models.Job) error {
	if !validID(j.CompanyID) {
		return missing("company", j.CompanyID)
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}

	err := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO jobs (id, company_id, title, description, min_score, required_skills_embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)
			RETURNING company_id, created_at
		)
		SELECT c.name, i.created_at FROM inserted i JOIN companies c ON c.id = i.company_id
	`, j.ID, j.CompanyID, j.Title, j.Description, j.MinScore, vectorArg(j.RequiredSkillsEmbedding)).
		Scan(&j.CompanyName, &j.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return missing("company", j.CompanyID)
		}
		return fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	return nil
}

const jobColumns = `
	j.id, j.company_id, c.name, j.title, j.description, j.min_score,
	j.required_skills_embedding::text, j.created_at
`

func (s *Storage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if !validID(id) {
		return nil, missing("job", id)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN companies c ON c.id = j.company_id
		WHERE j.id = $1
	`, id)

	j, err := scanJob(row)
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return j, nil
}

func (s *Storage) ListJobs(ctx context.Context, companyID string) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN companies c ON c.id = j.company_id
		WHERE $1 = '' OR j.company_id::text = $1
		ORDER BY j.created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *Storage) DeleteJob(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("job", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return missing("job", id)
	}
	return nil
}

func (s *Storage) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO questions (id, question, options, correct_answer, topic)
		VALUES ($1, $2, $3::jsonb, $4, $5)
	`, q.ID, q.Question, string(options), q.CorrectAnswer, q.Topic); err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID, err)
	}
	return nil
}

func (s *Storage) ListQuestions(ctx context.Context, topic string, limit int) ([]*models.Question, error) {
	query := `
		SELECT id, question, options, correct_answer, topic
		FROM questions
		WHERE $1 = '' OR topic = $1
		ORDER BY id
	`
	args := []any{topic}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Question, 0)
	for rows.Next() {
		var (
			q       models.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Question, &options, &q.CorrectAnswer, &q.Topic); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if q.Options, err = decodeOptions(options); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		out = append(out, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return out, nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j      models.Job
		vector *string
	)

	if err := row.Scan(&j.ID, &j.CompanyID, &j.CompanyName, &j.Title, &j.Description,
		&j.MinScore, &vector, &j.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if j.RequiredSkillsEmbedding, err = parseVector(vector); err != nil {
		return nil, fmt.Errorf("job %s required skills embedding: %w", j.ID, err)
	}
	return &j, nil
}

// validID reports whether id can be compared against a UUID column; anything
// else cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return missing(kind, id)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// vectorArg renders e for a $n::vector placeholder; nil keeps the column NULL.
func vectorArg(e match.Embedding) *string {
	if len(e) == 0 {
		return nil
	}
	v := embedding.Format(e)
	return &v
}

func parseVector(v *string) (match.Embedding, error) {
	if v == nil {
		return nil, nil
	}
	return embedding.Parse(*v)
}

func decodeAptitudeConfig(raw []byte) (map[string]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var config map[string]int
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("decode aptitude config: %w", err)
	}
	return config, nil
}

// optionKeys is the order options are read from a keyed options object.
var optionKeys = []string{"A", "B", "C", "D"}

// decodeOptions accepts either a JSON list or an object keyed by option
// letter; missing letters become empty options.
func decodeOptions(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		return list, nil
	}

	var keyed map[string]string
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}

	out := make([]string, 0, len(optionKeys))
	for _, k := range optionKeys {
		out = append(out, keyed[k])
	}
	return out, nil
}
