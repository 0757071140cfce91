// Package httpapi exposes the placement service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/aptitude"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/placement"
)

const (
	defaultAddress         = ":8000"
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxUploadBytes  = 5 << 20
)

// Service is the part of placement.Service the HTTP layer needs.
type Service interface {
	CreateProfile(ctx context.Context, fullName string) (*models.Profile, error)
	Match(ctx context.Context, req placement.MatchRequest) (*placement.MatchReport, error)
	MatchStatus(ctx context.Context, userID string) (*placement.MatchStatus, error)
	Recommend(ctx context.Context, req placement.RecommendRequest) (*models.Recommendations, error)
	UploadResume(ctx context.Context, upload placement.ResumeUpload) (*placement.ResumeReceipt, error)
	ResumeStatus(ctx context.Context, userID string) (*placement.ResumeStatus, error)
	CreateCompany(ctx context.Context, name string, aptitudeConfig map[string]int) (*models.Company, error)
	CreateJob(ctx context.Context, in placement.JobInput) (*models.Job, error)
	ListJobs(ctx context.Context, companyID string) ([]*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

type PaperGenerator interface {
	Generate(ctx context.Context, companyID string) ([]aptitude.PaperQuestion, error)
}

type Config struct {
	Address         string
	Mode            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	Version         string
}

type Server struct {
	svc    Service
	papers PaperGenerator
	cfg    Config
	logger *zap.Logger
	engine *gin.Engine
}

var registerValidations sync.Once

func New(svc Service, papers PaperGenerator, cfg Config, logger *zap.Logger) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registerValidations.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
				logger.Fatal("registering notblank validation", zap.Error(err))
			}
		}
	})

	s := &Server{
		svc:    svc,
		papers: papers,
		cfg:    cfg,
		logger: logger,
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MaxUploadBytes
	engine.Use(RequestID(), Logging(logger), Recovery(logger))
	s.routes(engine)
	s.engine = engine

	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.root)
	r.GET("/health", s.health)

	r.POST("/profiles", s.createProfile)

	m := r.Group("/match")
	{
		m.POST("", s.match)
		m.GET("/status/:user_id", s.matchStatus)
		m.GET("/recommendations/:user_id", s.recommendations)
	}

	resume := r.Group("/resume")
	{
		resume.POST("/upload", s.uploadResume)
		resume.GET("/status/:user_id", s.resumeStatus)
	}

	r.POST("/companies", s.createCompany)

	jobs := r.Group("/jobs")
	{
		jobs.POST("/create", s.createJob)
		jobs.GET("/list", s.listJobs)
		jobs.DELETE("/:job_id", s.deleteJob)
	}

	r.GET("/aptitude/generate/:company_id", s.generatePaper)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
