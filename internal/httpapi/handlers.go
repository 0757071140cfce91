package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/spigell/placement-assistant/internal/placement"
)

var textExtensions = map[string]bool{"": true, ".txt": true, ".md": true, ".text": true}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Placement Assistant API is running",
		"version": s.cfg.Version,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type createProfileRequest struct {
	FullName string `json:"full_name" binding:"required,notblank"`
}

func (s *Server) createProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	profile, err := s.svc.CreateProfile(c.Request.Context(), req.FullName)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "profile": profile})
}

func (s *Server) match(c *gin.Context) {
	var req placement.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	report, err := s.svc.Match(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"match_score": report.Score,
		"analysis":    report.Analysis,
		"details": gin.H{
			"user_name":          report.UserName,
			"job_title":          report.JobTitle,
			"company_name":       report.CompanyName,
			"min_score_required": report.MinScore,
			"meets_threshold":    report.MeetsThreshold,
			"recommendation":     report.Advice,
			"tier":               report.Tier,
			"summary":            report.Recommendation,
		},
	})
}

func (s *Server) matchStatus(c *gin.Context) {
	status, err := s.svc.MatchStatus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type recommendationsQuery struct {
	MinScore         float64  `form:"min_score" binding:"min=0,max=100"`
	Limit            int      `form:"limit" binding:"min=0,max=100"`
	Qualifying       bool     `form:"qualifying"`
	CompanyID        string   `form:"company_id"`
	ExcludeCompanies []string `form:"exclude_company"`
}

func (s *Server) recommendations(c *gin.Context) {
	var q recommendationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}

	recs, err := s.svc.Recommend(c.Request.Context(), placement.RecommendRequest{
		UserID:           c.Param("user_id"),
		CompanyID:        q.CompanyID,
		MinScore:         q.MinScore,
		Limit:            q.Limit,
		OnlyQualifying:   q.Qualifying,
		ExcludeCompanies: q.ExcludeCompanies,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"count":           recs.Len(),
		"recommendations": recs.Items,
	})
}

func (s *Server) uploadResume(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("user_id"))
	if userID == "" {
		s.badRequest(c, errors.New("user_id is required"))
		return
	}

	filename, text, err := s.readResume(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	receipt, err := s.svc.UploadResume(c.Request.Context(), placement.ResumeUpload{
		UserID:   userID,
		Filename: filename,
		Text:     text,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Resume processed successfully",
		"details": receipt,
	})
}

// readResume takes the resume from the "file" part, falling back to the "text" field.
func (s *Server) readResume(c *gin.Context) (string, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			text := c.PostForm("text")
			if strings.TrimSpace(text) == "" {
				return "", "", errors.New("either a file or a text field is required")
			}
			return "", text, nil
		}
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	if !textExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		return "", "", fmt.Errorf("unsupported file %q: only plain text resumes are accepted", header.Filename)
	}
	if header.Size == 0 {
		return "", "", errors.New("uploaded file is empty")
	}

	f, err := header.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > s.cfg.MaxUploadBytes {
		return "", "", fmt.Errorf("uploaded file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	if !utf8.Valid(content) {
		return "", "", errors.New("uploaded file is not valid UTF-8 text")
	}

	return header.Filename, string(content), nil
}

func (s *Server) resumeStatus(c *gin.Context) {
	status, err := s.svc.ResumeStatus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type createCompanyRequest struct {
	Name           string         `json:"name" binding:"required,notblank"`
	AptitudeConfig map[string]int `json:"aptitude_config" binding:"omitempty,dive,keys,notblank,endkeys,min=0"`
}

func (s *Server) createCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	company, err := s.svc.CreateCompany(c.Request.Context(), req.Name, req.AptitudeConfig)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "company": company})
}

func (s *Server) createJob(c *gin.Context) {
	var in placement.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, err)
		return
	}

	job, err := s.svc.CreateJob(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Job created successfully",
		"job": gin.H{
			"id":                   job.ID,
			"company_id":           job.CompanyID,
			"company_name":         job.CompanyName,
			"title":                job.Title,
			"description":          job.Description,
			"min_score":            job.MinScore,
			"created_at":           job.CreatedAt,
			"embedding_dimensions": len(job.RequiredSkillsEmbedding),
		},
	})
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.svc.ListJobs(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"count":  len(jobs),
		"jobs":   jobs,
	})
}

func (s *Server) deleteJob(c *gin.Context) {
	if err := s.svc.DeleteJob(c.Request.Context(), c.Param("job_id")); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Job deleted successfully"})
}

func (s *Server) generatePaper(c *gin.Context) {
	paper, err := s.papers.Generate(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paper)
}
