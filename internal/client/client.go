// Package client talks to a running placement server. It backs the CLI
// commands that work against a remote instance.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIURL = "http://localhost:8000"
	userAgent     = "spigell/placement-assistant"
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(ctx context.Context, logger *zap.Logger, apiURL string) *Client {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		ctx:    ctx,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

type MatchDetails struct {
	UserName         string `json:"user_name"`
	JobTitle         string `json:"job_title"`
	CompanyName      string `json:"company_name"`
	MinScoreRequired int    `json:"min_score_required"`
	MeetsThreshold   bool   `json:"meets_threshold"`
	Recommendation   string `json:"recommendation"`
	Tier             string `json:"tier"`
	Summary          string `json:"summary"`
}

type MatchResponse struct {
	Status     string       `json:"status"`
	MatchScore float64      `json:"match_score"`
	Analysis   string       `json:"analysis"`
	Details    MatchDetails `json:"details"`
}

func (c *Client) Match(userID, jobID string) (*MatchResponse, error) {
	var resp MatchResponse
	body := map[string]string{"user_id": userID, "job_id": jobID}
	if err := c.postJSON(c.APIURL+"/match", body, &resp); err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	return &resp, nil
}

type MatchStatus struct {
	UserID           string `json:"user_id"`
	UserName         string `json:"user_name"`
	ReadyForMatching bool   `json:"ready_for_matching"`
	HasResume        bool   `json:"has_resume"`
	Message          string `json:"message"`
}

func (c *Client) MatchStatus(userID string) (*MatchStatus, error) {
	var status MatchStatus
	if err := c.getJSON(c.APIURL+"/match/status/"+url.PathEscape(userID), nil, &status); err != nil {
		return nil, fmt.Errorf("match status: %w", err)
	}
	return &status, nil
}

type UploadReceipt struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		UserID              string   `json:"user_id"`
		Filename            string   `json:"filename"`
		TextLength          int      `json:"text_length"`
		EmbeddingDimensions int      `json:"embedding_dimensions"`
		Skills              []string `json:"skills"`
	} `json:"details"`
}

// UploadResume sends plain resume text for the user.
func (c *Client) UploadResume(userID, filename, text string) (*UploadReceipt, error) {
	var receipt UploadReceipt
	fields := map[string]string{"user_id": userID}
	if err := c.postFormData(c.APIURL+"/resume/upload", fields, filename, text, &receipt); err != nil {
		return nil, fmt.Errorf("upload resume: %w", err)
	}
	return &receipt, nil
}
