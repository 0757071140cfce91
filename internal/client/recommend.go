package client

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spigell/placement-assistant/internal/models"
)

type RecommendOptions struct {
	MinScore         float64
	Limit            int
	OnlyQualifying   bool
	CompanyID        string
	ExcludeCompanies []string
}

func (o RecommendOptions) query() url.Values {
	q := url.Values{}
	if o.MinScore > 0 {
		q.Set("min_score", strconv.FormatFloat(o.MinScore, 'f', -1, 64))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.OnlyQualifying {
		q.Set("qualifying", "true")
	}
	if o.CompanyID != "" {
		q.Set("company_id", o.CompanyID)
	}
	for _, id := range o.ExcludeCompanies {
		q.Add("exclude_company", id)
	}
	return q
}

// Recommend fetches the ranked jobs for a user.
func (c *Client) Recommend(userID string, opts RecommendOptions) (*models.Recommendations, error) {
	var response struct {
		Count           int                      `json:"count"`
		Recommendations []*models.Recommendation `json:"recommendations"`
	}

	path := c.APIURL + "/match/recommendations/" + url.PathEscape(userID)
	if err := c.getJSON(path, opts.query(), &response); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	return &models.Recommendations{Items: response.Recommendations}, nil
}
