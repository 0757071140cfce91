package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spigell/placement-assistant/internal/match"
)

const (
	RecommendationJobIDField     = "JobID"
	RecommendationCompanyIDField = "CompanyID"
)

type Recommendations struct {
	Items []*Recommendation `json:"items"`
}

// Recommendation is a scored job for one candidate.
type Recommendation struct {
	JobID       string `json:"job_id"`
	JobTitle    string `json:"job_title"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	MinScore    int    `json:"min_score"`

	match.Result
}

func NewRecommendation(job *Job, result *match.Result) *Recommendation {
	return &Recommendation{
		JobID:       job.ID,
		JobTitle:    job.Title,
		CompanyID:   job.CompanyID,
		CompanyName: job.CompanyName,
		MinScore:    job.MinScore,
		Result:      *result,
	}
}

func (r *Recommendation) GetStringField(name string) string {
	switch name {
	case RecommendationJobIDField:
		return r.JobID
	case RecommendationCompanyIDField:
		return r.CompanyID
	default:
		return ""
	}
}

func (r *Recommendations) Len() int {
	return len(r.Items)
}

// Exclude removes every recommendation whose field equals one of targets and
// returns the removed job ids.
func (r *Recommendations) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}

	return r.ExcludeFunc(func(rec *Recommendation) bool {
		_, ok := set[rec.GetStringField(name)]
		return ok
	})
}

// ExcludeFunc removes recommendations matching drop, keeping the order of the rest.
func (r *Recommendations) ExcludeFunc(drop func(*Recommendation) bool) []string {
	var excluded []string
	kept := r.Items[:0]
	for _, rec := range r.Items {
		if drop(rec) {
			excluded = append(excluded, rec.JobID)
			continue
		}
		kept = append(kept, rec)
	}

	clear(r.Items[len(kept):])
	r.Items = kept
	return excluded
}

// SortByScore orders recommendations by score, best first. Equal scores keep
// their relative order.
func (r *Recommendations) SortByScore() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Score > r.Items[j].Score
	})
}

// Truncate keeps the first n items and returns the job ids of the rest.
func (r *Recommendations) Truncate(n int) []string {
	if n < 0 || n >= len(r.Items) {
		return nil
	}

	var dropped []string
	for _, rec := range r.Items[n:] {
		dropped = append(dropped, rec.JobID)
	}

	clear(r.Items[n:])
	r.Items = r.Items[:n]
	return dropped
}

// ReportByCompany groups recommendations under "<company name> (<company id>)".
func (r *Recommendations) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, rec := range r.Items {
		key := fmt.Sprintf("%s (%s)", rec.CompanyName, rec.CompanyID)
		report[key] = append(report[key], map[string]string{
			"job":             rec.JobTitle,
			"score":           fmt.Sprintf("%.1f%%", rec.Score),
			"min score":       fmt.Sprintf("%d%%", rec.MinScore),
			"meets threshold": fmt.Sprintf("%t", rec.MeetsThreshold),
			"tier":            string(rec.Tier),
		})
	}
	return report
}

func (r *Recommendations) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
