// Package models holds the records persisted by the placement service.
package models

import (
	"time"

	"github.com/spigell/placement-assistant/internal/match"
)

// ResumeUploaded is the resume_url marker stored once resume text was processed.
const ResumeUploaded = "uploaded"

// Profile is a candidate. SkillsEmbedding is nil until a resume is uploaded.
type Profile struct {
	ID              string          `json:"id"`
	FullName        string          `json:"full_name"`
	SkillsEmbedding match.Embedding `json:"-"`
	ResumeURL       string          `json:"resume_url,omitempty"`
}

func (p *Profile) HasEmbedding() bool {
	return p != nil && len(p.SkillsEmbedding) > 0
}

func (p *Profile) HasResume() bool {
	return p != nil && p.ResumeURL != ""
}

// Company posts jobs. AptitudeConfig maps a question topic to the number of
// questions of that topic in the company's aptitude test.
type Company struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	AptitudeConfig map[string]int `json:"aptitude_config,omitempty"`
}

// Job is an opening with the minimum match score a candidate needs.
type Job struct {
	ID                      string          `json:"id"`
	CompanyID               string          `json:"company_id"`
	CompanyName             string          `json:"company_name"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	MinScore                int             `json:"min_score"`
	RequiredSkillsEmbedding match.Embedding `json:"-"`
	CreatedAt               time.Time       `json:"created_at"`
}

// Question is an aptitude question from the shared question bank.
type Question struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Topic         string   `json:"topic,omitempty"`
}
