// Package match scores a candidate embedding against a job embedding.
//
// Everything here is a pure function of its arguments: no I/O, no shared
// state, so the functions are safe to call from any number of goroutines.
package match

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	MinThreshold = 0
	MaxThreshold = 100

	// StrongScore and ModerateScore are the tier boundaries for recommendations.
	StrongScore   = 70.0
	ModerateScore = 40.0
)

type Tier string

const (
	TierStrong   Tier = "strong"
	TierModerate Tier = "moderate"
	TierWeak     Tier = "weak"
)

var recommendations = map[Tier]string{
	TierStrong:   "Strong match! Your skills align well with this position.",
	TierModerate: "Moderate match. You have some relevant skills, but may want to strengthen key areas from the job description.",
	TierWeak:     "Weak match. This role may require significant skill development before applying.",
}

// Result is the outcome of a single match computation.
type Result struct {
	// Score is the cosine similarity as a percentage in [0, 100], rounded to one decimal.
	Score          float64 `json:"score"`
	MeetsThreshold bool    `json:"meets_threshold"`
	Recommendation string  `json:"recommendation"`
	Tier           Tier    `json:"tier"`
}

// Compute scores candidate against job and compares the score with minScore.
func Compute(candidate, job Embedding, minScore int) (*Result, error) {
	if minScore < MinThreshold || minScore > MaxThreshold {
		return nil, fmt.Errorf("%w: %d is outside [%d, %d]", ErrThresholdOutOfRange, minScore, MinThreshold, MaxThreshold)
	}

	similarity, err := CosineSimilarity(candidate, job)
	if err != nil {
		return nil, err
	}

	score := ScoreFromSimilarity(similarity)
	tier := TierFor(score)

	return &Result{
		Score:          score,
		MeetsThreshold: score >= float64(minScore),
		Recommendation: recommendations[tier],
		Tier:           tier,
	}, nil
}

// CosineSimilarity returns the cosine of the angle between a and b clamped to [-1, 1].
func CosineSimilarity(a, b Embedding) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("candidate embedding: %w", err)
	}
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("job embedding: %w", err)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: norms %v and %v", ErrZeroVector, normA, normB)
	}

	// Unit vectors keep the dot product finite for entries near the float64 limits.
	// floats.Dot panics on differing lengths, checked above.
	s := floats.Dot(a.scaled(normA), b.scaled(normB))
	if math.IsNaN(s) {
		return 0, fmt.Errorf("%w: similarity is not a number", ErrInvalidVector)
	}

	return math.Max(-1, math.Min(1, s)), nil
}

// ScoreFromSimilarity maps a similarity to a percentage rounded to one
// decimal. Negative similarity is reported as 0.
func ScoreFromSimilarity(s float64) float64 {
	return math.Round(math.Max(s, 0)*1000) / 10
}

func TierFor(score float64) Tier {
	switch {
	case score >= StrongScore:
		return TierStrong
	case score >= ModerateScore:
		return TierModerate
	default:
		return TierWeak
	}
}

// Recommendation returns the human readable text for a tier.
func Recommendation(t Tier) string {
	return recommendations[t]
}
