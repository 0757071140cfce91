package placement

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrResumeMissing       = errors.New("user has not uploaded a resume yet, skills embedding is required for matching")
	ErrJobEmbeddingMissing = errors.New("job does not have a skills embedding, please recreate the job")
	ErrResumeTooShort      = errors.New("resume does not contain enough text content")
	ErrDescriptionTooShort = errors.New("job description is too short")

	// ErrEmbedderOutput is returned when the embedder hands back a vector of
	// the wrong size or with non-finite entries.
	ErrEmbedderOutput = errors.New("embedder returned an unusable vector")
)

// IsValidationError reports whether err was caused by the caller's input
// rather than by stored data or a dependency.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrResumeMissing) ||
		errors.Is(err, ErrJobEmbeddingMissing) ||
		errors.Is(err, ErrResumeTooShort) ||
		errors.Is(err, ErrDescriptionTooShort)
}
