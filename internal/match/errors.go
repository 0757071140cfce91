package match

import "errors"

var (
	// ErrInvalidVector is returned for empty embeddings or embeddings with non-finite values.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrDimensionMismatch is returned when two embeddings differ in length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrZeroVector is returned when an embedding has zero magnitude.
	ErrZeroVector = errors.New("zero vector")
	// ErrThresholdOutOfRange is returned for minimum scores outside [0, 100].
	ErrThresholdOutOfRange = errors.New("threshold out of range")
)

// IsScoringError reports whether err was produced by the scorer because of
// unusable embeddings rather than a bad threshold.
func IsScoringError(err error) bool {
	return errors.Is(err, ErrInvalidVector) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrZeroVector)
}
