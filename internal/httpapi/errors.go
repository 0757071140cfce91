package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/aptitude"
	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/placement"
	"github.com/spigell/placement-assistant/internal/storage"
)

func errorBody(detail string) gin.H {
	return gin.H{"status": "error", "detail": detail}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, aptitude.ErrNoQuestions):
		return http.StatusNotFound
	case placement.IsValidationError(err), errors.Is(err, match.ErrThresholdOutOfRange):
		return http.StatusBadRequest
	case match.IsScoringError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, errorBody(detail))
}

func (s *Server) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(err.Error()))
}
