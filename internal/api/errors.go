package api

import (
	"net/http"

	"gradebook-engine/pkg/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidGradingScheme):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrSchemaValidation),
		errors.Is(err, errors.ErrInvalidFileFormat),
		errors.Is(err, errors.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrConflict),
		errors.Is(err, errors.ErrLockTimeout),
		errors.Is(err, errors.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var ve errors.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	if status == http.StatusConflict {
		body["retryable"] = true
	}
	c.JSON(status, body)
}
