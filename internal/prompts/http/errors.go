package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 with the given fallback message.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrPromptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
	case errors.Is(err, domain.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
	case errors.Is(err, domain.ErrAutoSaveNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.Is(err, domain.ErrVersionMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "version does not belong to prompt"})
	case errors.Is(err, domain.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "version number already taken, retry"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(fallback,
			"request_id", middleware.GetRequestID(c.Request.Context()),
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
