package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/conflict"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/service"
)

// CheckConflict reports whether the prompt changed after ?last_known= (RFC 3339)
func (h *Handler) CheckConflict(c *gin.Context) {
	lastKnown, err := time.Parse(time.RFC3339Nano, c.Query("last_known"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "last_known must be an RFC 3339 timestamp"})
		return
	}

	check, err := h.resolver.Check(c.Request.Context(), c.Param("id"), lastKnown)
	if err != nil {
		h.writeError(c, err, "failed to check conflict")
		return
	}

	c.JSON(http.StatusOK, check)
}

// ResolveConflict merges the caller's local state with the stored prompt.
// With apply the merged state is saved like an explicit save.
func (h *Handler) ResolveConflict(c *gin.Context) {
	var body struct {
		Local domain.Content `json:"local"`
		Apply bool           `json:"apply,omitempty"`
		Notes *string        `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	promptID := c.Param("id")

	server, err := h.prompts.Get(ctx, promptID)
	if err != nil {
		h.writeError(c, err, "failed to get prompt")
		return
	}

	result := conflict.Resolve(body.Local, server.ContentOf())
	if !body.Apply {
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}

	saved, err := h.prompts.Save(ctx, promptID, auth.UserID(c), service.SaveRequest{
		Title:    &result.Title,
		Content:  &result.Content.Content,
		Category: result.Category,
		Tags:     result.Tags,
		Notes:    body.Notes,
	})
	if err != nil {
		h.writeError(c, err, "failed to save resolved prompt")
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result, "saved": saved})
}
