package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/service"
)

// CreatePrompt creates a prompt owned by the caller
func (h *Handler) CreatePrompt(c *gin.Context) {
	var body struct {
		Title    string                 `json:"title" binding:"required"`
		Content  string                 `json:"content"`
		Category *string                `json:"category,omitempty"`
		Tags     []string               `json:"tags,omitempty"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.prompts.Create(c.Request.Context(), domain.CreatePromptRequest{
		OwnerID:  auth.UserID(c),
		Title:    body.Title,
		Content:  body.Content,
		Category: body.Category,
		Tags:     body.Tags,
		Metadata: body.Metadata,
	})
	if err != nil {
		h.writeError(c, err, "failed to create prompt")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"prompt": p})
}

// ListPrompts lists the caller's prompts
func (h *Handler) ListPrompts(c *gin.Context) {
	list, err := h.prompts.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to list prompts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"prompts": list, "count": len(list)})
}

// GetPrompt retrieves a prompt by ID
func (h *Handler) GetPrompt(c *gin.Context) {
	p, err := h.prompts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to get prompt")
		return
	}

	c.JSON(http.StatusOK, gin.H{"prompt": p})
}

// SavePrompt applies an explicit save; a significant edit produces a version
func (h *Handler) SavePrompt(c *gin.Context) {
	var body struct {
		Title        *string  `json:"title,omitempty"`
		Content      *string  `json:"content,omitempty"`
		Category     *string  `json:"category,omitempty"`
		Tags         []string `json:"tags,omitempty"`
		Notes        *string  `json:"notes,omitempty"`
		ForceVersion bool     `json:"force_version,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.prompts.Save(c.Request.Context(), c.Param("id"), auth.UserID(c), service.SaveRequest{
		Title:        body.Title,
		Content:      body.Content,
		Category:     body.Category,
		Tags:         body.Tags,
		Notes:        body.Notes,
		ForceVersion: body.ForceVersion,
	})
	if err != nil {
		h.writeError(c, err, "failed to save prompt")
		return
	}

	c.JSON(http.StatusOK, res)
}

// DeletePrompt deletes a prompt and its versions
func (h *Handler) DeletePrompt(c *gin.Context) {
	if err := h.prompts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "failed to delete prompt")
		return
	}

	c.Status(http.StatusNoContent)
}
