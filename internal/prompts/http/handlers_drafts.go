package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

type draftBody struct {
	PromptID *string  `json:"prompt_id,omitempty"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (b draftBody) draft() domain.Draft {
	return domain.Draft{
		PromptID: b.PromptID,
		Content: domain.Content{
			Title:    b.Title,
			Content:  b.Content,
			Category: b.Category,
			Tags:     b.Tags,
		},
	}
}

// StartDraft begins auto-saving a document. started is false when auto-save
// is disabled or the document already has a session.
func (h *Handler) StartDraft(c *gin.Context) {
	var body draftBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	docID := c.Param("doc_id")
	started := h.autosave.Start(docID, auth.UserID(c), body.draft())
	state, _ := h.autosave.State(docID)

	status := http.StatusOK
	if started {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"started": started, "enabled": h.autosave.Enabled(), "state": state})
}

// UpdateDraft records the latest edit; the next tick saves it
func (h *Handler) UpdateDraft(c *gin.Context) {
	var body draftBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	docID := c.Param("doc_id")
	if !h.autosave.MarkDirty(docID, body.draft()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "auto-save not started for document"})
		return
	}

	state, _ := h.autosave.State(docID)
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// SaveDraft forces an immediate save. A save already in flight, or a failed
// save, answers 409 with the current state.
func (h *Handler) SaveDraft(c *gin.Context) {
	docID := c.Param("doc_id")
	if _, ok := h.autosave.State(docID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "auto-save not started for document"})
		return
	}

	saved := h.autosave.ForceSave(c.Request.Context(), docID, auth.UserID(c))
	state, _ := h.autosave.State(docID)

	status := http.StatusOK
	if !saved {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"saved": saved, "state": state})
}

// StopDraft ends auto-save for a document
func (h *Handler) StopDraft(c *gin.Context) {
	h.autosave.Stop(c.Param("doc_id"))
	c.Status(http.StatusNoContent)
}

// DraftState returns the auto-save state of a document
func (h *Handler) DraftState(c *gin.Context) {
	state, ok := h.autosave.State(c.Param("doc_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "auto-save not started for document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// ListDrafts lists the caller's stored auto-saves, newest first
func (h *Handler) ListDrafts(c *gin.Context) {
	list, err := h.drafts.ListAutoSaves(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to list drafts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": list, "count": len(list)})
}
