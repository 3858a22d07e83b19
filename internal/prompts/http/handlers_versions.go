package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/versioning"
)

// ListVersions returns a prompt's history, newest first
func (h *Handler) ListVersions(c *gin.Context) {
	promptID := c.Param("id")
	if _, err := h.prompts.Get(c.Request.Context(), promptID); err != nil {
		h.writeError(c, err, "failed to get prompt")
		return
	}

	versions, err := h.versions.History(c.Request.Context(), promptID)
	if err != nil {
		h.writeError(c, err, "failed to list versions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
}

// CreateVersion snapshots the prompt with the given edits applied. Without
// force a minor edit creates nothing and reports created=false.
func (h *Handler) CreateVersion(c *gin.Context) {
	var body struct {
		Title    *string  `json:"title,omitempty"`
		Content  *string  `json:"content,omitempty"`
		Category *string  `json:"category,omitempty"`
		Tags     []string `json:"tags,omitempty"`
		Notes    *string  `json:"notes,omitempty"`
		Force    bool     `json:"force,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	promptID := c.Param("id")

	current, err := h.prompts.Get(ctx, promptID)
	if err != nil {
		h.writeError(c, err, "failed to get prompt")
		return
	}

	data := current.ContentOf()
	if body.Title != nil {
		data.Title = *body.Title
	}
	if body.Content != nil {
		data.Content = *body.Content
	}
	if body.Category != nil {
		data.Category = body.Category
	}
	if body.Tags != nil {
		data.Tags = body.Tags
	}

	v, err := h.versions.CreateVersion(ctx, promptID, data, auth.UserID(c), versioning.CreateOptions{
		Notes: body.Notes,
		Force: body.Force,
	})
	if err != nil {
		h.writeError(c, err, "failed to create version")
		return
	}
	if v == nil {
		c.JSON(http.StatusOK, gin.H{"created": false, "version": nil})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": true, "version": v})
}

// VersionStats summarises a prompt's history; stats is null when there is none
func (h *Handler) VersionStats(c *gin.Context) {
	stats, err := h.versions.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to compute version stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// RevertVersion restores a prompt to an earlier version. By default the
// revert is recorded as a new version.
func (h *Handler) RevertVersion(c *gin.Context) {
	var body struct {
		CreateNewVersion *bool `json:"create_new_version,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	createNew := true
	if body.CreateNewVersion != nil {
		createNew = *body.CreateNewVersion
	}

	res, err := h.versions.RevertToVersion(c.Request.Context(), c.Param("id"), c.Param("version_id"), auth.UserID(c), createNew)
	if err != nil {
		h.writeError(c, err, "failed to revert prompt")
		return
	}

	c.JSON(http.StatusOK, res)
}

// BranchVersion creates a new prompt owned by the caller from a version
func (h *Handler) BranchVersion(c *gin.Context) {
	var body struct {
		Title *string `json:"title,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	p, err := h.versions.BranchFromVersion(c.Request.Context(), c.Param("version_id"), auth.UserID(c), body.Title)
	if err != nil {
		h.writeError(c, err, "failed to branch version")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"prompt": p})
}

// CompareVersions diffs two versions given as ?from=&to=
func (h *Handler) CompareVersions(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to version IDs are required"})
		return
	}

	cmp, err := h.versions.Compare(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, err, "failed to compare versions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comparison": cmp})
}
