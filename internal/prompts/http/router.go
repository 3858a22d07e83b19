package http

import "github.com/gin-gonic/gin"

// Register registers the prompt routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/prompts", h.CreatePrompt)
	rg.GET("/prompts", h.ListPrompts)
	rg.GET("/prompts/:id", h.GetPrompt)
	rg.PUT("/prompts/:id", h.SavePrompt)
	rg.DELETE("/prompts/:id", h.DeletePrompt)

	rg.GET("/prompts/:id/versions", h.ListVersions)
	rg.POST("/prompts/:id/versions", h.CreateVersion)
	rg.GET("/prompts/:id/versions/stats", h.VersionStats)
	rg.POST("/prompts/:id/versions/:version_id/revert", h.RevertVersion)
	rg.POST("/versions/:version_id/branch", h.BranchVersion)
	rg.GET("/versions/compare", h.CompareVersions)

	rg.GET("/prompts/:id/conflicts", h.CheckConflict)
	rg.POST("/prompts/:id/conflicts/resolve", h.ResolveConflict)

	rg.GET("/drafts", h.ListDrafts)
	rg.POST("/drafts/:doc_id/start", h.StartDraft)
	rg.PUT("/drafts/:doc_id", h.rateLimit(), h.UpdateDraft)
	rg.POST("/drafts/:doc_id/save", h.rateLimit(), h.SaveDraft)
	rg.DELETE("/drafts/:doc_id", h.StopDraft)
	rg.GET("/drafts/:doc_id/state", h.DraftState)
	rg.GET("/drafts/:doc_id/events", h.StreamDraftEvents)
}
