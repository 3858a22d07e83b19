package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// StreamDraftEvents streams auto-save state changes for a document using Server-Sent Events (SSE)
func (h *Handler) StreamDraftEvents(c *gin.Context) {
	docID := c.Param("doc_id")

	state, ok := h.autosave.State(docID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "auto-save not started for document"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	// Listeners run on the scheduler's goroutine; never block it.
	updates := make(chan domain.AutoSaveState, 16)
	unsubscribe := h.autosave.Subscribe(docID, func(_ string, s domain.AutoSaveState) {
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	writeEvent(c, flusher, "initial", gin.H{"document_id": docID, "state": state})

	ctx := c.Request.Context()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case s := <-updates:
			writeEvent(c, flusher, "state", gin.H{"document_id": docID, "state": s})

		case <-ticker.C:
			if _, ok := h.autosave.State(docID); !ok {
				writeEvent(c, flusher, "stopped", gin.H{"document_id": docID})
				return
			}
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(data))
	flusher.Flush()
}
