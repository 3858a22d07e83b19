package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestIDMiddleware(logger))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
		assert.Equal(t, "abc-123", rr.Body.String())
		assert.Contains(t, buf.String(), "request_id=abc-123")
		assert.Contains(t, buf.String(), "status=200")
	})

	t.Run("generates id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

		rid := rr.Header().Get(HeaderRequestID)
		assert.Len(t, rid, 32)
		assert.Equal(t, rid, rr.Body.String())
	})
}
