package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WithUser resolves the caller identity for every request. A verified
// Firebase UID wins; otherwise the X-User-Id header is trusted. When neither
// is present, fallback is used if non-empty and the request is rejected with
// 401 otherwise.
func WithUser(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserFirebaseUID(c)
		if uid == "" {
			uid = strings.TrimSpace(c.GetHeader(HeaderUserID))
		}
		if uid == "" {
			uid = fallback
		}
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, uid)
		c.Next()
	}
}
