package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepAbove = 1024
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter keeps one token bucket per user.
type userLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*limiterEntry
	now     func() time.Time
}

// newUserLimiter returns nil when r is not positive, which disables limiting.
func newUserLimiter(r float64, burst int) *userLimiter {
	if r <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limit:   rate.Limit(r),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *userLimiter) allow(userID string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) > limiterSweepAbove {
		for id, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.entries, id)
			}
		}
	}

	e, ok := l.entries[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// rateLimit rejects draft writes over the per-user budget with 429.
func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.limiter.allow(auth.UserID(c)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many draft updates, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
