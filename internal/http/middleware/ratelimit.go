package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter keyed by client IP. Windows that have
// expired are swept by a background goroutine so the map doesn't grow without
// bound under churning client addresses.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit    int
	interval time.Duration

	stopCh chan struct{}
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop terminates the background sweeper.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow reports whether the key is within its window budget, incrementing
// the counter when it is.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.interval)}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, w := range rl.windows {
				if now.After(w.resetAt) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Handler adapts the limiter to gin.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
