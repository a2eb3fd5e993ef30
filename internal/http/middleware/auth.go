package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminKeyHeader = "X-Admin-Key"

// AdminAuth guards operator endpoints with a shared API key. When no key is
// configured the endpoints are disabled outright rather than left open.
func AdminAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin API disabled"})
			return
		}

		provided := c.GetHeader(adminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}

		c.Next()
	}
}
