package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func adminRequest(configuredKey, providedKey string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", AdminAuth(configuredKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if providedKey != "" {
		req.Header.Set(adminKeyHeader, providedKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{"valid key", "secret", "secret", http.StatusOK},
		{"wrong key", "secret", "nope", http.StatusUnauthorized},
		{"missing key", "secret", "", http.StatusUnauthorized},
		{"unconfigured disables endpoint", "", "anything", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := adminRequest(tt.configured, tt.provided)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
