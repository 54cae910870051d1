package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRequest(allowedOrigins, origin, method string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(allowedOrigins))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORSWildcardAllowsAnyOrigin(t *testing.T) {
	w := corsRequest("*", "https://board.example.com", http.MethodGet)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowlistEchoesMatchingOrigin(t *testing.T) {
	cfg := "https://board.example.com, https://terminal.example.com"

	w := corsRequest(cfg, "https://terminal.example.com", http.MethodGet)
	assert.Equal(t, "https://terminal.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSAllowlistIgnoresUnknownOrigin(t *testing.T) {
	w := corsRequest("https://board.example.com", "https://evil.example.com", http.MethodGet)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w := corsRequest("*", "https://board.example.com", http.MethodOptions)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
