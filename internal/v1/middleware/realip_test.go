package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRealIP_PrefersFirstForwardedForEntry(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = c.GetString(ContextRealIPKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXForwardedFor, "203.0.113.9, 10.0.0.1")
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "203.0.113.9", got)
}

func TestRealIP_FallsBackToRemoteAddrWhenHeaderMissing(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = c.GetString(ContextRealIPKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "192.0.2.1", got)
}

func TestRealIP_IgnoresUnparsableForwardedForValue(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = c.GetString(ContextRealIPKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXForwardedFor, "not-an-ip")
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "192.0.2.1", got)
}
