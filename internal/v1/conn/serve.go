package conn

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// originAllower reports whether origin is present in allowed, matching on
// scheme and host only, following the teacher's Hub.ServeWs CheckOrigin
// logic (internal/v1/session/hub.go).
func originAllower(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		originURL, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, candidate := range allowed {
			candidateURL, err := url.Parse(candidate)
			if err != nil {
				continue
			}
			if originURL.Scheme == candidateURL.Scheme && originURL.Host == candidateURL.Host {
				return true
			}
		}
		return false
	}
}

// ParseAllowedOrigins splits a comma-separated ALLOWED_ORIGINS value,
// falling back to def when the value is empty.
func ParseAllowedOrigins(raw string, def []string) []string {
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ServeWs upgrades the incoming request to a WebSocket and starts a
// Driver bound to logic. It never requires a caller-identifying token:
// §1 names no authentication layer, unlike the teacher's JWT-gated
// Hub.ServeWs.
func ServeWs(logic Dispatcher, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: originAllower(allowedOrigins),
		WriteBufferPool: &sync.Pool{
			New: func() any { return make([]byte, 4096) },
		},
	}

	return func(c *gin.Context) {
		wsConnRaw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		socket := wsConnRaw.RemoteAddr().String()
		driver := New(wsConnRaw, logic, socket)
		go driver.Run()
	}
}
