package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextRealIPKey is the gin.Context key RealIP stores the resolved
// address under.
const ContextRealIPKey = "real_ip"

// HeaderXForwardedFor is the header a fronting proxy sets.
const HeaderXForwardedFor = "X-Forwarded-For"

// RealIP resolves the caller's address from X-Forwarded-For, falling
// back to the connection's own remote address when the header is
// absent, empty, or unparsable. Mirrors the source gateway's real_ip
// middleware: take the first comma-separated entry, trim it, and only
// trust it if it parses as an IP.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if fwd := c.GetHeader(HeaderXForwardedFor); fwd != "" {
			if first, ok := firstForwardedIP(fwd); ok {
				ip = first
			}
		}
		c.Set(ContextRealIPKey, ip)
		c.Next()
	}
}

func firstForwardedIP(header string) (string, bool) {
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	if net.ParseIP(first) == nil {
		return "", false
	}
	return first, true
}
