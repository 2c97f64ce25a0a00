package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip" for rate limiting and access logs.
// Forwarding headers are only honoured when trustProxy is set, since clients can forge them.
func RealIP(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if trustProxy {
			if ip := firstValidIP(c.GetHeader("CF-Connecting-IP"), c.GetHeader("X-Forwarded-For")); ip != "" {
				c.Set("real_ip", ip)
				c.Next()
				return
			}
		}
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}

// firstValidIP returns the first parseable address, taking the left-most X-Forwarded-For hop.
func firstValidIP(headers ...string) string {
	for _, h := range headers {
		first, _, _ := strings.Cut(h, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
