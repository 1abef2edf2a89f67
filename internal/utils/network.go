package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP extracts the client IP, preferring proxy headers.
//
// Priority order:
// 1. X-Real-IP
// 2. first public address in X-Forwarded-For
// 3. gin's ClientIP()
func GetRealIP(c *gin.Context) string {
	realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP"))
	if ip := net.ParseIP(realIP); ip != nil && !ip.IsPrivate() {
		return realIP
	}

	forwarded := c.Request.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		for _, raw := range ips {
			candidate := strings.TrimSpace(raw)
			ip := net.ParseIP(candidate)
			if ip != nil && !ip.IsPrivate() && !ip.IsLoopback() {
				return candidate
			}
		}
		if first := strings.TrimSpace(ips[0]); net.ParseIP(first) != nil {
			return first
		}
	}

	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	agent := c.Request.UserAgent()
	if agent == "" {
		return "Unknown"
	}
	return agent
}
