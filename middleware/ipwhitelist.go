package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IPWhitelist returns a middleware that only allows requests from the given
// IPs or CIDR ranges. If the whitelist is empty, all IPs are allowed.
func IPWhitelist(ips []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(ips))
	var nets []*net.IPNet
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(ip); err == nil {
			nets = append(nets, n)
			continue
		}
		allowed[ip] = true
	}
	return func(c *gin.Context) {
		if len(allowed) == 0 && len(nets) == 0 {
			c.Next()
			return
		}
		client := c.ClientIP()
		if allowed[client] || inNets(nets, client) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "access denied"})
	}
}

func inNets(nets []*net.IPNet, addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
