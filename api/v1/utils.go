package v1

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP resolves the originating client address, preferring
// reverse-proxy headers over the socket peer.
func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"} {
		if value := strings.TrimSpace(c.Get(header)); value != "" {
			if net.ParseIP(value) != nil {
				return value
			}
		}
	}

	if ip := c.IP(); ip != "" {
		return ip
	}
	return "127.0.0.1"
}
