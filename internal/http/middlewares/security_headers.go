package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// The API only serves JSON to the SPA; nothing may be embedded or
	// executed from it.
	apiCSP = "default-src 'none'; frame-ancestors 'none'"

	// The swagger page bootstraps itself from the unpkg CDN with inline glue.
	swaggerCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; " +
		"connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; " +
		"style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"

	hstsValue = "max-age=63072000; includeSubDomains"
)

// SecurityHeaders hardens every response. Outside dev the API sits behind
// TLS, so HSTS is pinned there; token-bearing API responses additionally
// must never land in a shared cache.
func SecurityHeaders(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-XSS-Protection", "0")

		if env != "dev" && env != "test" {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		path := c.Request.URL.Path

		switch {
		case strings.HasPrefix(path, "/swagger"), strings.HasPrefix(path, "/docs/"):
			h.Set("Content-Security-Policy", swaggerCSP)
		default:
			h.Set("Content-Security-Policy", apiCSP)
		}

		if strings.HasPrefix(path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
