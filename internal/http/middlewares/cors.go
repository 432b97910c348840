package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The browser client is a SPA sending credentialed JSON requests, so the
// wildcard origin is never valid here: only explicit allowlist entries get
// CORS headers, echoed per origin.
const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Authorization,Content-Type,X-Request-Id"
	corsMaxAge       = "600"
)

// corsExposeHeaders lets the SPA read the correlation id and limiter hints.
var corsExposeHeaders = strings.Join([]string{requestIDHeader, "Retry-After"}, ",")

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		// responses differ per origin, caches must not mix them
		ctx.Header("Vary", "Origin")

		origin := ctx.GetHeader("Origin")

		if origin != "" {
			if _, ok := allowed[origin]; ok {
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Allow-Credentials", "true")
				ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)

				if ctx.Request.Method == http.MethodOptions {
					ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
					ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
					ctx.Header("Access-Control-Max-Age", corsMaxAge)
				}
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
