package middlewares

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON gates every body-carrying request. The auth endpoints only
// accept JSON credentials, so anything else is rejected before a handler
// touches the body.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if !isJSONContentType(c.GetHeader("Content-Type")) {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": gin.H{
					"code":    "unsupported_media_type",
					"message": "Content-Type must be application/json",
				},
			})
			return
		}

		c.Next()
	}
}

// accepts "application/json" with any parameters ("; charset=utf-8")
func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(ct)

	if err != nil {
		return false
	}

	return strings.EqualFold(mediaType, "application/json")
}
