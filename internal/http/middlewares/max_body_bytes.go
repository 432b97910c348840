package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps request bodies. Credential payloads are a few
// hundred bytes, so 64 KiB leaves generous headroom while keeping oversized
// uploads away from the JSON decoder.
const DefaultMaxBodyBytes int64 = 64 << 10

// MaxBodyBytes enforces the cap through http.MaxBytesReader; the bind layer
// turns the resulting *http.MaxBytesError into a 413. A non-positive max
// falls back to the default.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		}

		ctx.Next()
	}
}
