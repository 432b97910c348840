package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	pingDB    func() error
	pingRedis func() error
}

func NewHealthHandler(pingDB, pingRedis func() error) *HealthHandler {
	return &HealthHandler{
		pingDB:    pingDB,
		pingRedis: pingRedis,
	}
}

// liveness: process is up
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readiness: dependencies answer
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	checks := gin.H{}
	ready := true

	if h.pingDB != nil {
		if err := h.pingDB(); err != nil {
			checks["db"] = "down"
			ready = false
		} else {
			checks["db"] = "up"
		}
	}

	if h.pingRedis != nil {
		if err := h.pingRedis(); err != nil {
			checks["redis"] = "down"
			ready = false
		} else {
			checks["redis"] = "up"
		}
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
