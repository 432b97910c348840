package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/domain/user"
)

type UserLister interface {
	ListUsers(ctx context.Context, limit, offset int) ([]user.User, error)
}

type AdminHandler struct {
	users UserLister
}

func NewAdminHandler(users UserLister) *AdminHandler {
	return &AdminHandler{users: users}
}

// GET /api/admin/users  (RequireRole "Admin")
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)

	defer cancel()

	users, err := h.users.ListUsers(cctx, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	if users == nil {
		users = []user.User{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}
