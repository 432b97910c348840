package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/http/middlewares"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/security"
)

// AuthProvider is the slice of the auth service the handler needs.
type AuthProvider interface {
	Register(ctx context.Context, email, username, password string) (user.AuthResult, error)
	Login(ctx context.Context, email, password string) (user.AuthResult, error)
	GetCurrentUser(ctx context.Context, userID string) (user.Info, error)
}

// WelcomeEnqueuer queues the (stubbed) welcome mail after registration.
type WelcomeEnqueuer interface {
	EnqueueWelcome(ctx context.Context, userID, email, username, requestID string) error
}

type AuthHandler struct {
	svc  AuthProvider
	mail WelcomeEnqueuer
	prom *observability.Prom
}

func NewAuthHandler(svc AuthProvider, mail WelcomeEnqueuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		svc:  svc,
		mail: mail,
		prom: prom,
	}
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"userName" binding:"required,min=3,max=50"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/register
//
// Any rejection comes back as the same generic 400 so callers can't probe
// which email or username is taken.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		h.outcome("register", "rejected")
		return
	}

	// binding tags cover length; the character-class policy lives here
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		h.outcome("register", "rejected")
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{
			{
				Field:   "password",
				Rule:    "strength",
				Message: "must contain upper and lower case letters, a digit and a special character",
			},
		}})
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	res, err := h.svc.Register(cctx, req.Email, req.Username, req.Password)

	if err != nil {
		h.outcome("register", "rejected")
		RespondBadRequest(ctx, "Registration failed. Email or username may already be in use.", nil)
		return
	}

	if h.mail != nil {
		// best effort: a lost welcome mail never fails the registration
		if err := h.mail.EnqueueWelcome(cctx, res.UserID, res.Email, res.Username, requestIDFrom(ctx)); err != nil {
			slog.Default().WarnContext(ctx.Request.Context(), "welcome mail enqueue failed", "user_id", res.UserID, "err", err)
		}
	}

	h.outcome("register", "ok")

	ctx.JSON(http.StatusOK, res)
}

// POST /api/auth/login
//
// Wrong password, unknown email and lockout are indistinguishable here: all
// return the same generic 401.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.outcome("login", "rejected")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)

	if err != nil {
		h.outcome("login", "rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	h.outcome("login", "ok")

	ctx.JSON(http.StatusOK, res)
}

// GET /api/auth/me
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		h.outcome("me", "rejected")
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)

	defer cancel()

	info, err := h.svc.GetCurrentUser(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.outcome("me", "rejected")
			RespondNotFound(ctx, "User not found")
			return
		}

		h.outcome("me", "error")
		RespondInternal(ctx, "Could not load user")
		return
	}

	h.outcome("me", "ok")

	ctx.JSON(http.StatusOK, info)
}

func (h *AuthHandler) outcome(op, result string) {
	if h.prom != nil {
		h.prom.AuthOutcomes.WithLabelValues(op, result).Inc()
	}
}
