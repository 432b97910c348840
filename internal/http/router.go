package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pricearb/backend/internal/auth"
	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/http/handlers"
	"github.com/pricearb/backend/internal/http/middlewares"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/service"
)

// Deps carries everything the router wires together. Store and Mail are
// interfaces so tests can run the full stack against in-memory fakes.
type Deps struct {
	Cfg   config.Config
	Log   *slog.Logger
	Store service.CredentialStore
	Users handlers.UserLister
	JWT   *auth.Manager
	Mail  handlers.WelcomeEnqueuer

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	PingDB    func() error
	PingRedis func() error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" && d.Cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(otelgin.Middleware("pricearb-api"))
	r.Use(middlewares.SecurityHeaders(d.Cfg.Env))
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health + ops

	health := handlers.NewHealthHandler(d.PingDB, d.PingRedis)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/swagger", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// auth wiring

	svc := service.NewAuthService(d.Store, d.JWT, d.Log)
	authHandler := handlers.NewAuthHandler(svc, d.Mail, d.Prom)
	authMW := middlewares.NewAuthMiddleware(d.JWT)

	// credential endpoints get a tighter limiter than the rest of the API
	loginLimiter := middlewares.NewRateLimiter(20, time.Minute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)

	if d.Users != nil {
		admin := api.Group("/admin")
		admin.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
		admin.GET("/users", handlers.NewAdminHandler(d.Users).ListUsers)
	}

	return r
}
