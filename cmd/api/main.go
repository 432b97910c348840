package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pricearb/backend/internal/auth"
	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/db"
	httpx "github.com/pricearb/backend/internal/http"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/queue"
	"github.com/pricearb/backend/internal/queue/redisclient"
	"github.com/pricearb/backend/internal/repo/postgres"
)

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// tracing

	shutdownTracer, err := observability.InitTracer(ctx, "pricearb-api", cfg.Env, cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// metrics

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// postgres

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(ctx, 10*time.Second)

	if err := db.Migrate(seedCtx, pool); err != nil {
		cancelSeed()
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureRoles(seedCtx, pool); err != nil {
		cancelSeed()
		log.Error("role seeding failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		cancelSeed()
		log.Error("admin seeding failed", "err", err)
		os.Exit(1)
	}

	if cfg.Env == "dev" {
		if err := db.EnsureSampleUsers(seedCtx, pool); err != nil {
			cancelSeed()
			log.Error("sample user seeding failed", "err", err)
			os.Exit(1)
		}
	}
	cancelSeed()

	// redis (mail queue)

	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisCli.Close() }()

	// wiring

	users := postgres.NewUsersRepo(pool, prom, cfg.LockoutMaxAttempts, cfg.LockoutDuration())
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	producer := queue.NewProducer(redisCli)

	pingDB := func() error {
		pctx, cancel := config.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return pool.Ping(pctx)
	}
	pingRedis := func() error {
		pctx, cancel := config.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return redisCli.Ping(pctx)
	}

	router := httpx.NewRouter(httpx.Deps{
		Cfg:       cfg,
		Log:       log,
		Store:     users,
		Users:     users,
		JWT:       jwtManager,
		Mail:      producer,
		Prom:      prom,
		Gatherer:  reg,
		PingDB:    pingDB,
		PingRedis: pingRedis,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	// ctx is already cancelled here; the drain window needs its own context
	shutdownCtx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
