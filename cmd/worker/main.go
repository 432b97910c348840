package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/notifications"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/queue/redisclient"
	"github.com/pricearb/backend/internal/queue/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisCli.Close() }()

	mailer := notifications.NewProtectedMailer(
		notifications.NewLogMailer(log),
		notifications.ProtectedMailerConfig{},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollTimeout: 2 * time.Second,
		WorkerID:    workerID,
	}, redisCli, mailer, prom, log)

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	log.Info("worker shutdown complete")
}
