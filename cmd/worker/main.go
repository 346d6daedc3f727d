package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/db"
	"github.com/mlopez-dev/authhub/internal/notifications"
	"github.com/mlopez-dev/authhub/internal/observability"
	"github.com/mlopez-dev/authhub/internal/queue/redisclient"
	"github.com/mlopez-dev/authhub/internal/queue/worker"
	"github.com/mlopez-dev/authhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.NewRegistry())

	jobsRepo := postgres.NewJobsRepo(pool, prom)

	mailer := buildMailer(cfg, log)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Second,
		WorkerID:      workerID,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, mailer, prom, log)

	// wake channel is optional; without redis the worker just polls
	redisC := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisC.Close()

	if err := redisC.Ping(ctx); err != nil {
		log.Warn("redis unreachable, polling only", "err", err)
	} else {
		wake, stopListen := redisC.Listen(ctx)
		defer stopListen()
		w.SetWakeChannel(wake)
	}

	healthSrv := &http.Server{
		Addr:              ":8081",
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := healthSrv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker started", "workerId", workerID, "mailer", cfg.MailerDriver)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}

// buildMailer picks the provider from config and wraps it with the timeout
// plus circuit breaker guard.
func buildMailer(cfg config.Config, log *slog.Logger) notifications.Mailer {
	var inner notifications.Mailer

	switch cfg.MailerDriver {
	case "mailgun":
		inner = notifications.NewMailgunMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom)
	default:
		if cfg.MailerDriver != "log" {
			log.Warn("unknown mailer driver, falling back to log", "driver", cfg.MailerDriver)
		}
		inner = notifications.NewLogMailer()
	}

	return notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		HalfOpenMaxCalls: 1,
	})
}
