package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queuedesk/internal/config"
	"queuedesk/internal/infra"
	"queuedesk/internal/realtime"
	"queuedesk/internal/router"
	"queuedesk/internal/service"
	"queuedesk/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// resetRunner adapts the reset service to the scheduler's interface and
// translates "already ran for this date" into a skip instead of a failure.
type resetRunner struct{ svc service.ResetService }

func (r resetRunner) RunReset(ctx context.Context, date time.Time, triggeredBy string) error {
	_, err := r.svc.Run(ctx, date, triggeredBy)
	if errors.Is(err, service.ErrResetAlreadyRan) {
		return worker.ErrResetSkipped
	}
	return err
}

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime hub — display boards and staff terminals subscribe here.
	hub := realtime.NewHub()

	r, resetSvc := router.New(cfg, db, rdb, hub)

	// Notification worker pool. Intents are queued by the services and handed
	// to the delivery collaborator through the Redis outbox.
	workerHandlers := &worker.WorkerHandlers{
		Sender: worker.NewOutboxSender(rdb),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	// Daily archive-and-reset at the configured instant in the business
	// timezone. The same idempotent path backs POST /v1/reset/run.
	worker.StartResetScheduler(ctx, worker.ResetSchedulerConfig{
		Runner:   resetRunner{svc: resetSvc},
		Location: cfg.Location(),
		Hour:     cfg.ResetHour,
		Minute:   cfg.ResetMinute,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("queuedesk backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
