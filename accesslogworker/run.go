// Package accesslogworker boots the standalone access-log outbox drainer.
package accesslogworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memspace/memspace/internal/config"
	"github.com/memspace/memspace/internal/logger"
	"github.com/memspace/memspace/internal/outbox"
	"github.com/memspace/memspace/internal/store/postgres"
)

// Run starts the worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("accesslog-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres open")
		return err
	}
	defer func() { _ = db.Close() }()
	st := postgres.NewWithDB(db)

	w := outbox.NewWorker(db, st.AccessLogs(), outbox.Config{
		BatchSize:   cfg.AccessLogBatchSize,
		Interval:    time.Duration(cfg.AccessLogIntervalSeconds) * time.Second,
		MaxAttempts: cfg.AccessLogMaxAttempts,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("access-log worker exit")
		return err
	}
	return nil
}
