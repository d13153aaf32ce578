package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scenegen/internal/bootstrap"
	"scenegen/internal/infra"
	"scenegen/internal/jobqueue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLoggerWithFile(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer svc.Close(context.Background())

	if svc.SQL == nil {
		logger.Fatal().Msg("worker: DATABASE_URL is required for the job queue")
	}
	if !svc.StoryReady() {
		logger.Warn().Msg("worker: gemini api key missing, every job will fail")
	}

	worker := jobqueue.NewWorker(jobqueue.NewPostgres(svc.SQL), svc.Engine, cfg.WorkerPollInterval, &logger)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
