package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bodega-pos/bodega-pos/internal/app"
	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/shared"
	"github.com/bodega-pos/bodega-pos/internal/shrinkage"
	"github.com/bodega-pos/bodega-pos/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	shrinkageService := shrinkage.NewService(shrinkage.NewRepository(pool), auditLogger, logger)

	var cron []jobs.CronRegistration
	if cfg.ShrinkageCron != "" {
		scanTask, err := jobs.NewShrinkageCronTask()
		if err != nil {
			logger.Error("build shrinkage scan task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ShrinkageCron,
			Task:    scanTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskShrinkageScan, Handler: jobs.ShrinkageScanHandler(shrinkageService, logger)},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
