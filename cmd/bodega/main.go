package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/bodega-pos/bodega-pos/internal/app"
	"github.com/bodega-pos/bodega-pos/internal/cashbox"
	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/masterdata"
	"github.com/bodega-pos/bodega-pos/internal/platform/cache"
	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/purchases"
	"github.com/bodega-pos/bodega-pos/internal/sales"
	"github.com/bodega-pos/bodega-pos/internal/shared"
	"github.com/bodega-pos/bodega-pos/internal/shrinkage"
	"github.com/bodega-pos/bodega-pos/internal/trash"
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

	if err := runMigrations(cfg.PGDSN, cfg.MigrationsDir); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, notifications are uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	catalogService := catalog.NewService(catalog.NewRepository(pool), auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	cashboxService := cashbox.NewService(cashbox.NewRepository(pool), auditLogger)
	cashboxHandler := cashbox.NewHandler(logger, cashboxService)

	salesService := sales.NewService(sales.NewRepository(pool), auditLogger, logger)
	salesHandler := sales.NewHandler(logger, salesService)

	purchasesService := purchases.NewService(purchases.NewRepository(pool), auditLogger, logger)
	purchasesHandler := purchases.NewHandler(logger, purchasesService)

	shrinkageRepo := shrinkage.NewRepository(pool)
	shrinkageService := shrinkage.NewService(shrinkageRepo, auditLogger, logger)
	shrinkageNotifier := shrinkage.NewNotifier(shrinkageRepo, redisClient)

	var scanEnqueuer shrinkage.ScanEnqueuer
	if cfg.RedisAddr != "" {
		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		scanEnqueuer = jobsClient
	}
	shrinkageHandler := shrinkage.NewHandler(logger, shrinkageService, shrinkageNotifier, scanEnqueuer)

	trashService := trash.NewService(trash.NewRepository(pool), auditLogger)
	trashHandler := trash.NewHandler(logger, trashService)

	masterdataHandler := masterdata.NewHandler(logger, masterdata.NewRepository(pool), auditLogger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              pool,
		CatalogHandler:    catalogHandler,
		SalesHandler:      salesHandler,
		PurchasesHandler:  purchasesHandler,
		ShrinkageHandler:  shrinkageHandler,
		CashboxHandler:    cashboxHandler,
		TrashHandler:      trashHandler,
		MasterdataHandler: masterdataHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

func runMigrations(dsn, dir string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetTableName("goose_db_version")
	return goose.Up(sqlDB, dir)
}
