package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Christophertabanag/Inventory-System/internal/app"
	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	jobmetrics "github.com/Christophertabanag/Inventory-System/internal/jobs"
	"github.com/Christophertabanag/Inventory-System/internal/labels"
	"github.com/Christophertabanag/Inventory-System/jobs"
	"github.com/Christophertabanag/Inventory-System/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := jobmetrics.NewMetrics(nil)

	ledger, err := app.NewLedger(cfg, logger, app.LedgerDeps{})
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}

	renderer, err := labels.NewRenderer(report.NewClient(cfg.GotenbergURL))
	if err != nil {
		logger.Error("init label renderer", slog.Any("error", err))
		os.Exit(1)
	}
	labelService := labels.NewService(ledger, labels.NewTemplateStore(cfg.LabelTemplatePath()), renderer, labels.Config{
		Logger:     logger,
		StorageDir: cfg.LabelStorageDir,
	})
	renderJob := labels.NewRenderJob(labelService, logger, metrics)
	snapshotJob := inventory.NewSnapshotJob(ledger, cfg.SnapshotDir, logger, metrics)

	snapshotTask, err := jobs.NewInventorySnapshotTask(time.Time{})
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLabelsRender, Handler: renderJob.Handle},
			{Type: jobs.TaskInventorySnapshot, Handler: snapshotJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.SnapshotCron, Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
