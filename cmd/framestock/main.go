package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Christophertabanag/Inventory-System/cmd/framestock/cli"
	"github.com/Christophertabanag/Inventory-System/internal/app"
	"github.com/Christophertabanag/Inventory-System/internal/audit"
	audithttp "github.com/Christophertabanag/Inventory-System/internal/audit/http"
	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/labels"
	"github.com/Christophertabanag/Inventory-System/internal/observability"
	"github.com/Christophertabanag/Inventory-System/internal/platform/cache"
	"github.com/Christophertabanag/Inventory-System/internal/platform/db"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/stocktake"
	"github.com/Christophertabanag/Inventory-System/internal/view"
	"github.com/Christophertabanag/Inventory-System/jobs"
	"github.com/Christophertabanag/Inventory-System/report"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "stocktake":
			os.Exit(runStocktake(os.Args[2:]))
		case "jobs":
			os.Exit(runJobs(os.Args[2:]))
		case "serve":
		default:
			_, _ = fmt.Fprintf(os.Stderr, "usage: framestock [serve|stocktake|jobs]\n")
			os.Exit(2)
		}
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := serve(); err != nil {
		slog.Default().Error("framestock", slog.Any("error", err))
		os.Exit(1)
	}
}

func runStocktake(args []string) int {
	fs := flag.NewFlagSet("stocktake", flag.ContinueOnError)
	opts := cli.StocktakeOptions{}
	fs.StringVar(&opts.InventoryPath, "inventory", "", "inventory file (.xlsx or .csv)")
	fs.StringVar(&opts.ScanPath, "scan", "", "scanned barcodes (.txt, .csv or .xlsx)")
	fs.StringVar(&opts.Column, "column", "", "barcode column in the scan file")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.StocktakeCommand(context.Background(), opts)
}

func runJobs(args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: framestock jobs [snapshot|stats]")
		return 2
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	jobsCLI := cli.NewJobsCLI(redisAddr)
	defer func() {
		_ = jobsCLI.Close()
	}()
	ctx := context.Background()
	switch args[0] {
	case "snapshot":
		info, err := jobsCLI.Trigger(ctx, jobs.TaskInventorySnapshot)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(os.Stdout, "enqueued %s (%s)\n", info.Type, info.ID)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(os.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "jobs: unknown command %q\n", args[0])
		return 2
	}
	return 0
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	deps := app.LedgerDeps{Metrics: metrics}
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureAuditSchema(ctx, pool); err != nil {
			return err
		}
		deps.Audit = shared.NewAuditLogger(pool)
		logger.Info("audit mirror enabled")
	}
	ledger, err := app.NewLedger(cfg, logger, deps)
	if err != nil {
		return err
	}

	sessionManager := shared.NewSessionManager(redisClient, "framestock_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, idempotencyTTL)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	reportClient := report.NewClient(cfg.GotenbergURL)
	labelRenderer, err := labels.NewRenderer(reportClient)
	if err != nil {
		return err
	}
	labelService := labels.NewService(ledger, labels.NewTemplateStore(cfg.LabelTemplatePath()), labelRenderer, labels.Config{
		Enqueuer:       jobClient,
		Metrics:        metrics,
		Logger:         logger,
		StorageDir:     cfg.LabelStorageDir,
		AsyncThreshold: cfg.LabelAsyncThreshold,
	})
	stocktakeService := stocktake.NewService(ledger, metrics, logger)
	auditService := audit.NewService(ledger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Templates:           templates,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		InventoryHandler:    inventory.NewHandler(logger, ledger, templates, csrfManager, sessionManager),
		InventoryAPIHandler: inventory.NewAPIHandler(logger, ledger, idempotencyStore),
		SalesHandler:        inventory.NewSalesHandler(logger, ledger, templates, csrfManager, idempotencyStore),
		StocktakeHandler:    stocktake.NewHandler(logger, stocktakeService, templates, csrfManager),
		StocktakeAPIHandler: stocktake.NewAPIHandler(logger, stocktakeService),
		LabelsHandler:       labels.NewHandler(logger, labelService, templates, csrfManager),
		AuditHandler:        audithttp.NewHandler(logger, auditService, templates, audit.NewExporter(), csrfManager),
		ReportHandler:       report.NewHandler(reportClient, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
