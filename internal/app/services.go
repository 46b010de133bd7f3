package app

import (
	"log/slog"

	"github.com/Christophertabanag/Inventory-System/internal/codegen"
	"github.com/Christophertabanag/Inventory-System/internal/inventory"
)

// LedgerDeps carries the optional collaborators of the ledger service.
type LedgerDeps struct {
	Audit   inventory.AuditPort
	Metrics inventory.MetricsPort
}

// NewLedger builds the file backed ledger service shared by the server, the
// worker and the CLI.
func NewLedger(cfg *Config, logger *slog.Logger, deps LedgerDeps) (*inventory.Service, error) {
	paths, err := cfg.TablePaths()
	if err != nil {
		return nil, err
	}
	logger.Info("inventory tables",
		slog.String("inventory", paths.Inventory),
		slog.String("archive", paths.Archive),
		slog.String("sales", paths.Sales),
		slog.String("audit", paths.Audit),
	)
	return inventory.NewService(inventory.NewRepository(paths), deps.Audit, inventory.ServiceConfig{
		Generator: &codegen.Generator{
			Min:         cfg.BarcodeMin,
			Max:         cfg.BarcodeMax,
			MaxAttempts: cfg.BarcodeMaxAttempts,
		},
		Metrics: deps.Metrics,
		Logger:  logger,
	}), nil
}
