package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/stocktake"
)

// ExitDiscrepancy is returned when the count found missing or unexpected items.
const ExitDiscrepancy = 10

// StocktakeOptions defines the flags of the stocktake command.
type StocktakeOptions struct {
	InventoryPath string
	ScanPath      string
	Column        string
	JSONOutput    bool
	Stdout        io.Writer
	Stderr        io.Writer
}

// StocktakeSummary is the JSON output of the stocktake command.
type StocktakeSummary struct {
	OK         bool          `json:"ok"`
	Column     string        `json:"column"`
	Scanned    int           `json:"scanned"`
	Matched    []string      `json:"matched"`
	Missing    []MissingItem `json:"missing"`
	Unexpected []string      `json:"unexpected"`
}

// MissingItem describes a recorded frame that was not scanned.
type MissingItem struct {
	Barcode      string `json:"barcode"`
	FrameCode    string `json:"frame_code,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
}

// fileSource reads only the inventory table.
type fileSource struct {
	store *records.FileStore
}

func (s fileSource) State(ctx context.Context) (inventory.State, error) {
	table, err := s.store.Load(ctx)
	if err != nil {
		return inventory.State{}, err
	}
	return inventory.State{Inventory: inventory.ItemsFromTable(table)}, nil
}

// StocktakeCommand reconciles a scan file against an inventory file and
// prints the outcome. It returns the process exit code.
func StocktakeCommand(ctx context.Context, opts StocktakeOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.InventoryPath) == "" || strings.TrimSpace(opts.ScanPath) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "stocktake: -inventory and -scan are required")
		return 1
	}
	scan, err := os.Open(opts.ScanPath)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "stocktake: open scan: %v\n", err)
		return 1
	}
	defer func() {
		_ = scan.Close()
	}()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := fileSource{store: records.NewFileStore(opts.InventoryPath, records.InventorySchema)}
	service := stocktake.NewService(source, nil, logger)
	report, err := service.Run(ctx, filepath.Base(opts.ScanPath), scan, strings.TrimSpace(opts.Column))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "stocktake: %s\n", stocktake.UserMessage(err))
		if len(report.Candidates) > 0 {
			_, _ = fmt.Fprintf(opts.Stderr, "stocktake: candidate columns: %s\n", strings.Join(report.Candidates, ", "))
		}
		return 1
	}

	summary := buildStocktakeSummary(report)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "stocktake: encode json: %v\n", err)
			return 1
		}
	} else {
		renderStocktakeHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitDiscrepancy
	}
	return 0
}

func buildStocktakeSummary(report stocktake.Report) StocktakeSummary {
	summary := StocktakeSummary{
		OK:         report.Clean(),
		Column:     report.Column,
		Scanned:    report.Scanned,
		Matched:    report.Matched,
		Missing:    make([]MissingItem, 0, len(report.MissingItems)),
		Unexpected: report.Unexpected,
	}
	for _, item := range report.MissingItems {
		summary.Missing = append(summary.Missing, MissingItem{
			Barcode:      item.Barcode,
			FrameCode:    item.FrameCode,
			Manufacturer: item.Manufacturer,
			Model:        item.Model,
		})
	}
	return summary
}

func renderStocktakeHuman(w io.Writer, s StocktakeSummary) {
	_, _ = fmt.Fprintf(w, "Column:     %s\n", s.Column)
	_, _ = fmt.Fprintf(w, "Scanned:    %d\n", s.Scanned)
	_, _ = fmt.Fprintf(w, "Matched:    %d\n", len(s.Matched))
	_, _ = fmt.Fprintf(w, "Missing:    %d\n", len(s.Missing))
	_, _ = fmt.Fprintf(w, "Unexpected: %d\n", len(s.Unexpected))
	if len(s.Missing) > 0 {
		_, _ = fmt.Fprintln(w, "\nMissing from shelf:")
		for _, item := range s.Missing {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s %s\n", item.Barcode, item.FrameCode, item.Manufacturer, item.Model)
		}
	}
	if len(s.Unexpected) > 0 {
		_, _ = fmt.Fprintln(w, "\nScanned but not in inventory:")
		for _, code := range s.Unexpected {
			_, _ = fmt.Fprintf(w, "  %s\n", code)
		}
	}
	if s.OK {
		_, _ = fmt.Fprintln(w, "\nStock count matches the inventory.")
	}
}
