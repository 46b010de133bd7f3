package stocktake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
)

var (
	// ErrColumnRequired indicates the upload has several candidate columns.
	ErrColumnRequired = errors.New("stocktake: choose the barcode column")
	// ErrUnknownColumn indicates the chosen column is not in the upload.
	ErrUnknownColumn = errors.New("stocktake: column not found in upload")
	// ErrEmptyUpload indicates the upload carried no columns at all.
	ErrEmptyUpload = errors.New("stocktake: upload is empty")
)

// ColumnError carries the candidate columns alongside ErrColumnRequired or
// ErrUnknownColumn.
type ColumnError struct {
	Err        error
	Column     string
	Candidates []string
}

func (e *ColumnError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Column)
	}
	return e.Err.Error()
}

func (e *ColumnError) Unwrap() error { return e.Err }

// InventorySource supplies the recorded tables.
type InventorySource interface {
	State(ctx context.Context) (inventory.State, error)
}

// MetricsPort observes reconciliation outcomes.
type MetricsPort interface {
	ObserveStocktake(clean bool)
}

// Report is the outcome of one stocktake run.
type Report struct {
	Result
	Present      []inventory.Item
	MissingItems []inventory.Item
	Column       string
	Candidates   []string
	Scanned      int
}

// Service runs stocktakes. It never modifies the tables.
type Service struct {
	source  InventorySource
	metrics MetricsPort
	logger  *slog.Logger
}

// NewService constructs Service. metrics may be nil.
func NewService(source InventorySource, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, metrics: metrics, logger: logger}
}

// Columns reads an upload and returns its columns and barcode candidates.
func (s *Service) Columns(name string, r io.Reader) ([]string, []string, error) {
	table, err := records.ReadTable(name, r)
	if err != nil {
		return nil, nil, err
	}
	return table.Columns, DetectBarcodeColumns(table.Columns), nil
}

// Run reconciles the uploaded scan against the recorded inventory. column
// may be empty when the upload has exactly one candidate column.
func (s *Service) Run(ctx context.Context, name string, r io.Reader, column string) (Report, error) {
	table, err := records.ReadTable(name, r)
	if err != nil {
		return Report{}, err
	}
	col, candidates, err := chooseColumn(table.Columns, column)
	if err != nil {
		return Report{Candidates: candidates}, err
	}
	st, err := s.source.State(ctx)
	if err != nil {
		return Report{}, err
	}
	return s.reconcile(st, table.Column(col), col, candidates), nil
}

// RunCodes reconciles already extracted barcodes.
func (s *Service) RunCodes(ctx context.Context, scanned []string) (Report, error) {
	st, err := s.source.State(ctx)
	if err != nil {
		return Report{}, err
	}
	return s.reconcile(st, scanned, "", nil), nil
}

func (s *Service) reconcile(st inventory.State, scanned []string, column string, candidates []string) Report {
	recorded := make([]string, 0, len(st.Inventory))
	byCode := make(map[string]inventory.Item, len(st.Inventory))
	for _, item := range st.Inventory {
		code := records.CanonicalCode(item.Barcode)
		recorded = append(recorded, code)
		byCode[code] = item
	}
	res := Reconcile(recorded, scanned)
	report := Report{
		Result:     res,
		Column:     column,
		Candidates: candidates,
		Scanned:    len(scanned),
	}
	for _, code := range res.Matched {
		report.Present = append(report.Present, byCode[code])
	}
	for _, code := range res.Missing {
		report.MissingItems = append(report.MissingItems, byCode[code])
	}
	if s.metrics != nil {
		s.metrics.ObserveStocktake(res.Clean())
	}
	s.logger.Info("stocktake reconciled",
		slog.String("column", column),
		slog.Int("scanned", len(scanned)),
		slog.Int("matched", len(res.Matched)),
		slog.Int("missing", len(res.Missing)),
		slog.Int("unexpected", len(res.Unexpected)))
	return report
}

func chooseColumn(columns []string, column string) (string, []string, error) {
	if len(columns) == 0 {
		return "", nil, ErrEmptyUpload
	}
	candidates := DetectBarcodeColumns(columns)
	column = strings.TrimSpace(column)
	if column == "" {
		if len(candidates) == 1 {
			return candidates[0], candidates, nil
		}
		return "", candidates, &ColumnError{Err: ErrColumnRequired, Candidates: candidates}
	}
	for _, c := range columns {
		if strings.EqualFold(c, column) {
			return c, candidates, nil
		}
	}
	return "", candidates, &ColumnError{Err: ErrUnknownColumn, Column: column, Candidates: slices.Clone(columns)}
}
