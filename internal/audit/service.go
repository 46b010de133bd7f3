// Package audit exposes the audit log as a filterable timeline.
package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
)

const (
	// DefaultPageSize is used when the request does not set one.
	DefaultPageSize = 20
	// MaxPageSize caps a single page.
	MaxPageSize = 100
)

// Source loads the ledger tables.
type Source interface {
	State(ctx context.Context) (inventory.State, error)
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}

// Service reads the audit log.
type Service struct {
	source Source
}

// NewService constructs the audit timeline service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Timeline returns one page of matching entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.Export(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	offset := (page - 1) * pageSize
	window := []TimelineRow{}
	if offset < len(rows) {
		window = rows[offset:min(len(rows), offset+pageSize+1)]
	}
	hasNext := len(window) > pageSize
	if hasNext {
		window = window[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext, Total: len(rows)}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: window, Paging: paging}, nil
}

// Export returns every matching entry, newest first.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.source == nil {
		return nil, fmt.Errorf("audit: source not configured")
	}
	st, err := s.source.State(ctx)
	if err != nil {
		return nil, err
	}
	match := matcher(filters)
	out := make([]TimelineRow, 0, len(st.Audit))
	// The log is append-only, so walking it backwards yields newest first
	// even for rows with unparsable timestamps.
	for i := len(st.Audit) - 1; i >= 0; i-- {
		row := mapRecord(st.Audit[i])
		if match(row) {
			out = append(out, row)
		}
	}
	slices.SortStableFunc(out, func(a, b TimelineRow) int {
		if a.At.IsZero() || b.At.IsZero() {
			return 0
		}
		return b.At.Compare(a.At)
	})
	return out, nil
}

// Actions lists the action values the log can hold.
func Actions() []string {
	return []string{
		string(inventory.ActionAdd),
		string(inventory.ActionEdit),
		string(inventory.ActionDelete),
		string(inventory.ActionSale),
		string(inventory.ActionReturn),
	}
}

func matcher(f TimelineFilters) func(TimelineRow) bool {
	user := strings.ToLower(strings.TrimSpace(f.User))
	action := strings.TrimSpace(f.Action)
	barcode := records.CanonicalCode(f.Barcode)
	return func(row TimelineRow) bool {
		if !f.From.IsZero() && (row.At.IsZero() || row.At.Before(f.From)) {
			return false
		}
		if !f.To.IsZero() && (row.At.IsZero() || !row.At.Before(f.To)) {
			return false
		}
		if user != "" && !strings.Contains(strings.ToLower(row.User), user) {
			return false
		}
		if action != "" && !strings.EqualFold(row.Action, action) {
			return false
		}
		if barcode != "" && row.Barcode != barcode {
			return false
		}
		return true
	}
}

func mapRecord(rec inventory.AuditRecord) TimelineRow {
	return TimelineRow{
		At:        rec.At(),
		Timestamp: rec.Timestamp,
		User:      rec.User,
		Action:    string(rec.Action),
		Barcode:   records.CanonicalCode(rec.Barcode),
		Product:   rec.Product,
		Quantity:  rec.Quantity,
		QtyBefore: rec.QtyBefore,
		QtyAfter:  rec.QtyAfter,
		Details:   rec.Details,
		ClientIP:  rec.ClientIP,
	}
}
