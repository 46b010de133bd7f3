package audithttp

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Christophertabanag/Inventory-System/internal/audit"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/view"
)

const (
	dateLayout        = "2006-01-02"
	maxDateRangeHours = 24 * 366
)

type exportFormat string

const (
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Exporter writes audit timeline exports.
type Exporter interface {
	WriteCSV(rows []audit.TimelineRow) ([]byte, error)
	WriteXLSX(rows []audit.TimelineRow) ([]byte, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger    *slog.Logger
	service   TimelineService
	exporter  Exporter
	templates *view.Engine
	csrf      *shared.CSRFManager
	now       func() time.Time
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, templates *view.Engine, exporter Exporter, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		exporter:  exporter,
		templates: templates,
		csrf:      csrf,
		now:       time.Now,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	data := view.TemplateData{
		Title:       "Audit Log",
		CurrentPath: r.URL.Path,
		Data:        h.buildViewModel(r, result),
	}
	if sess != nil {
		data.Flash = sess.PopFlash()
		data.Staff = sess.Staff()
		if h.csrf != nil {
			data.CSRFToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		}
	}
	if err := h.templates.Render(w, "pages/audit.html", data); err != nil {
		h.handleServerError(w, "render audit timeline", err)
	}
}

func (h *Handler) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.exporter == nil || h.service == nil {
			http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
			return
		}
		filters, err := h.parseFilters(r)
		if err != nil {
			h.handleFilterError(w, err)
			return
		}
		rows, err := h.service.Export(r.Context(), filters)
		if err != nil {
			h.handleServerError(w, "export audit timeline", err)
			return
		}
		var (
			body        []byte
			contentType string
		)
		switch format {
		case formatXLSX:
			body, err = h.exporter.WriteXLSX(rows)
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			body, err = h.exporter.WriteCSV(rows)
			contentType = "text/csv; charset=utf-8"
		}
		if err != nil {
			h.handleServerError(w, "encode "+string(format), err)
			return
		}
		name := fmt.Sprintf("auditlog-%s.%s", h.now().Format("20060102"), format)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		if _, err := w.Write(body); err != nil {
			h.logger.Warn("write audit export", slog.Any("error", err))
		}
	}
}

// parseFilters reads from/to as inclusive days in local time.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	var from, to time.Time
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return audit.TimelineFilters{}, validationError{field: "from"}
		}
		from = parsed
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return audit.TimelineFilters{}, validationError{field: "to"}
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() {
		if !from.Before(to) {
			return audit.TimelineFilters{}, validationError{field: "range"}
		}
		if to.Sub(from) > maxDateRangeHours*time.Hour {
			return audit.TimelineFilters{}, validationError{field: "range"}
		}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := audit.DefaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page_size"}
		}
		pageSize = min(parsed, audit.MaxPageSize)
	}

	return audit.TimelineFilters{
		From:     from,
		To:       to,
		User:     strings.TrimSpace(q.Get("user")),
		Action:   strings.TrimSpace(q.Get("action")),
		Barcode:  strings.TrimSpace(q.Get("barcode")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) buildViewModel(r *http.Request, result audit.Result) audit.ViewModel {
	q := r.URL.Query()
	filters := audit.FiltersViewModel{
		From:    strings.TrimSpace(q.Get("from")),
		To:      strings.TrimSpace(q.Get("to")),
		User:    strings.TrimSpace(q.Get("user")),
		Action:  strings.TrimSpace(q.Get("action")),
		Barcode: strings.TrimSpace(q.Get("barcode")),
	}
	keep := url.Values{}
	for key, v := range map[string]string{"from": filters.From, "to": filters.To, "user": filters.User, "action": filters.Action, "barcode": filters.Barcode} {
		if v != "" {
			keep.Set(key, v)
		}
	}
	link := func(path string, page int) template.URL {
		q := url.Values{}
		for k, v := range keep {
			q[k] = v
		}
		if page > 0 {
			q.Set("page", strconv.Itoa(page))
		}
		if len(q) == 0 {
			return template.URL(path)
		}
		return template.URL(path + "?" + q.Encode())
	}
	links := audit.Links{CSV: link("/audit/export.csv", 0), XLSX: link("/audit/export.xlsx", 0)}
	if result.Paging.PrevPage > 0 {
		links.Prev = link("/audit", result.Paging.PrevPage)
	}
	if result.Paging.NextPage > 0 {
		links.Next = link("/audit", result.Paging.NextPage)
	}
	rows := make([]audit.TimelineRow, len(result.Rows))
	copy(rows, result.Rows)
	return audit.ViewModel{
		Filters: filters,
		Actions: audit.Actions(),
		Rows:    rows,
		Paging:  result.Paging,
		Links:   links,
	}
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		http.Error(w, "Invalid filter: "+v.field, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
