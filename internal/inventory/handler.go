package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/view"
)

const itemsPerPage = 50

// Handler wires HTTP endpoints for the inventory pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	barcode   http.HandlerFunc
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions}
}

// WithBarcodeImage serves /inventory/barcode.png with fn.
func (h *Handler) WithBarcodeImage(fn http.HandlerFunc) *Handler {
	h.barcode = fn
	return h
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showInventory)
	r.Route("/inventory", func(r chi.Router) {
		r.Post("/items", h.handleCreate)
		r.Post("/items/{id}", h.handleUpdate)
		r.Post("/items/{id}/delete", h.handleDelete)
		r.Post("/undo-delete", h.handleUndoDelete)
		r.Post("/generate/barcode", h.handleGenerateBarcode)
		r.Post("/generate/framecode", h.handleGenerateFrameCode)
		r.Get("/export.csv", h.exportInventory(records.FormatCSV))
		r.Get("/export.xlsx", h.exportInventory(records.FormatXLSX))
		r.Get("/archive/export.csv", h.exportArchive(records.FormatCSV))
		r.Get("/archive/export.xlsx", h.exportArchive(records.FormatXLSX))
		if h.barcode != nil {
			r.Get("/barcode.png", h.barcode)
		}
	})
}

type inventoryPageData struct {
	Rows          []records.Row
	ArchiveRows   []records.Row
	Total         int
	Columns       []string
	PriceColumns  map[string]bool
	Pagination    shared.Pagination
	Query         string
	Form          map[string]string
	Editing       string
	EditForm      map[string]string
	Errors        map[string]string
	AddErrors     map[string]string
	EditErrors    map[string]string
	Options       Options
	Supplier      string
	CanUndo       bool
	InventoryFile string
}

func (h *Handler) showInventory(w http.ResponseWriter, r *http.Request) {
	h.renderInventory(w, r, nil, nil, map[string]string{}, http.StatusOK)
}

// renderInventory draws the page. form and editForm carry submitted values
// back after a failed post.
func (h *Handler) renderInventory(w http.ResponseWriter, r *http.Request, form, editForm map[string]string, errs map[string]string, status int) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	st, err := h.service.State(ctx)
	if err != nil {
		h.renderFatal(w, r, err)
		return
	}
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	items := filterItems(st.Inventory, query)
	page, _ := strconv.Atoi(q.Get("page"))
	pagination := shared.NewPagination(page, itemsPerPage, len(items))
	start := (pagination.Page - 1) * pagination.PerPage
	if start > len(items) {
		start = len(items)
	}
	end := start + pagination.PerPage
	if end > len(items) {
		end = len(items)
	}

	if form == nil {
		form = SmartDefaults(st.Inventory, time.Now())
		if sess != nil {
			if v := sess.Get(shared.SessionLastBarcode); v != "" {
				form[records.ColBarcode] = v
			}
			if v := sess.Get(shared.SessionLastFrameCode); v != "" {
				form[records.ColFrameNum] = v
			}
		}
	}
	editing := q.Get("edit")
	failedEdit := editForm != nil
	if failedEdit {
		editing = editForm["_id"]
	} else if editing != "" {
		if i := indexOf(st.Inventory, records.CanonicalCode(editing)); i >= 0 {
			editForm = RowFromItem(st.Inventory[i])
		} else {
			editing = ""
		}
	}

	prices := make(map[string]bool, len(records.InventorySchema.PriceColumns))
	for _, col := range records.InventorySchema.PriceColumns {
		prices[col] = true
	}
	addErrs, editErrs := errs, map[string]string{}
	if failedEdit {
		addErrs, editErrs = map[string]string{}, errs
	}
	data := inventoryPageData{
		Rows:          itemRows(items[start:end]),
		ArchiveRows:   itemRows(st.Archive),
		Total:         len(st.Inventory),
		Columns:       displayColumns(st.InventoryColumns),
		PriceColumns:  prices,
		Pagination:    pagination,
		Query:         query,
		Form:          form,
		Editing:       editing,
		EditForm:      editForm,
		Errors:        errs,
		AddErrors:     addErrs,
		EditErrors:    editErrs,
		Options:       FormOptions(),
		Supplier:      form[records.ColSupplier],
		CanUndo:       sess != nil && sess.Get(shared.SessionLastDeleted) != "",
		InventoryFile: filepath.Base(h.inventoryFile()),
	}
	h.render(w, r, status, "pages/inventory.html", "Inventory Manager", data)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	item, form, errs := itemFromForm(r.PostForm)
	if len(errs) > 0 {
		h.renderInventory(w, r, form, nil, errs, http.StatusBadRequest)
		return
	}
	id, err := h.service.AddItem(r.Context(), ActorFromRequest(r), item)
	if err != nil {
		h.logger.Warn("add item failed", slog.String("barcode", item.Barcode), slog.Any("error", err))
		errs = map[string]string{"general": UserMessage(err)}
		h.renderInventory(w, r, form, nil, errs, StatusFor(err))
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(shared.SessionLastBarcode)
		sess.Delete(shared.SessionLastFrameCode)
		sess.Flash(shared.FlashSuccess, fmt.Sprintf("Product %s added.", id))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	item, form, errs := itemFromForm(r.PostForm)
	form["_id"] = id
	if len(errs) > 0 {
		h.renderInventory(w, r, nil, form, errs, http.StatusBadRequest)
		return
	}
	if err := h.service.EditItem(r.Context(), ActorFromRequest(r), id, item); err != nil {
		h.logger.Warn("edit item failed", slog.String("id", id), slog.Any("error", err))
		if errors.Is(err, ErrNotFound) {
			h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/")
			return
		}
		h.renderInventory(w, r, nil, form, map[string]string{"general": UserMessage(err)}, StatusFor(err))
		return
	}
	h.flashRedirect(w, r, shared.FlashSuccess, fmt.Sprintf("Product %s updated.", item.Barcode), "/")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.service.DeleteItem(r.Context(), ActorFromRequest(r), id)
	if err != nil {
		h.logger.Warn("delete item failed", slog.String("id", id), slog.Any("error", err))
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/")
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := sess.SetJSON(shared.SessionLastDeleted, removed); err != nil {
			h.logger.Error("remember deleted item", slog.Any("error", err))
		}
	}
	h.flashRedirect(w, r, shared.FlashSuccess, fmt.Sprintf("Product %s deleted. Use Undo to restore it.", removed.Barcode), "/")
}

func (h *Handler) handleUndoDelete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.flashRedirect(w, r, shared.FlashInfo, "Nothing to restore.", "/")
		return
	}
	var item Item
	ok, err := sess.TakeJSON(shared.SessionLastDeleted, &item)
	if err != nil || !ok {
		h.flashRedirect(w, r, shared.FlashInfo, "Nothing to restore.", "/")
		return
	}
	if _, err := h.service.RestoreItem(r.Context(), ActorFromRequest(r), item); err != nil {
		h.logger.Warn("restore item failed", slog.String("barcode", item.Barcode), slog.Any("error", err))
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/")
		return
	}
	h.flashRedirect(w, r, shared.FlashSuccess, fmt.Sprintf("Product %s restored.", item.Barcode), "/")
}

func (h *Handler) handleGenerateBarcode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextBarcode(r.Context())
	if err != nil {
		h.logger.Error("generate barcode", slog.Any("error", err))
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/")
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(shared.SessionLastBarcode, code)
	}
	h.flashRedirect(w, r, shared.FlashInfo, "Generated barcode "+code+".", "/#add")
}

func (h *Handler) handleGenerateFrameCode(w http.ResponseWriter, r *http.Request) {
	supplier := strings.TrimSpace(r.PostFormValue("supplier"))
	code, err := h.service.NextFrameCode(r.Context(), supplier)
	if err != nil {
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/")
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(shared.SessionLastFrameCode, code)
	}
	h.flashRedirect(w, r, shared.FlashInfo, "Generated frame code "+code+".", "/#add")
}

func (h *Handler) exportInventory(format records.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.service.State(r.Context())
		if err != nil {
			h.renderFatal(w, r, err)
			return
		}
		base := strings.TrimSuffix(filepath.Base(h.inventoryFile()), filepath.Ext(h.inventoryFile()))
		h.download(w, ItemsToTable(st.Inventory, st.InventoryColumns), base, format)
	}
}

func (h *Handler) exportArchive(format records.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.service.State(r.Context())
		if err != nil {
			h.renderFatal(w, r, err)
			return
		}
		h.download(w, ItemsToTable(st.Archive, st.ArchiveColumns), "archive", format)
	}
}

func (h *Handler) download(w http.ResponseWriter, table records.Table, base string, format records.Format) {
	var buf bytes.Buffer
	var err error
	switch format {
	case records.FormatXLSX:
		err = records.WriteXLSX(&buf, table)
	default:
		err = records.WriteCSV(&buf, table)
	}
	if err != nil {
		h.logger.Error("export table", slog.String("format", string(format)), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	WriteDownload(w, DownloadName(base, time.Now(), format), format, buf.Bytes())
}

func (h *Handler) inventoryFile() string {
	return h.service.InventoryFile()
}

func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, kind, msg, to string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Flash(kind, msg)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var (
		csrfToken string
		flash     *shared.FlashMessage
		staff     string
	)
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
		staff = sess.Staff()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Staff: staff, Data: data}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render inventory page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderFatal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("load inventory tables", slog.Any("error", err))
	h.render(w, r, http.StatusInternalServerError, "pages/error.html", "Inventory unavailable", map[string]string{
		"Message": UserMessage(err),
	})
}

// DownloadName builds "fil-<base>_<date>-downloaded.<ext>".
func DownloadName(base string, now time.Time, format records.Format) string {
	return fmt.Sprintf("fil-%s_%s-downloaded.%s", base, now.Format("2006-01-02"), format)
}

// WriteDownload sends data as an attachment.
func WriteDownload(w http.ResponseWriter, name string, format records.Format, data []byte) {
	contentType := "text/csv; charset=utf-8"
	if format == records.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// ActorFromRequest reads the staff name from the form or session and the
// client address set by the RealIP middleware.
func ActorFromRequest(r *http.Request) Actor {
	staff := strings.TrimSpace(r.PostFormValue("staff"))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if staff != "" {
			sess.SetStaff(staff)
		} else {
			staff = sess.Staff()
		}
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Actor{Staff: staff, ClientIP: ip}
}

// itemFromForm reads item fields named after their columns. It returns the
// raw values so a failed submit can be redisplayed.
func itemFromForm(values url.Values) (Item, map[string]string, map[string]string) {
	form := make(map[string]string)
	row := make(records.Row)
	for _, col := range records.InventorySchema.Columns {
		v := strings.TrimSpace(values.Get(col))
		form[col] = v
		if col != records.ColTimestamp {
			row[col] = v
		}
	}
	errs := make(map[string]string)
	qty := form[records.ColQuantity]
	if qty == "" {
		qty = "0"
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n < 0 {
		errs[records.ColQuantity] = "Quantity must be a whole number of zero or more."
	}
	if form[records.ColBarcode] == "" {
		errs[records.ColBarcode] = "Barcode is required."
	}
	if form[records.ColFrameNum] == "" {
		errs[records.ColFrameNum] = "Frame code is required."
	}
	item := ItemFromRow(row)
	item.Quantity = n
	item.Extra = nil
	return item, form, errs
}

func filterItems(items []Item, query string) []Item {
	if query == "" {
		return items
	}
	needle := strings.ToLower(query)
	var out []Item
	for _, item := range items {
		for _, v := range RowFromItem(item) {
			if strings.Contains(strings.ToLower(v), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// displayColumns hides the timestamp column from the table.
func displayColumns(columns []string) []string {
	if len(columns) == 0 {
		columns = records.InventorySchema.Columns
	}
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if !strings.EqualFold(col, records.ColTimestamp) {
			out = append(out, col)
		}
	}
	return out
}

func itemRows(items []Item) []records.Row {
	rows := make([]records.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, RowFromItem(item))
	}
	return rows
}
